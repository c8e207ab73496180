// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package seed loads tables and items described in a YAML file into the
// local table service.
//
// Unquoted YAML booleans become BOOL attributes. Flags the store operations
// filter on, such as peak: "True" and essential: "False", are strings and
// must be quoted.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"retailagent/internal/api/dynamodb"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/apd/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Tables []Table `yaml:"tables"`
}

// Table is a table definition followed by the items to put into it.
// Numbers keep the digits written in the file.
type Table struct {
	dynamodb.CreateTableInput `yaml:",inline"`
	Items                     []yaml.Node `yaml:"items"`
}

func Load(ctx context.Context, engine *dynamodb.Engine, path string, log *zap.Logger) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return Apply(ctx, engine, f, log)
}

// Apply creates missing tables and puts every item. Existing tables are
// kept, so seeding twice is harmless.
func Apply(ctx context.Context, engine *dynamodb.Engine, f File, log *zap.Logger) error {
	for _, t := range f.Tables {
		_, err := engine.CreateTable(ctx, t.CreateTableInput)
		switch {
		case errors.Is(err, dynamodb.ErrTableExists):
			log.Debug("seed table exists", zap.String("table", t.TableName))
		case err != nil:
			return fmt.Errorf("seed table %s: %w", t.TableName, err)
		}

		for i := range t.Items {
			item, err := itemFromNode(&t.Items[i])
			if err != nil {
				return fmt.Errorf("seed table %s item %d: %w", t.TableName, i, err)
			}
			_, err = engine.PutItem(ctx, &ddb.PutItemInput{
				TableName: aws.String(t.TableName),
				Item:      item,
			})
			if err != nil {
				return fmt.Errorf("seed table %s item %d: %w", t.TableName, i, err)
			}
		}
		log.Info("seeded table", zap.String("table", t.TableName), zap.Int("items", len(t.Items)))
	}
	return nil
}

func itemFromNode(n *yaml.Node) (map[string]types.AttributeValue, error) {
	av, err := valueFromNode(n)
	if err != nil {
		return nil, err
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("item must be a mapping, got line %d", n.Line)
	}
	return m.Value, nil
}

func valueFromNode(n *yaml.Node) (types.AttributeValue, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return valueFromNode(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]types.AttributeValue, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := valueFromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[n.Content[i].Value] = v
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case yaml.SequenceNode:
		l := make([]types.AttributeValue, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := valueFromNode(c)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			d, _, err := apd.NewFromString(n.Value)
			if err != nil || d.Form != apd.Finite {
				return nil, fmt.Errorf("invalid number %q at line %d", n.Value, n.Line)
			}
			return &types.AttributeValueMemberN{Value: n.Value}, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberBOOL{Value: b}, nil
		case "!!null":
			return &types.AttributeValueMemberNULL{Value: true}, nil
		default:
			return &types.AttributeValueMemberS{Value: n.Value}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported yaml node at line %d", n.Line)
	}
}
