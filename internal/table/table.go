// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package table wraps a single DynamoDB table keyed by a partition key and a
// sort key. It owns every key condition, filter and update expression so the
// operations built on top never deal with raw DynamoDB requests.
package table

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Table struct {
	client       Client
	name         string
	partitionKey string
	sortKey      string
}

func New(client Client, name, partitionKey, sortKey string) *Table {
	return &Table{
		client:       client,
		name:         name,
		partitionKey: partitionKey,
		sortKey:      sortKey,
	}
}

func (t *Table) Name() string { return t.name }

// Key is a composite primary key. Sort may be empty for partition-only lookups.
type Key struct {
	Partition string
	Sort      string
}

// Filter is a single attribute equality applied after the key condition.
type Filter struct {
	Name  string
	Value any
}

// Query selects records of one partition, optionally narrowed to one sort key
// value and an equality filter.
type Query struct {
	Partition string
	Sort      string
	Filter    *Filter
}

// Query returns every matching record in sort key order, following
// pagination until the table reports no more pages.
func (t *Table) Query(ctx context.Context, q Query) ([]Record, error) {
	keyCond := expression.Key(t.partitionKey).Equal(expression.Value(q.Partition))
	if q.Sort != "" {
		keyCond = keyCond.And(expression.Key(t.sortKey).Equal(expression.Value(q.Sort)))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if q.Filter != nil {
		builder = builder.WithFilter(expression.Name(q.Filter.Name).Equal(expression.Value(q.Filter.Value)))
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query for %s: %w", t.name, err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	records := []Record{}
	pages := dynamodb.NewQueryPaginator(t.client, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.name, err)
		}
		for _, item := range page.Items {
			records = append(records, Record(item))
		}
	}
	return records, nil
}

// Put writes a full record, replacing any record stored under the same key.
// attrs must not contain the key attributes.
func (t *Table) Put(ctx context.Context, key Key, attrs map[string]any) error {
	item, err := attributevalue.MarshalMap(attrs)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", t.name, err)
	}
	for name, v := range t.key(key) {
		item[name] = v
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put item into %s: %w", t.name, err)
	}
	return nil
}

// UpdateField sets one attribute of the record stored under key and leaves
// the others untouched. Concurrent updates are last-write-wins.
func (t *Table) UpdateField(ctx context.Context, key Key, field string, value any) error {
	update := expression.Set(expression.Name(field), expression.Value(value))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("build update for %s: %w", t.name, err)
	}

	_, err = t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(key),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("update %s in %s: %w", field, t.name, err)
	}
	return nil
}

func (t *Table) key(k Key) map[string]types.AttributeValue {
	key := map[string]types.AttributeValue{
		t.partitionKey: &types.AttributeValueMemberS{Value: k.Partition},
	}
	if t.sortKey != "" && k.Sort != "" {
		key[t.sortKey] = &types.AttributeValueMemberS{Value: k.Sort}
	}
	return key
}
