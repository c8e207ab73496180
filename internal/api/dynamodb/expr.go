// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// The local service understands conjunctions of equality comparisons
// ("#0 = :0 AND (#1 = :1)") and SET update clauses ("SET #a = :a, b = :b").
// Anything else is rejected with ErrUnsupported.

var andSplitter = regexp.MustCompile(`(?i)\s+AND\s+`)

// equality is one resolved "attribute = value" comparison.
type equality struct {
	Name  string
	Value types.AttributeValue
}

type exprContext struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (c exprContext) name(tok string) (string, error) {
	if strings.HasPrefix(tok, "#") {
		n, ok := c.names[tok]
		if !ok {
			return "", fmt.Errorf("%w: undefined expression attribute name %s", ErrValidation, tok)
		}
		return n, nil
	}
	if tok == "" || strings.ContainsAny(tok, " :()") {
		return "", fmt.Errorf("%w: invalid attribute name %q", ErrValidation, tok)
	}
	return tok, nil
}

func (c exprContext) value(tok string) (types.AttributeValue, error) {
	if !strings.HasPrefix(tok, ":") {
		return nil, fmt.Errorf("%w: expected value placeholder, got %q", ErrUnsupported, tok)
	}
	v, ok := c.values[tok]
	if !ok {
		return nil, fmt.Errorf("%w: undefined expression attribute value %s", ErrValidation, tok)
	}
	return v, nil
}

// parseConditions parses a key condition or filter expression.
func (c exprContext) parseConditions(expr string) ([]equality, error) {
	expr = strings.NewReplacer("(", " ", ")", " ").Replace(expr)
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var out []equality
	for _, part := range andSplitter.Split(expr, -1) {
		if strings.ContainsAny(part, "<>") || strings.Count(part, "=") != 1 {
			return nil, fmt.Errorf("%w: only equality comparisons are supported: %q", ErrUnsupported, strings.TrimSpace(part))
		}
		left, right, _ := strings.Cut(part, "=")
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)

		// allow ":v = #n" as well as "#n = :v"
		if strings.HasPrefix(left, ":") {
			left, right = right, left
		}

		name, err := c.name(left)
		if err != nil {
			return nil, err
		}
		value, err := c.value(right)
		if err != nil {
			return nil, err
		}
		out = append(out, equality{Name: name, Value: value})
	}
	return out, nil
}

// parseUpdate parses a "SET a = :v, ..." update expression.
func (c exprContext) parseUpdate(expr string) ([]equality, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 4 || !strings.EqualFold(expr[:4], "SET ") {
		return nil, fmt.Errorf("%w: only SET update expressions are supported", ErrUnsupported)
	}

	var out []equality
	for _, part := range strings.Split(expr[4:], ",") {
		left, right, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed SET clause %q", ErrValidation, strings.TrimSpace(part))
		}
		name, err := c.name(strings.TrimSpace(left))
		if err != nil {
			return nil, err
		}
		value, err := c.value(strings.TrimSpace(right))
		if err != nil {
			return nil, err
		}
		out = append(out, equality{Name: name, Value: value})
	}
	return out, nil
}

func matches(item map[string]types.AttributeValue, conds []equality) bool {
	for _, c := range conds {
		v, ok := item[c.Name]
		if !ok || !equalValues(v, c.Value) {
			return false
		}
	}
	return true
}
