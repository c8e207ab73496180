// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/apd/v3"
)

// wireValue is an attribute value in DynamoDB JSON, e.g. {"S": "abc"}.
type wireValue map[string]json.RawMessage

type wireItem map[string]wireValue

func decodeItem(in wireItem) (map[string]types.AttributeValue, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(in))
	for name, w := range in {
		av, err := decodeValue(w)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", ErrValidation, name, err)
		}
		out[name] = av
	}
	return out, nil
}

func decodeValue(w wireValue) (types.AttributeValue, error) {
	if len(w) != 1 {
		return nil, fmt.Errorf("%w: value must carry exactly one type, got %d", ErrValidation, len(w))
	}

	for typ, raw := range w {
		switch typ {
		case "S":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberS{Value: s}, nil
		case "N":
			var n string
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, err
			}
			if _, _, err := apd.NewFromString(n); err != nil {
				return nil, fmt.Errorf("%w: invalid number %q", ErrValidation, n)
			}
			return &types.AttributeValueMemberN{Value: n}, nil
		case "BOOL":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberBOOL{Value: b}, nil
		case "NULL":
			var b bool
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberNULL{Value: b}, nil
		case "B":
			var b []byte
			if err := json.Unmarshal(raw, &b); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberB{Value: b}, nil
		case "SS":
			var ss []string
			if err := json.Unmarshal(raw, &ss); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberSS{Value: ss}, nil
		case "NS":
			var ns []string
			if err := json.Unmarshal(raw, &ns); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberNS{Value: ns}, nil
		case "BS":
			var bs [][]byte
			if err := json.Unmarshal(raw, &bs); err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberBS{Value: bs}, nil
		case "L":
			var l []wireValue
			if err := json.Unmarshal(raw, &l); err != nil {
				return nil, err
			}
			out := make([]types.AttributeValue, len(l))
			for i, e := range l {
				av, err := decodeValue(e)
				if err != nil {
					return nil, err
				}
				out[i] = av
			}
			return &types.AttributeValueMemberL{Value: out}, nil
		case "M":
			var m wireItem
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, err
			}
			out, err := decodeItem(m)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = map[string]types.AttributeValue{}
			}
			return &types.AttributeValueMemberM{Value: out}, nil
		default:
			return nil, fmt.Errorf("%w: unsupported attribute type %q", ErrValidation, typ)
		}
	}
	return nil, nil
}

func encodeItem(item map[string]types.AttributeValue) map[string]any {
	if item == nil {
		return nil
	}
	out := make(map[string]any, len(item))
	for name, av := range item {
		out[name] = encodeValue(av)
	}
	return out
}

func encodeValue(av types.AttributeValue) map[string]any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}
	case *types.AttributeValueMemberB:
		return map[string]any{"B": v.Value}
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": v.Value}
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": v.Value}
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": v.Value}
	case *types.AttributeValueMemberL:
		l := make([]any, len(v.Value))
		for i, e := range v.Value {
			l[i] = encodeValue(e)
		}
		return map[string]any{"L": l}
	case *types.AttributeValueMemberM:
		return map[string]any{"M": encodeItem(v.Value)}
	default:
		return map[string]any{"NULL": true}
	}
}

func encodeItems(items []map[string]types.AttributeValue) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, encodeItem(item))
	}
	return out
}

// equalValues reports whether two attribute values are equal under DynamoDB
// comparison rules: numbers compare by value, so "1" equals "1.0".
func equalValues(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && compareNumbers(av.Value, bv.Value) == 0
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	default:
		ja, errA := json.Marshal(canonical(encodeValue(a)))
		jb, errB := json.Marshal(canonical(encodeValue(b)))
		return errA == nil && errB == nil && bytes.Equal(ja, jb)
	}
}

// canonical sorts set members so that set equality ignores order.
func canonical(v map[string]any) map[string]any {
	for typ, val := range v {
		switch typ {
		case "SS", "NS":
			s := append([]string(nil), val.([]string)...)
			sort.Strings(s)
			v[typ] = s
		}
	}
	return v
}

// compareKeyValues orders two scalar key values of the same type.
func compareKeyValues(a, b types.AttributeValue) int {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			switch {
			case av.Value < bv.Value:
				return -1
			case av.Value > bv.Value:
				return 1
			}
			return 0
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return compareNumbers(av.Value, bv.Value)
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value)
		}
	}
	return 0
}

func compareNumbers(a, b string) int {
	da, _, errA := apd.NewFromString(a)
	db, _, errB := apd.NewFromString(b)
	if errA != nil || errB != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return da.Cmp(db)
}

// keyString renders a scalar key value for use inside a resource ID.
func keyString(av types.AttributeValue) (string, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value, nil
	case *types.AttributeValueMemberN:
		d, _, err := apd.NewFromString(v.Value)
		if err != nil {
			return "", fmt.Errorf("%w: invalid number %q", ErrValidation, v.Value)
		}
		d.Reduce(d)
		return "N:" + d.Text('f'), nil
	case *types.AttributeValueMemberB:
		b, _ := json.Marshal(v.Value)
		return "B:" + string(b), nil
	default:
		return "", fmt.Errorf("%w: key attributes must be S, N or B", ErrValidation)
	}
}
