// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"retailagent/internal/resource"
	"retailagent/internal/table"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

const (
	serviceName = "dynamodb"
	tableType   = "table"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrTableExists     = errors.New("table already exists")
	ErrValidation      = errors.New("validation error")
	ErrUnsupported     = errors.New("unsupported request")
	ErrConditionFailed = errors.New("the conditional request failed")
)

func itemType(tableName string) string { return "item:" + tableName }

// tableLocks serialises the read-check-write of item writes per namespace
// and table. Engines are built per request, so the locks live outside them.
var tableLocks sync.Map

func (e *Engine) lockTable(name string) func() {
	v, _ := tableLocks.LoadOrStore(e.Namespace+"\x00"+name, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Engine runs table and item operations for one namespace. Item operations
// take and return SDK types, so an Engine can stand in for *dynamodb.Client.
type Engine struct {
	Store     resource.Store
	Namespace string
}

var _ table.Client = (*Engine)(nil)

func NewEngine(store resource.Store, namespace string) *Engine {
	return &Engine{Store: store, Namespace: namespace}
}

type storedTable struct {
	TableDescription TableDescription `json:"table_description"`
	CreatedAt        time.Time        `json:"created_at"`
	Tags             []Tag            `json:"tags,omitempty"`
}

type storedItem struct {
	id    string
	attrs map[string]types.AttributeValue
}

// keyNames returns the partition and (possibly empty) sort key attribute names.
func (d *TableDescription) keyNames() (hash, rng string) {
	for _, k := range d.KeySchema {
		switch k.KeyType {
		case "HASH":
			hash = k.AttributeName
		case "RANGE":
			rng = k.AttributeName
		}
	}
	return hash, rng
}

func (e *Engine) CreateTable(ctx context.Context, in CreateTableInput) (*TableDescription, error) {
	if in.TableName == "" {
		return nil, fmt.Errorf("%w: TableName is required", ErrValidation)
	}

	var hashes, ranges int
	for _, k := range in.KeySchema {
		switch k.KeyType {
		case "HASH":
			hashes++
		case "RANGE":
			ranges++
		default:
			return nil, fmt.Errorf("%w: unknown KeyType %q", ErrValidation, k.KeyType)
		}
	}
	if hashes != 1 || ranges > 1 {
		return nil, fmt.Errorf("%w: KeySchema needs one HASH and at most one RANGE key", ErrValidation)
	}

	if _, err := e.Store.Get(in.TableName, serviceName, tableType, e.Namespace); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, in.TableName)
	}

	billingMode := in.BillingMode
	if billingMode == "" {
		billingMode = "PROVISIONED"
	}

	now := time.Now().UTC()
	desc := TableDescription{
		TableName:            in.TableName,
		TableArn:             tableArn(in.TableName),
		TableId:              uuid.New().String(),
		TableStatus:          "ACTIVE",
		CreationDateTime:     float64(now.UnixNano()) / 1e9,
		AttributeDefinitions: in.AttributeDefinitions,
		KeySchema:            in.KeySchema,
		BillingModeSummary:   buildBillingModeSummary(billingMode),
	}
	if billingMode == "PROVISIONED" {
		desc.ProvisionedThroughput = buildProvisionedThroughputDesc(in.ProvisionedThroughput)
	}

	buf, err := json.Marshal(storedTable{TableDescription: desc, CreatedAt: now, Tags: in.Tags})
	if err != nil {
		return nil, err
	}
	err = e.Store.Create(&resource.Resource{
		ID:         in.TableName,
		Namespace:  e.Namespace,
		Service:    serviceName,
		Type:       tableType,
		Attributes: buf,
	})
	if err != nil {
		return nil, fmt.Errorf("create table %s: %w", in.TableName, err)
	}
	return &desc, nil
}

// DescribeTable returns the stored description with a live item count.
func (e *Engine) DescribeTable(ctx context.Context, name string) (*TableDescription, error) {
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	items, err := e.Store.List(serviceName, itemType(name), e.Namespace)
	if err != nil {
		return nil, err
	}
	desc.ItemCount = int64(len(items))
	for _, it := range items {
		desc.TableSizeBytes += int64(len(it.Attributes))
	}
	return desc, nil
}

func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	tables, err := e.Store.List(serviceName, tableType, e.Namespace)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.ID)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteTable removes the table and every item stored in it.
func (e *Engine) DeleteTable(ctx context.Context, name string) (*TableDescription, error) {
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	defer e.lockTable(name)()
	items, err := e.Store.List(serviceName, itemType(name), e.Namespace)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := e.Store.Delete(it.ID, serviceName, itemType(name), e.Namespace); err != nil {
			return nil, err
		}
	}
	if err := e.Store.Delete(name, serviceName, tableType, e.Namespace); err != nil {
		return nil, err
	}
	desc.TableStatus = "DELETING"
	return desc, nil
}

func (e *Engine) PutItem(ctx context.Context, in *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	id, err := itemID(desc, in.Item, false)
	if err != nil {
		return nil, err
	}

	defer e.lockTable(name)()
	old, err := e.getItem(name, id)
	if err != nil {
		return nil, err
	}
	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	if err := ec.check(aws.ToString(in.ConditionExpression), old); err != nil {
		return nil, err
	}

	if err := e.putItem(name, id, in.Item); err != nil {
		return nil, err
	}

	out := &ddb.PutItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (e *Engine) GetItem(ctx context.Context, in *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	id, err := itemID(desc, in.Key, true)
	if err != nil {
		return nil, err
	}
	item, err := e.getItem(name, id)
	if err != nil {
		return nil, err
	}
	return &ddb.GetItemOutput{Item: item}, nil
}

func (e *Engine) DeleteItem(ctx context.Context, in *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	id, err := itemID(desc, in.Key, true)
	if err != nil {
		return nil, err
	}

	defer e.lockTable(name)()
	old, err := e.getItem(name, id)
	if err != nil {
		return nil, err
	}
	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	if err := ec.check(aws.ToString(in.ConditionExpression), old); err != nil {
		return nil, err
	}

	if err := e.Store.Delete(id, serviceName, itemType(name), e.Namespace); err != nil {
		return nil, err
	}

	out := &ddb.DeleteItemOutput{}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

// UpdateItem applies SET clauses to the item under Key, creating the item
// from its key when it does not exist yet.
func (e *Engine) UpdateItem(ctx context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	id, err := itemID(desc, in.Key, true)
	if err != nil {
		return nil, err
	}

	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	sets, err := ec.parseUpdate(aws.ToString(in.UpdateExpression))
	if err != nil {
		return nil, err
	}

	defer e.lockTable(name)()
	old, err := e.getItem(name, id)
	if err != nil {
		return nil, err
	}
	if err := ec.check(aws.ToString(in.ConditionExpression), old); err != nil {
		return nil, err
	}

	item := make(map[string]types.AttributeValue, len(old)+len(sets))
	for k, v := range in.Key {
		item[k] = v
	}
	for k, v := range old {
		item[k] = v
	}
	for _, s := range sets {
		if _, isKey := in.Key[s.Name]; isKey {
			return nil, fmt.Errorf("%w: cannot update key attribute %s", ErrValidation, s.Name)
		}
		item[s.Name] = s.Value
	}

	if err := e.putItem(name, id, item); err != nil {
		return nil, err
	}

	out := &ddb.UpdateItemOutput{}
	switch in.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = item
	case types.ReturnValueAllOld:
		out.Attributes = old
	}
	return out, nil
}

// Query returns the items of one partition in sort key order. Limit and
// ExclusiveStartKey page through the key-matched items before the filter
// is applied, as DynamoDB does.
func (e *Engine) Query(ctx context.Context, in *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	if in.IndexName != nil {
		return nil, fmt.Errorf("%w: secondary indexes", ErrUnsupported)
	}
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}
	hash, rng := desc.keyNames()

	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	keyConds, err := ec.parseConditions(aws.ToString(in.KeyConditionExpression))
	if err != nil {
		return nil, err
	}
	hasHash := false
	for _, c := range keyConds {
		switch {
		case c.Name == hash:
			hasHash = true
		case rng != "" && c.Name == rng:
		default:
			return nil, fmt.Errorf("%w: key condition on non-key attribute %s", ErrValidation, c.Name)
		}
	}
	if !hasHash {
		return nil, fmt.Errorf("%w: key condition must name partition key %s", ErrValidation, hash)
	}

	filter, err := ec.parseConditions(aws.ToString(in.FilterExpression))
	if err != nil {
		return nil, err
	}

	items, err := e.items(name)
	if err != nil {
		return nil, err
	}
	var selected []storedItem
	for _, it := range items {
		if matches(it.attrs, keyConds) {
			selected = append(selected, it)
		}
	}

	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	if rng != "" {
		sort.SliceStable(selected, func(i, j int) bool {
			c := compareKeyValues(selected[i].attrs[rng], selected[j].attrs[rng])
			if forward {
				return c < 0
			}
			return c > 0
		})
		if start, ok := in.ExclusiveStartKey[rng]; ok {
			selected = dropThrough(selected, func(it storedItem) bool {
				c := compareKeyValues(it.attrs[rng], start)
				if forward {
					return c <= 0
				}
				return c >= 0
			})
		}
	} else if in.ExclusiveStartKey != nil {
		selected = nil
	}

	page, last := limitPage(desc, selected, in.Limit)
	out := &ddb.QueryOutput{
		Items:            []map[string]types.AttributeValue{},
		ScannedCount:     int32(len(page)),
		LastEvaluatedKey: last,
	}
	for _, it := range page {
		if matches(it.attrs, filter) {
			out.Items = append(out.Items, it.attrs)
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (e *Engine) Scan(ctx context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	if in.IndexName != nil {
		return nil, fmt.Errorf("%w: secondary indexes", ErrUnsupported)
	}
	name := aws.ToString(in.TableName)
	desc, err := e.table(name)
	if err != nil {
		return nil, err
	}

	ec := exprContext{names: in.ExpressionAttributeNames, values: in.ExpressionAttributeValues}
	filter, err := ec.parseConditions(aws.ToString(in.FilterExpression))
	if err != nil {
		return nil, err
	}

	items, err := e.items(name)
	if err != nil {
		return nil, err
	}
	if in.ExclusiveStartKey != nil {
		startID, err := itemID(desc, in.ExclusiveStartKey, true)
		if err != nil {
			return nil, err
		}
		items = dropThrough(items, func(it storedItem) bool { return it.id <= startID })
	}

	page, last := limitPage(desc, items, in.Limit)
	out := &ddb.ScanOutput{
		Items:            []map[string]types.AttributeValue{},
		ScannedCount:     int32(len(page)),
		LastEvaluatedKey: last,
	}
	for _, it := range page {
		if matches(it.attrs, filter) {
			out.Items = append(out.Items, it.attrs)
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (e *Engine) table(name string) (*TableDescription, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: TableName is required", ErrValidation)
	}
	res, err := e.Store.Get(name, serviceName, tableType, e.Namespace)
	if errors.Is(err, resource.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	var stored storedTable
	if err := json.Unmarshal(res.Attributes, &stored); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", name, err)
	}
	return &stored.TableDescription, nil
}

func (e *Engine) items(tableName string) ([]storedItem, error) {
	list, err := e.Store.List(serviceName, itemType(tableName), e.Namespace)
	if err != nil {
		return nil, err
	}
	out := make([]storedItem, 0, len(list))
	for _, res := range list {
		attrs, err := decodeStored(res.Attributes)
		if err != nil {
			return nil, fmt.Errorf("decode item %s: %w", res.ID, err)
		}
		out = append(out, storedItem{id: res.ID, attrs: attrs})
	}
	return out, nil
}

func (e *Engine) getItem(tableName, id string) (map[string]types.AttributeValue, error) {
	res, err := e.Store.Get(id, serviceName, itemType(tableName), e.Namespace)
	if errors.Is(err, resource.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStored(res.Attributes)
}

func (e *Engine) putItem(tableName, id string, item map[string]types.AttributeValue) error {
	buf, err := json.Marshal(encodeItem(item))
	if err != nil {
		return err
	}
	return e.Store.Put(&resource.Resource{
		ID:         id,
		Namespace:  e.Namespace,
		Service:    serviceName,
		Type:       itemType(tableName),
		Attributes: buf,
	})
}

func decodeStored(buf []byte) (map[string]types.AttributeValue, error) {
	var w wireItem
	if err := json.Unmarshal(buf, &w); err != nil {
		return nil, err
	}
	return decodeItem(w)
}

// itemID derives the resource ID from the key attributes of item. With
// exact set, item must hold nothing but the key.
func itemID(desc *TableDescription, item map[string]types.AttributeValue, exact bool) (string, error) {
	hash, rng := desc.keyNames()
	names := []string{hash}
	if rng != "" {
		names = append(names, rng)
	}
	if exact && len(item) != len(names) {
		return "", fmt.Errorf("%w: the provided key does not match the table schema", ErrValidation)
	}

	parts := []string{desc.TableName}
	for _, n := range names {
		v, ok := item[n]
		if !ok {
			return "", fmt.Errorf("%w: missing key attribute %s", ErrValidation, n)
		}
		s, err := keyString(v)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	buf, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func keyOf(desc *TableDescription, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	hash, rng := desc.keyNames()
	key := map[string]types.AttributeValue{hash: item[hash]}
	if rng != "" {
		key[rng] = item[rng]
	}
	return key
}

func dropThrough(items []storedItem, before func(storedItem) bool) []storedItem {
	i := 0
	for i < len(items) && before(items[i]) {
		i++
	}
	return items[i:]
}

func limitPage(desc *TableDescription, items []storedItem, limit *int32) ([]storedItem, map[string]types.AttributeValue) {
	if limit == nil || *limit <= 0 || int(*limit) >= len(items) {
		return items, nil
	}
	page := items[:*limit]
	return page, keyOf(desc, page[len(page)-1].attrs)
}

// check evaluates an optional equality condition against the current item.
func (c exprContext) check(expr string, current map[string]types.AttributeValue) error {
	conds, err := c.parseConditions(expr)
	if err != nil {
		return err
	}
	if len(conds) > 0 && !matches(current, conds) {
		return ErrConditionFailed
	}
	return nil
}
