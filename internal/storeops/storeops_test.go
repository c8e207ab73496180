// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storeops_test

import (
	"context"
	"errors"
	"testing"

	"retailagent/internal/action"
	"retailagent/internal/api/dynamodb"
	"retailagent/internal/resource"
	"retailagent/internal/storeops"
	"retailagent/internal/table"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTable(t *testing.T) *table.Table {
	t.Helper()
	engine := dynamodb.NewEngine(resource.NewMemStore(), "default")
	_, err := engine.CreateTable(context.Background(), dynamodb.CreateTableInput{
		TableName: "store_operations",
		KeySchema: []dynamodb.KeySchemaElement{
			{AttributeName: "customer_id", KeyType: "HASH"},
			{AttributeName: "item_id", KeyType: "RANGE"},
		},
	})
	require.NoError(t, err)

	tbl := table.New(engine, "store_operations", "customer_id", "item_id")
	for _, rec := range []struct {
		store, item string
		attrs       map[string]any
	}{
		{"1", "bakery", map[string]any{"peak": "True", "staffing": "3", "hours": "06-10"}},
		{"1", "deli", map[string]any{"peak": "False", "staffing": "4"}},
		{"1", "returns-audit", map[string]any{"essential": "False", "owner": "front-desk"}},
		{"1", "restock", map[string]any{"essential": "True"}},
		{"2", "bakery", map[string]any{"peak": "True"}},
	} {
		require.NoError(t, tbl.Put(context.Background(), table.Key{Partition: rec.store, Sort: rec.item}, rec.attrs))
	}
	return tbl
}

func TestPeakTraffic(t *testing.T) {
	svc := storeops.New(newTable(t), zap.NewNop())

	out := svc.PeakTraffic(context.Background(), "1")
	require.JSONEq(t, `[{"customer_id":"1","item_id":"bakery","peak":"True","staffing":"3","hours":"06-10"}]`, out)

	require.Equal(t, "[]", svc.PeakTraffic(context.Background(), "3"))
}

func TestInefficientProcesses(t *testing.T) {
	svc := storeops.New(newTable(t), zap.NewNop())

	out := svc.InefficientProcesses(context.Background(), "1")
	require.JSONEq(t, `[{"customer_id":"1","item_id":"returns-audit","essential":"False","owner":"front-desk"}]`, out)
}

func TestRedistributeStaffing(t *testing.T) {
	tbl := newTable(t)
	svc := storeops.New(tbl, zap.NewNop())
	ctx := context.Background()

	msg := svc.RedistributeStaffing(ctx, "1", "bakery", "5")
	require.Equal(t, "Department bakery has been updated. New staffing level: 5", msg)

	out := svc.PeakTraffic(ctx, "1")
	require.JSONEq(t, `[{"customer_id":"1","item_id":"bakery","peak":"True","staffing":"5","hours":"06-10"}]`, out)

	// any value is stored as received
	msg = svc.RedistributeStaffing(ctx, "1", "garden", "a few")
	require.Equal(t, "Department garden has been updated. New staffing level: a few", msg)

	records, err := tbl.Query(ctx, table.Query{Partition: "1", Sort: "garden"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	staffing, ok := records[0].String("staffing")
	require.True(t, ok)
	require.Equal(t, "a few", staffing)
}

type brokenClient struct{ table.Client }

func (brokenClient) Query(context.Context, *ddb.QueryInput, ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	return nil, errors.New("access denied")
}

func (brokenClient) UpdateItem(context.Context, *ddb.UpdateItemInput, ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	return nil, errors.New("access denied")
}

func TestStoreFailures(t *testing.T) {
	svc := storeops.New(table.New(brokenClient{}, "store_operations", "customer_id", "item_id"), zap.NewNop())
	ctx := context.Background()

	require.Equal(t, "Error querying table: store_operations", svc.PeakTraffic(ctx, "1"))
	require.Equal(t, "Error querying table: store_operations", svc.InefficientProcesses(ctx, "1"))
	require.Equal(t, "Error updating table: store_operations", svc.RedistributeStaffing(ctx, "1", "deli", "2"))
}

func TestOperations_ThroughDispatcher(t *testing.T) {
	svc := storeops.New(newTable(t), zap.NewNop())
	d := action.NewDispatcher(storeops.ParamStoreID, zap.NewNop(), svc.Operations()...)

	resp, err := d.Handle(context.Background(), action.Event{
		ActionGroup: "store-operations",
		Function:    "redistribute_staffing",
		Parameters: []action.Parameter{
			{Name: "store_id", Type: "string", Value: "1"},
			{Name: "department_id", Type: "string", Value: "deli"},
			{Name: "staffing", Type: "string", Value: "8"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Department deli has been updated. New staffing level: 8", resp.Body())

	resp, err = d.Handle(context.Background(), action.Event{
		ActionGroup: "store-operations",
		Function:    "foo",
		Parameters:  []action.Parameter{{Name: "store_id", Value: "1"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Error, function 'foo' not recognized", resp.Body())
}
