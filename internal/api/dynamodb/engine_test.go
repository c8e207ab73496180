// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb_test

import (
	"context"
	"testing"

	"retailagent/internal/api/dynamodb"
	"retailagent/internal/resource"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func newSalesEngine(t *testing.T) *dynamodb.Engine {
	t.Helper()
	e := dynamodb.NewEngine(resource.NewMemStore(), "default")
	_, err := e.CreateTable(context.Background(), dynamodb.CreateTableInput{
		TableName: "sales",
		AttributeDefinitions: []dynamodb.AttributeDefinition{
			{AttributeName: "customer_id", AttributeType: "S"},
			{AttributeName: "day", AttributeType: "S"},
		},
		KeySchema: []dynamodb.KeySchemaElement{
			{AttributeName: "customer_id", KeyType: "HASH"},
			{AttributeName: "day", KeyType: "RANGE"},
		},
		BillingMode: "PAY_PER_REQUEST",
	})
	require.NoError(t, err)
	return e
}

func put(t *testing.T, e *dynamodb.Engine, item map[string]types.AttributeValue) {
	t.Helper()
	_, err := e.PutItem(context.Background(), &ddb.PutItemInput{
		TableName: aws.String("sales"),
		Item:      item,
	})
	require.NoError(t, err)
}

func TestEngine_CreateTable(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)

	_, err := e.CreateTable(ctx, dynamodb.CreateTableInput{
		TableName: "sales",
		KeySchema: []dynamodb.KeySchemaElement{{AttributeName: "customer_id", KeyType: "HASH"}},
	})
	require.ErrorIs(t, err, dynamodb.ErrTableExists)

	_, err = e.CreateTable(ctx, dynamodb.CreateTableInput{TableName: "nokeys"})
	require.ErrorIs(t, err, dynamodb.ErrValidation)

	desc, err := e.DescribeTable(ctx, "sales")
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", desc.TableStatus)
	require.Equal(t, "arn:aws:dynamodb:us-east-1:000000000000:table/sales", desc.TableArn)
	require.Equal(t, "PAY_PER_REQUEST", desc.BillingModeSummary.BillingMode)
	require.Nil(t, desc.ProvisionedThroughput)

	names, err := e.ListTables(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"sales"}, names)

	_, err = e.DescribeTable(ctx, "missing")
	require.ErrorIs(t, err, dynamodb.ErrTableNotFound)
}

func TestEngine_NamespacesAreIsolated(t *testing.T) {
	store := resource.NewMemStore()
	a := dynamodb.NewEngine(store, "a")
	b := dynamodb.NewEngine(store, "b")

	_, err := a.CreateTable(context.Background(), dynamodb.CreateTableInput{
		TableName: "sales",
		KeySchema: []dynamodb.KeySchemaElement{{AttributeName: "customer_id", KeyType: "HASH"}},
	})
	require.NoError(t, err)

	_, err = b.DescribeTable(context.Background(), "sales")
	require.ErrorIs(t, err, dynamodb.ErrTableNotFound)
}

func TestEngine_PutGetReplace(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)

	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13"), "sales": n("100")})
	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13"), "sales": n("250.5")})

	out, err := e.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String("sales"),
		Key:       map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13")},
	})
	require.NoError(t, err)
	require.Equal(t, n("250.5"), out.Item["sales"])

	missing, err := e.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String("sales"),
		Key:       map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-14")},
	})
	require.NoError(t, err)
	require.Nil(t, missing.Item)

	_, err = e.PutItem(ctx, &ddb.PutItemInput{
		TableName: aws.String("sales"),
		Item:      map[string]types.AttributeValue{"customer_id": s("1")},
	})
	require.ErrorIs(t, err, dynamodb.ErrValidation)
}

func TestEngine_QueryOrderFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)

	for _, day := range []string{"2023-11-15", "2023-11-13", "2023-11-14"} {
		put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s(day), "month": n("11")})
	}
	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-12-01"), "month": n("12")})
	put(t, e, map[string]types.AttributeValue{"customer_id": s("2"), "day": s("2023-11-13"), "month": n("11")})

	in := &ddb.QueryInput{
		TableName:                 aws.String("sales"),
		KeyConditionExpression:    aws.String("#0 = :0"),
		FilterExpression:          aws.String("#1 = :1"),
		ExpressionAttributeNames:  map[string]string{"#0": "customer_id", "#1": "month"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":0": s("1"), ":1": n("11.0")},
	}
	out, err := e.Query(ctx, in)
	require.NoError(t, err)
	require.Equal(t, int32(3), out.Count)
	require.Equal(t, int32(4), out.ScannedCount)
	require.Equal(t, s("2023-11-13"), out.Items[0]["day"])
	require.Equal(t, s("2023-11-15"), out.Items[2]["day"])
	require.Nil(t, out.LastEvaluatedKey)

	in.Limit = aws.Int32(2)
	first, err := e.Query(ctx, in)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, s("2023-11-14"), first.LastEvaluatedKey["day"])

	in.ExclusiveStartKey = first.LastEvaluatedKey
	second, err := e.Query(ctx, in)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, s("2023-11-15"), second.Items[0]["day"])
	require.Equal(t, int32(2), second.ScannedCount)

	none, err := e.Query(ctx, &ddb.QueryInput{
		TableName:                 aws.String("sales"),
		KeyConditionExpression:    aws.String("customer_id = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": s("3")},
	})
	require.NoError(t, err)
	require.NotNil(t, none.Items)
	require.Empty(t, none.Items)
}

func TestEngine_QueryRejects(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)

	_, err := e.Query(ctx, &ddb.QueryInput{
		TableName:                 aws.String("sales"),
		KeyConditionExpression:    aws.String("#d = :d"),
		ExpressionAttributeNames:  map[string]string{"#d": "day"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":d": s("2023-11-13")},
	})
	require.ErrorIs(t, err, dynamodb.ErrValidation)

	_, err = e.Query(ctx, &ddb.QueryInput{
		TableName:                 aws.String("sales"),
		KeyConditionExpression:    aws.String("customer_id = :c AND day > :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":c": s("1"), ":d": s("2023")},
	})
	require.ErrorIs(t, err, dynamodb.ErrUnsupported)

	_, err = e.Query(ctx, &ddb.QueryInput{
		TableName:              aws.String("missing"),
		KeyConditionExpression: aws.String("customer_id = :c"),
	})
	require.ErrorIs(t, err, dynamodb.ErrTableNotFound)
}

func TestEngine_UpdateItem(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)
	key := map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13")}

	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13"), "sales": n("10"), "month": n("11")})

	out, err := e.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                 aws.String("sales"),
		Key:                       key,
		UpdateExpression:          aws.String("SET #0 = :0\n"),
		ExpressionAttributeNames:  map[string]string{"#0": "sales"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":0": n("42")},
		ReturnValues:              types.ReturnValueAllNew,
	})
	require.NoError(t, err)
	require.Equal(t, n("42"), out.Attributes["sales"])
	require.Equal(t, n("11"), out.Attributes["month"])

	// updating an absent item creates it from the key
	created, err := e.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                 aws.String("sales"),
		Key:                       map[string]types.AttributeValue{"customer_id": s("9"), "day": s("2024-01-01")},
		UpdateExpression:          aws.String("SET sales = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": n("1")},
		ReturnValues:              types.ReturnValueAllNew,
	})
	require.NoError(t, err)
	require.Len(t, created.Attributes, 3)

	_, err = e.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                 aws.String("sales"),
		Key:                       key,
		UpdateExpression:          aws.String("SET day = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": s("2023-11-14")},
	})
	require.ErrorIs(t, err, dynamodb.ErrValidation)

	_, err = e.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:        aws.String("sales"),
		Key:              key,
		UpdateExpression: aws.String("REMOVE sales"),
	})
	require.ErrorIs(t, err, dynamodb.ErrUnsupported)
}

func TestEngine_ConditionAndDelete(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)
	key := map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13")}
	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13"), "sales": n("10")})

	_, err := e.DeleteItem(ctx, &ddb.DeleteItemInput{
		TableName:                 aws.String("sales"),
		Key:                       key,
		ConditionExpression:       aws.String("sales = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": n("11")},
	})
	require.ErrorIs(t, err, dynamodb.ErrConditionFailed)

	out, err := e.DeleteItem(ctx, &ddb.DeleteItemInput{
		TableName:                 aws.String("sales"),
		Key:                       key,
		ConditionExpression:       aws.String("sales = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": n("10.00")},
		ReturnValues:              types.ReturnValueAllOld,
	})
	require.NoError(t, err)
	require.Equal(t, n("10"), out.Attributes["sales"])

	scan, err := e.Scan(ctx, &ddb.ScanInput{TableName: aws.String("sales")})
	require.NoError(t, err)
	require.Zero(t, scan.Count)
}

func TestEngine_DeleteTableDropsItems(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)
	put(t, e, map[string]types.AttributeValue{"customer_id": s("1"), "day": s("2023-11-13")})

	desc, err := e.DeleteTable(ctx, "sales")
	require.NoError(t, err)
	require.Equal(t, "DELETING", desc.TableStatus)

	left, err := e.Store.List("dynamodb", "item:sales", "default")
	require.NoError(t, err)
	require.Empty(t, left)

	_, err = e.DeleteTable(ctx, "sales")
	require.ErrorIs(t, err, dynamodb.ErrTableNotFound)
}

func TestEngine_ScanPaging(t *testing.T) {
	ctx := context.Background()
	e := newSalesEngine(t)
	for _, id := range []string{"1", "2", "3"} {
		put(t, e, map[string]types.AttributeValue{"customer_id": s(id), "day": s("2023-11-13")})
	}

	first, err := e.Scan(ctx, &ddb.ScanInput{TableName: aws.String("sales"), Limit: aws.Int32(2)})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.LastEvaluatedKey)

	rest, err := e.Scan(ctx, &ddb.ScanInput{
		TableName:         aws.String("sales"),
		Limit:             aws.Int32(2),
		ExclusiveStartKey: first.LastEvaluatedKey,
	})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.Nil(t, rest.LastEvaluatedKey)
}
