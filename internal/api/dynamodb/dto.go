// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb

// Tag represents a DynamoDB tag
type Tag struct {
	Key   string `json:"Key" yaml:"key"`
	Value string `json:"Value" yaml:"value"`
}

// AttributeDefinition defines an attribute for the table
type AttributeDefinition struct {
	AttributeName string `json:"AttributeName" yaml:"name"`
	AttributeType string `json:"AttributeType" yaml:"type"` // S, N, B
}

// KeySchemaElement defines key schema
type KeySchemaElement struct {
	AttributeName string `json:"AttributeName" yaml:"name"`
	KeyType       string `json:"KeyType" yaml:"type"` // HASH, RANGE
}

// ProvisionedThroughput defines throughput settings
type ProvisionedThroughput struct {
	ReadCapacityUnits  int64 `json:"ReadCapacityUnits"`
	WriteCapacityUnits int64 `json:"WriteCapacityUnits"`
}

// ProvisionedThroughputDescription describes throughput
type ProvisionedThroughputDescription struct {
	ReadCapacityUnits      int64 `json:"ReadCapacityUnits"`
	WriteCapacityUnits     int64 `json:"WriteCapacityUnits"`
	NumberOfDecreasesToday int64 `json:"NumberOfDecreasesToday"`
}

// BillingModeSummary describes billing mode
type BillingModeSummary struct {
	BillingMode                       string  `json:"BillingMode"`
	LastUpdateToPayPerRequestDateTime float64 `json:"LastUpdateToPayPerRequestDateTime,omitempty"`
}

// TableDescription describes a DynamoDB table
type TableDescription struct {
	TableName             string                            `json:"TableName"`
	TableArn              string                            `json:"TableArn"`
	TableId               string                            `json:"TableId"`
	TableStatus           string                            `json:"TableStatus"`
	CreationDateTime      float64                           `json:"CreationDateTime"`
	AttributeDefinitions  []AttributeDefinition             `json:"AttributeDefinitions"`
	KeySchema             []KeySchemaElement                `json:"KeySchema"`
	ProvisionedThroughput *ProvisionedThroughputDescription `json:"ProvisionedThroughput,omitempty"`
	BillingModeSummary    *BillingModeSummary               `json:"BillingModeSummary,omitempty"`
	ItemCount             int64                             `json:"ItemCount"`
	TableSizeBytes        int64                             `json:"TableSizeBytes"`
}

// CreateTableInput is the input for CreateTable
type CreateTableInput struct {
	TableName             string                 `json:"TableName" yaml:"name"`
	AttributeDefinitions  []AttributeDefinition  `json:"AttributeDefinitions" yaml:"attributes"`
	KeySchema             []KeySchemaElement     `json:"KeySchema" yaml:"keys"`
	ProvisionedThroughput *ProvisionedThroughput `json:"ProvisionedThroughput,omitempty" yaml:"-"`
	BillingMode           string                 `json:"BillingMode,omitempty" yaml:"billing_mode"`
	Tags                  []Tag                  `json:"Tags,omitempty" yaml:"tags"`
}

// CreateTableOutput is the output for CreateTable
type CreateTableOutput struct {
	TableDescription TableDescription `json:"TableDescription"`
}

// DescribeTableOutput is the output for DescribeTable
type DescribeTableOutput struct {
	Table TableDescription `json:"Table"`
}

// DeleteTableOutput is the output for DeleteTable
type DeleteTableOutput struct {
	TableDescription TableDescription `json:"TableDescription"`
}

// ListTablesOutput is the output for ListTables
type ListTablesOutput struct {
	TableNames             []string `json:"TableNames"`
	LastEvaluatedTableName string   `json:"LastEvaluatedTableName,omitempty"`
}

// itemRequest is the union of the item operation request bodies.
type itemRequest struct {
	TableName                 string            `json:"TableName"`
	IndexName                 *string           `json:"IndexName,omitempty"`
	Item                      wireItem          `json:"Item,omitempty"`
	Key                       wireItem          `json:"Key,omitempty"`
	KeyConditionExpression    *string           `json:"KeyConditionExpression,omitempty"`
	FilterExpression          *string           `json:"FilterExpression,omitempty"`
	UpdateExpression          *string           `json:"UpdateExpression,omitempty"`
	ConditionExpression       *string           `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues wireItem          `json:"ExpressionAttributeValues,omitempty"`
	ExclusiveStartKey         wireItem          `json:"ExclusiveStartKey,omitempty"`
	Limit                     *int32            `json:"Limit,omitempty"`
	ScanIndexForward          *bool             `json:"ScanIndexForward,omitempty"`
	ReturnValues              string            `json:"ReturnValues,omitempty"`
}

