// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package dynamodb

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"retailagent/internal/awsresponses"
	"retailagent/internal/resource"
	"retailagent/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	APIVersion    = "2012-08-10"
	TargetPrefix  = "DynamoDB_20120810."
	dynamoRegion  = "us-east-1"
	dynamoAccount = "000000000000"
)

type Handler struct {
	Store            resource.Store
	DefaultNamespace string
}

func NewHandler(store resource.Store, defaultNamespace string) *Handler {
	return &Handler{Store: store, DefaultNamespace: defaultNamespace}
}

// Build DynamoDB Table ARN
func tableArn(tableName string) string {
	return "arn:aws:dynamodb:" + dynamoRegion + ":" + dynamoAccount + ":table/" + tableName
}

func (h *Handler) engine(r *http.Request) *Engine {
	return NewEngine(h.Store, util.NamespaceFromHeader(r, h.DefaultNamespace))
}

// Dispatch handles DynamoDB JSON API requests
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")
	if target == "" {
		awsresponses.WriteJSONError(w, http.StatusBadRequest,
			"MissingAuthenticationTokenException", "Missing X-Amz-Target header")
		return
	}

	switch target {
	case TargetPrefix + "CreateTable":
		h.CreateTable(w, r)
	case TargetPrefix + "DescribeTable":
		h.DescribeTable(w, r)
	case TargetPrefix + "DeleteTable":
		h.DeleteTable(w, r)
	case TargetPrefix + "ListTables":
		h.ListTables(w, r)
	case TargetPrefix + "PutItem":
		h.PutItem(w, r)
	case TargetPrefix + "GetItem":
		h.GetItem(w, r)
	case TargetPrefix + "UpdateItem":
		h.UpdateItem(w, r)
	case TargetPrefix + "DeleteItem":
		h.DeleteItem(w, r)
	case TargetPrefix + "Query":
		h.Query(w, r)
	case TargetPrefix + "Scan":
		h.Scan(w, r)
	default:
		awsresponses.WriteJSONError(w, http.StatusBadRequest,
			"UnknownOperationException", "Unknown operation: "+target)
	}
}

// CreateTable creates a new DynamoDB table
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableInput
	if err := util.DecodeAWSJSON(r, &req); err != nil {
		writeSerializationError(w, err)
		return
	}

	desc, err := h.engine(r).CreateTable(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	zap.L().Debug("table created", zap.String("table", req.TableName))

	awsresponses.WriteJSON(w, http.StatusOK, CreateTableOutput{TableDescription: *desc})
}

// DescribeTable describes an existing DynamoDB table
func (h *Handler) DescribeTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableName string `json:"TableName"`
	}
	if err := util.DecodeAWSJSON(r, &req); err != nil {
		writeSerializationError(w, err)
		return
	}

	desc, err := h.engine(r).DescribeTable(r.Context(), req.TableName)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, DescribeTableOutput{Table: *desc})
}

// DeleteTable deletes a table and its items
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TableName string `json:"TableName"`
	}
	if err := util.DecodeAWSJSON(r, &req); err != nil {
		writeSerializationError(w, err)
		return
	}

	desc, err := h.engine(r).DeleteTable(r.Context(), req.TableName)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, DeleteTableOutput{TableDescription: *desc})
}

// ListTables lists table names, honouring ExclusiveStartTableName and Limit
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExclusiveStartTableName string `json:"ExclusiveStartTableName"`
		Limit                   int    `json:"Limit"`
	}
	if err := util.DecodeAWSJSON(r, &req); err != nil {
		writeSerializationError(w, err)
		return
	}

	names, err := h.engine(r).ListTables(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if req.ExclusiveStartTableName != "" {
		i := sort.SearchStrings(names, req.ExclusiveStartTableName)
		if i < len(names) && names[i] == req.ExclusiveStartTableName {
			i++
		}
		names = names[i:]
	}

	out := ListTablesOutput{TableNames: names}
	if req.Limit > 0 && len(names) > req.Limit {
		out.TableNames = names[:req.Limit]
		out.LastEvaluatedTableName = out.TableNames[req.Limit-1]
	}
	awsresponses.WriteJSON(w, http.StatusOK, out)
}

// PutItem adds or replaces an item
func (h *Handler) PutItem(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).PutItem(r.Context(), &ddb.PutItemInput{
		TableName:                 aws.String(req.TableName),
		Item:                      attrs.item,
		ConditionExpression:       req.ConditionExpression,
		ExpressionAttributeNames:  req.ExpressionAttributeNames,
		ExpressionAttributeValues: attrs.values,
		ReturnValues:              types.ReturnValue(req.ReturnValues),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, attributesOutput(out.Attributes))
}

// GetItem reads one item by its key
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).GetItem(r.Context(), &ddb.GetItemInput{
		TableName: aws.String(req.TableName),
		Key:       attrs.key,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	body := map[string]any{}
	if out.Item != nil {
		body["Item"] = encodeItem(out.Item)
	}
	awsresponses.WriteJSON(w, http.StatusOK, body)
}

// UpdateItem applies a SET update expression to one item
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).UpdateItem(r.Context(), &ddb.UpdateItemInput{
		TableName:                 aws.String(req.TableName),
		Key:                       attrs.key,
		UpdateExpression:          req.UpdateExpression,
		ConditionExpression:       req.ConditionExpression,
		ExpressionAttributeNames:  req.ExpressionAttributeNames,
		ExpressionAttributeValues: attrs.values,
		ReturnValues:              types.ReturnValue(req.ReturnValues),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, attributesOutput(out.Attributes))
}

// DeleteItem deletes one item by its key
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).DeleteItem(r.Context(), &ddb.DeleteItemInput{
		TableName:                 aws.String(req.TableName),
		Key:                       attrs.key,
		ConditionExpression:       req.ConditionExpression,
		ExpressionAttributeNames:  req.ExpressionAttributeNames,
		ExpressionAttributeValues: attrs.values,
		ReturnValues:              types.ReturnValue(req.ReturnValues),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, attributesOutput(out.Attributes))
}

// Query queries one partition of a table
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).Query(r.Context(), &ddb.QueryInput{
		TableName:                 aws.String(req.TableName),
		IndexName:                 req.IndexName,
		KeyConditionExpression:    req.KeyConditionExpression,
		FilterExpression:          req.FilterExpression,
		ExpressionAttributeNames:  req.ExpressionAttributeNames,
		ExpressionAttributeValues: attrs.values,
		ExclusiveStartKey:         attrs.startKey,
		Limit:                     req.Limit,
		ScanIndexForward:          req.ScanIndexForward,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, pageOutput(out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey))
}

// Scan reads every item of a table
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	req, attrs, ok := decodeItemRequest(w, r)
	if !ok {
		return
	}

	out, err := h.engine(r).Scan(r.Context(), &ddb.ScanInput{
		TableName:                 aws.String(req.TableName),
		IndexName:                 req.IndexName,
		FilterExpression:          req.FilterExpression,
		ExpressionAttributeNames:  req.ExpressionAttributeNames,
		ExpressionAttributeValues: attrs.values,
		ExclusiveStartKey:         attrs.startKey,
		Limit:                     req.Limit,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	awsresponses.WriteJSON(w, http.StatusOK, pageOutput(out.Items, out.Count, out.ScannedCount, out.LastEvaluatedKey))
}

// Helper functions

type requestAttrs struct {
	item, key, values, startKey map[string]types.AttributeValue
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (*itemRequest, requestAttrs, bool) {
	var req itemRequest
	var attrs requestAttrs
	if err := util.DecodeAWSJSON(r, &req); err != nil {
		writeSerializationError(w, err)
		return nil, attrs, false
	}

	var err error
	for _, conv := range []struct {
		in  wireItem
		out *map[string]types.AttributeValue
	}{
		{req.Item, &attrs.item},
		{req.Key, &attrs.key},
		{req.ExpressionAttributeValues, &attrs.values},
		{req.ExclusiveStartKey, &attrs.startKey},
	} {
		if *conv.out, err = decodeItem(conv.in); err != nil {
			writeEngineError(w, err)
			return nil, attrs, false
		}
	}
	return &req, attrs, true
}

func attributesOutput(attrs map[string]types.AttributeValue) map[string]any {
	out := map[string]any{}
	if attrs != nil {
		out["Attributes"] = encodeItem(attrs)
	}
	return out
}

func pageOutput(items []map[string]types.AttributeValue, count, scanned int32, last map[string]types.AttributeValue) map[string]any {
	out := map[string]any{
		"Items":        encodeItems(items),
		"Count":        count,
		"ScannedCount": scanned,
	}
	if last != nil {
		out["LastEvaluatedKey"] = encodeItem(last)
	}
	return out
}

func writeSerializationError(w http.ResponseWriter, err error) {
	awsresponses.WriteJSONError(w, http.StatusBadRequest,
		"SerializationException", "Invalid request body: "+err.Error())
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTableNotFound):
		awsresponses.WriteJSONError(w, http.StatusBadRequest,
			"ResourceNotFoundException", "Requested resource not found: "+err.Error())
	case errors.Is(err, ErrTableExists):
		awsresponses.WriteJSONError(w, http.StatusBadRequest, "ResourceInUseException", err.Error())
	case errors.Is(err, ErrConditionFailed):
		awsresponses.WriteJSONError(w, http.StatusBadRequest, "ConditionalCheckFailedException", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnsupported):
		awsresponses.WriteJSONError(w, http.StatusBadRequest, "ValidationException", err.Error())
	default:
		zap.L().Error("dynamodb request failed", zap.Error(err))
		awsresponses.WriteJSONError(w, http.StatusInternalServerError, "InternalServerError", err.Error())
	}
}

func buildProvisionedThroughputDesc(pt *ProvisionedThroughput) *ProvisionedThroughputDescription {
	if pt == nil {
		return &ProvisionedThroughputDescription{
			ReadCapacityUnits:  5,
			WriteCapacityUnits: 5,
		}
	}
	return &ProvisionedThroughputDescription{
		ReadCapacityUnits:  pt.ReadCapacityUnits,
		WriteCapacityUnits: pt.WriteCapacityUnits,
	}
}

func buildBillingModeSummary(mode string) *BillingModeSummary {
	if mode == "" {
		mode = "PROVISIONED"
	}
	bms := &BillingModeSummary{
		BillingMode: mode,
	}
	if mode == "PAY_PER_REQUEST" {
		bms.LastUpdateToPayPerRequestDateTime = float64(time.Now().UTC().Unix())
	}
	return bms
}
