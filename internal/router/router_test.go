// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"retailagent/internal/action"
	"retailagent/internal/api/dynamodb"
	"retailagent/internal/api/lambda"
	"retailagent/internal/resource"
	"retailagent/internal/router"
	"retailagent/internal/storeops"
	"retailagent/internal/table"

	"go.uber.org/zap"
)

type MockStore struct {
	data map[string]resource.Resource
}

func NewMockStore() *MockStore { return &MockStore{data: map[string]resource.Resource{}} }

func key(r *resource.Resource) string {
	return r.Namespace + "|" + r.Service + "|" + r.Type + "|" + r.ID
}

func (m *MockStore) Create(r *resource.Resource) error {
	m.data[key(r)] = *r
	return nil
}

func (m *MockStore) Update(r *resource.Resource) error {
	m.data[key(r)] = *r
	return nil
}

func (m *MockStore) Put(r *resource.Resource) error {
	m.data[key(r)] = *r
	return nil
}

func (m *MockStore) Get(id, service, typ, namespace string) (*resource.Resource, error) {
	r, ok := m.data[namespace+"|"+service+"|"+typ+"|"+id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	return &r, nil
}

func (m *MockStore) List(service, typ, namespace string) ([]resource.Resource, error) {
	var out []resource.Resource
	for _, v := range m.data {
		if v.Service == service && v.Type == typ && v.Namespace == namespace {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStore) Delete(id, service, typ, namespace string) error {
	delete(m.data, namespace+"|"+service+"|"+typ+"|"+id)
	return nil
}

// ───────────────────────────────────────────────────────────
// ROUTING TESTS
// ───────────────────────────────────────────────────────────

func dynamoRequest(path, op, body string) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("X-Amz-Target", dynamodb.TargetPrefix+op)
	req.Header.Set("Content-Type", "application/x-amz-json-1.0")
	return req
}

func TestRouter_DynamoDBRoutes(t *testing.T) {
	h := router.New(NewMockStore(), "default", nil)

	for _, path := range []string{"/", "/dynamodb"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, dynamoRequest(path, "ListTables", `{}`))

		if rec.Code != 200 {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"TableNames":[]`) {
			t.Fatalf("%s: unexpected body %s", path, rec.Body.String())
		}
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := router.New(NewMockStore(), "default", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/dynamodb", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRouter_NamespaceHeader(t *testing.T) {
	h := router.New(NewMockStore(), "default", nil)

	create := dynamoRequest("/", "CreateTable",
		`{"TableName":"store_operations","KeySchema":[{"AttributeName":"customer_id","KeyType":"HASH"}]}`)
	create.Header.Set("X-Namespace", "team-a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, create)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, dynamoRequest("/", "DescribeTable", `{"TableName":"store_operations"}`))
	if rec.Code != 400 {
		t.Fatalf("table must not be visible in the default namespace, got %d", rec.Code)
	}
}

func newInvokers(t *testing.T, store resource.Store) map[string]action.Invoker {
	t.Helper()
	engine := dynamodb.NewEngine(store, "default")
	_, err := engine.CreateTable(context.Background(), dynamodb.CreateTableInput{
		TableName: "store_operations",
		KeySchema: []dynamodb.KeySchemaElement{
			{AttributeName: "customer_id", KeyType: "HASH"},
			{AttributeName: "item_id", KeyType: "RANGE"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := storeops.New(table.New(engine, "store_operations", "customer_id", "item_id"), zap.NewNop())
	return map[string]action.Invoker{
		"store-operations": action.NewDispatcher(storeops.ParamStoreID, zap.NewNop(), svc.Operations()...),
	}
}

func invoke(h http.Handler, group, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/invoke/"+group, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Invoke(t *testing.T) {
	store := NewMockStore()
	h := router.New(store, "default", newInvokers(t, store))

	rec := invoke(h, "store-operations", `{
		"actionGroup": "store-operations",
		"function": "redistribute_staffing",
		"parameters": [
			{"name": "store_id", "type": "string", "value": "1"},
			{"name": "department_id", "type": "string", "value": "deli"},
			{"name": "staffing", "type": "string", "value": "6"}
		]
	}`)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp action.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Body() != "Department deli has been updated. New staffing level: 6" {
		t.Fatalf("unexpected body %q", resp.Body())
	}

	// the write is visible through the table service
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, dynamoRequest("/", "GetItem",
		`{"TableName":"store_operations","Key":{"customer_id":{"S":"1"},"item_id":{"S":"deli"}}}`))
	if !strings.Contains(rec.Body.String(), `"staffing":{"S":"6"}`) {
		t.Fatalf("expected updated staffing, got %s", rec.Body.String())
	}
}

func TestRouter_InvokeErrors(t *testing.T) {
	store := NewMockStore()
	h := router.New(store, "default", newInvokers(t, store))

	rec := invoke(h, "sales-forecast", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown group, got %d", rec.Code)
	}

	rec = invoke(h, "store-operations", `{"function":"detect_peak_traffic","parameters":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing parameter, got %d", rec.Code)
	}
	var body lambda.InvokeError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ErrorType != "ParameterNotFound" {
		t.Fatalf("unexpected error type %q", body.ErrorType)
	}

	rec = invoke(h, "store-operations", `{"function":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestSigV4Middleware_RecordsAccessKey(t *testing.T) {
	var got string
	h := router.SigV4Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = router.AccessKeyFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20231115/us-east-1/dynamodb/aws4_request, SignedHeaders=host, Signature=abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "AKIDEXAMPLE" {
		t.Fatalf("expected AKIDEXAMPLE, got %q", got)
	}
}

func TestRouter_LambdaInvoke(t *testing.T) {
	store := NewMockStore()
	h := router.New(store, "default", newInvokers(t, store))

	req := httptest.NewRequest("POST", "/2015-03-31/functions/store-operations/invocations", strings.NewReader(
		`{"actionGroup":"store-operations","function":"detect_inefficient_processes","parameters":[{"name":"store_id","value":"1"}]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp action.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Body() != "[]" {
		t.Fatalf("unexpected body %q", resp.Body())
	}
}
