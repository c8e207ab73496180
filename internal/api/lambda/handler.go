// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package lambda serves the part of the Lambda REST API needed to list and
// invoke the action groups hosted by the devserver.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"retailagent/internal/action"
	"retailagent/internal/awsresponses"
	"retailagent/internal/util"

	"go.uber.org/zap"
)

const (
	APIPrefix     = "/2015-03-31/functions"
	lambdaRegion  = "us-east-1"
	lambdaAccount = "000000000000"
)

func functionArn(name string) string {
	return "arn:aws:lambda:" + lambdaRegion + ":" + lambdaAccount + ":function:" + name
}

// InvokeError is the payload of a failed invocation, shaped like the one
// the Go Lambda runtime reports.
type InvokeError struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

func NewInvokeError(err error) InvokeError {
	errorType := "Runtime.HandlerError"
	if errors.Is(err, action.ErrParameterNotFound) {
		errorType = "ParameterNotFound"
	}
	return InvokeError{ErrorMessage: err.Error(), ErrorType: errorType}
}

// FunctionConfiguration describes a hosted action group.
type FunctionConfiguration struct {
	FunctionName    string `json:"FunctionName"`
	FunctionArn     string `json:"FunctionArn"`
	Runtime         string `json:"Runtime"`
	Handler         string `json:"Handler"`
	PackageType     string `json:"PackageType"`
	Version         string `json:"Version"`
	State           string `json:"State"`
	StateReason     string `json:"StateReason"`
	StateReasonCode string `json:"StateReasonCode"`
}

type Handler struct {
	Functions map[string]action.Invoker
}

func NewHandler(functions map[string]action.Invoker) *Handler {
	return &Handler{Functions: functions}
}

func configuration(name string) FunctionConfiguration {
	return FunctionConfiguration{
		FunctionName:    name,
		FunctionArn:     functionArn(name),
		Runtime:         "provided.al2023",
		Handler:         "bootstrap",
		PackageType:     "Zip",
		Version:         "$LATEST",
		State:           "Active",
		StateReason:     "The function is ready.",
		StateReasonCode: "OK",
	}
}

// Dispatch routes REST requests below /2015-03-31/functions:
//
//	GET  /2015-03-31/functions/                    → ListFunctions
//	GET  /2015-03-31/functions/{name}              → GetFunction
//	POST /2015-03-31/functions/{name}/invocations  → Invoke
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, APIPrefix), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "" && r.Method == "GET":
		h.ListFunctions(w, r)
	case len(parts) == 1 && r.Method == "GET":
		h.GetFunction(w, r, functionName(parts[0]))
	case len(parts) == 2 && parts[1] == "invocations" && r.Method == "POST":
		h.Invoke(w, r, functionName(parts[0]))
	default:
		writeError(w, http.StatusNotFound, "UnknownOperationException",
			"Unknown Lambda operation: "+r.Method+" "+r.URL.Path)
	}
}

// functionName accepts a plain name, a qualified name or an ARN.
func functionName(s string) string {
	if i := strings.LastIndex(s, ":function:"); i >= 0 {
		s = s[i+len(":function:"):]
	}
	name, _, _ := strings.Cut(s, ":")
	return name
}

func (h *Handler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.Functions))
	for name := range h.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	functions := make([]FunctionConfiguration, 0, len(names))
	for _, name := range names {
		functions = append(functions, configuration(name))
	}

	awsresponses.WriteJSON(w, http.StatusOK, map[string]any{
		"Functions": functions,
	})
}

func (h *Handler) GetFunction(w http.ResponseWriter, r *http.Request, name string) {
	if _, ok := h.Functions[name]; !ok {
		writeError(w, http.StatusNotFound, "ResourceNotFoundException", "Function not found: "+functionArn(name))
		return
	}

	awsresponses.WriteJSON(w, http.StatusOK, map[string]any{
		"Configuration": configuration(name),
		"Tags":          map[string]string{},
	})
}

// Invoke runs the action group with the request body as event. Handler
// errors are reported in the payload with X-Amz-Function-Error set, as
// Lambda does.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request, name string) {
	fn, ok := h.Functions[name]
	if !ok {
		writeError(w, http.StatusNotFound, "ResourceNotFoundException", "Function not found: "+functionArn(name))
		return
	}

	var event action.Event
	if err := util.DecodeAWSJSON(r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequestContentException",
			"Could not parse request body into json: "+err.Error())
		return
	}

	switch r.Header.Get("X-Amz-Invocation-Type") {
	case "DryRun":
		w.WriteHeader(http.StatusNoContent)
		return
	case "Event":
		go func(ctx context.Context) {
			if _, err := fn.Handle(ctx, event); err != nil {
				zap.L().Warn("async invocation failed", zap.String("function", name), zap.Error(err))
			}
		}(context.WithoutCancel(r.Context()))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("X-Amz-Executed-Version", "$LATEST")
	resp, err := fn.Handle(r.Context(), event)
	if err != nil {
		w.Header().Set("X-Amz-Function-Error", "Unhandled")
		writePayload(w, NewInvokeError(err))
		return
	}
	writePayload(w, resp)
}

func writePayload(w http.ResponseWriter, v any) {
	awsresponses.WriteAWSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write invocation payload", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("X-Amzn-ErrorType", code)
	awsresponses.WriteJSON(w, status, map[string]any{
		"Type":    "User",
		"message": message,
	})
}
