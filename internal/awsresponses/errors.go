// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package awsresponses

import (
	"net/http"
)

// ErrorPrefix qualifies error types the way the DynamoDB JSON protocol does.
const ErrorPrefix = "com.amazonaws.dynamodb.v20120810#"

// JSONError is the AWS JSON 1.0 protocol error body
type JSONError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// WriteJSONError writes an AWS JSON protocol error. The SDKs read the error
// code from the part of __type after the '#'.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) error {
	w.Header().Set("X-Amzn-ErrorType", code)
	return WriteJSON(w, status, JSONError{
		Type:    ErrorPrefix + code,
		Message: message,
	})
}
