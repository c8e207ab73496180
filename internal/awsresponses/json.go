// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package awsresponses

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	WriteAWSHeaders(w)
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")

	w.WriteHeader(status)

	// IMPORTANT: no Content-Length, no double writers
	return json.NewEncoder(w).Encode(v)
}
