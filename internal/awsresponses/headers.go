// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package awsresponses

import (
	"net/http"
	"time"
)

func WriteAWSHeaders(w http.ResponseWriter) {
	h := w.Header()

	h.Set("Server", "Server")
	// AWS expects GMT, not UTC. RFC1123 uses UTC, so we format manually with GMT
	h.Set("Date", time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	h.Set("X-Amzn-RequestId", NextRequestID())
}
