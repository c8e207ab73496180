// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package util

import (
	"net/http"
	"strings"
)

// NamespaceHeader lets a caller pick the namespace its tables live in.
const NamespaceHeader = "X-Namespace"

// NamespaceFromHeader resolves the namespace of a request from the
// X-Namespace header, then from a trailing "custom-<ns>" User-Agent token
// (AWS_SDK_UA_APP_ID style), and finally falls back to fallback.
func NamespaceFromHeader(r *http.Request, fallback string) string {
	if ns := strings.TrimSpace(r.Header.Get(NamespaceHeader)); ns != "" {
		return ns
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent != "" {
		// We want the last token after the last space
		parts := strings.Fields(userAgent)
		if len(parts) > 0 {
			lastPart := parts[len(parts)-1]
			if strings.HasPrefix(lastPart, "custom-") {
				return strings.TrimPrefix(lastPart, "custom-")
			}
		}
	}

	if fallback == "" {
		return "default"
	}
	return fallback
}
