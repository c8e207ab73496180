// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "identity"

// SigV4Middleware records the access key of signed requests. Signatures
// are not verified.
func SigV4Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := accessKey(r.Header.Get("Authorization")); key != "" {
			r = r.WithContext(context.WithValue(r.Context(), identityKey, key))
		}

		// Always allow
		next.ServeHTTP(w, r)
	})
}

func AccessKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(identityKey).(string)
	return key
}

// accessKey extracts AKID from
// "AWS4-HMAC-SHA256 Credential=AKID/20240101/us-east-1/dynamodb/aws4_request, ...".
func accessKey(auth string) string {
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256") {
		return ""
	}
	_, cred, ok := strings.Cut(auth, "Credential=")
	if !ok {
		return ""
	}
	key, _, _ := strings.Cut(cred, "/")
	return strings.TrimSpace(key)
}
