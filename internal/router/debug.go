// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router

import (
	"net/http"
	"strings"
	"time"

	"retailagent/internal/api/dynamodb"
	"retailagent/internal/util"

	"go.uber.org/zap"
)

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
		rw.ResponseWriter.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// DebugLoggerMiddleware logs one line per request with the DynamoDB
// operation, if any, and the namespace it ran in.
func DebugLoggerMiddleware(next http.Handler, defaultNamespace string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(rw, r)

		status := rw.status
		if status == 0 {
			status = http.StatusOK
		}

		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("size", rw.size),
			zap.Duration("duration", time.Since(start)),
			zap.String("operation", strings.TrimPrefix(r.Header.Get("X-Amz-Target"), dynamodb.TargetPrefix)),
			zap.String("namespace", util.NamespaceFromHeader(r, defaultNamespace)),
			zap.String("access_key", AccessKeyFromContext(r.Context())),
		)
	})
}
