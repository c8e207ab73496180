// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package router

import (
	"net/http"

	"retailagent/internal/action"
	"retailagent/internal/api/dynamodb"
	"retailagent/internal/api/lambda"
	"retailagent/internal/resource"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// New routes the local table service and the action group invoke
// endpoints:
//
//	POST /                     → DynamoDB JSON API
//	POST /dynamodb             → DynamoDB JSON API
//	POST /invoke/:group        → run the action group named group
//	*    /2015-03-31/functions → Lambda API over the same action groups
//	GET  /health               → liveness
//
// Requests without a namespace use defaultNamespace.
func New(store resource.Store, defaultNamespace string, invokers map[string]action.Invoker) http.Handler {
	mux := http.NewServeMux()

	dynamoh := dynamodb.NewHandler(store, defaultNamespace)
	lambdah := lambda.NewHandler(invokers)

	// Apply middleware
	handler := SigV4Middleware(DebugLoggerMiddleware(mux, defaultNamespace))

	dynamoRoute := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			dynamoh.Dispatch(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		dynamoRoute(w, r)
	})
	mux.HandleFunc("/dynamodb", dynamoRoute)
	mux.HandleFunc("/dynamodb/", dynamoRoute)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("/invoke/", newInvokeServer(invokers))

	// Lambda routes
	mux.HandleFunc(lambda.APIPrefix, lambdah.Dispatch)
	mux.HandleFunc(lambda.APIPrefix+"/", lambdah.Dispatch)

	return handler
}

func newInvokeServer(invokers map[string]action.Invoker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.POST("/invoke/:group", func(c echo.Context) error {
		group := c.Param("group")
		inv, ok := invokers[group]
		if !ok {
			return c.JSON(http.StatusNotFound, lambda.InvokeError{
				ErrorMessage: "unknown action group: " + group,
				ErrorType:    "ResourceNotFoundException",
			})
		}

		var event action.Event
		if err := c.Bind(&event); err != nil {
			return c.JSON(http.StatusBadRequest, lambda.InvokeError{
				ErrorMessage: err.Error(),
				ErrorType:    "InvalidRequestContentException",
			})
		}

		resp, err := inv.Handle(c.Request().Context(), event)
		if err != nil {
			zap.L().Warn("invocation failed", zap.String("group", group), zap.Error(err))
			return c.JSON(http.StatusBadRequest, lambda.NewInvokeError(err))
		}
		return c.JSON(http.StatusOK, resp)
	})

	return e
}
