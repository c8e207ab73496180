// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"net/http"
	"time"

	"retailagent/internal/action"
	"retailagent/internal/api/dynamodb"
	"retailagent/internal/config"
	"retailagent/internal/db"
	"retailagent/internal/logging"
	"retailagent/internal/resource"
	"retailagent/internal/router"
	"retailagent/internal/sales"
	"retailagent/internal/seed"
	"retailagent/internal/storeops"
	"retailagent/internal/table"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad[config.Server]("")

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	var store resource.Store
	if cfg.DSN != "" {
		pg, err := db.Connect(cfg.DSN, logger)
		if err != nil {
			zap.L().Fatal("failed to connect to postgres", zap.Error(err))
		}
		store = resource.NewGormStore(pg)
	} else {
		zap.L().Warn("PG_DSN not set, tables are kept in memory")
		store = resource.NewMemStore()
	}

	engine := dynamodb.NewEngine(store, cfg.Namespace)
	if cfg.SeedFile != "" {
		if err := seed.Load(context.Background(), engine, cfg.SeedFile, logger); err != nil {
			zap.L().Fatal("failed to seed tables", zap.Error(err))
		}
	}

	invokers := map[string]action.Invoker{}
	if t := cfg.SalesTable; t.Enabled() {
		if err := t.Validate(); err != nil {
			zap.L().Fatal("invalid sales table", zap.Error(err))
		}
		svc := sales.New(table.New(engine, t.Name, t.PartitionKey, t.SortKey), logger)
		invokers["sales-forecast"] = action.NewDispatcher(sales.ParamCustomerID, logger, svc.Operations()...)
	}
	if t := cfg.StoreTable; t.Enabled() {
		if err := t.Validate(); err != nil {
			zap.L().Fatal("invalid store operations table", zap.Error(err))
		}
		svc := storeops.New(table.New(engine, t.Name, t.PartitionKey, t.SortKey), logger)
		invokers["store-operations"] = action.NewDispatcher(storeops.ParamStoreID, logger, svc.Operations()...)
	}

	srv := &http.Server{
		Addr:           cfg.Addr,
		Handler:        router.New(store, cfg.Namespace, invokers),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	zap.L().Info("server starting",
		zap.String("addr", cfg.Addr),
		zap.String("namespace", cfg.Namespace),
		zap.Int("action_groups", len(invokers)),
	)
	if err := srv.ListenAndServe(); err != nil {
		zap.L().Fatal("http server exited",
			zap.Error(err),
		)
	}
}
