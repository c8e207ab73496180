// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"context"

	"retailagent/internal/action"
	"retailagent/internal/config"
	"retailagent/internal/logging"
	"retailagent/internal/sales"
	"retailagent/internal/table"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad[config.Handler]("")

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	client, err := table.NewClient(context.Background(), cfg.Endpoint)
	if err != nil {
		zap.L().Fatal("failed to create dynamodb client", zap.Error(err))
	}

	svc := sales.New(table.New(client, cfg.Name, cfg.PartitionKey, cfg.SortKey), logger)
	dispatcher := action.NewDispatcher(sales.ParamCustomerID, logger, svc.Operations()...)

	lambda.Start(dispatcher.Handle)
}
