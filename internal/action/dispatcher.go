// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package action

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Args holds the extra parameters an operation declared, by name.
type Args map[string]string

// Operation is one function an action group exposes. Params lists the
// parameters required besides the identifier.
type Operation struct {
	Name   string
	Params []string
	Run    func(ctx context.Context, id string, args Args) string
}

// Dispatcher routes events to operations by function name.
type Dispatcher struct {
	idParam string
	ops     map[string]Operation
	log     *zap.Logger
}

func NewDispatcher(idParam string, log *zap.Logger, ops ...Operation) *Dispatcher {
	d := &Dispatcher{
		idParam: idParam,
		ops:     make(map[string]Operation, len(ops)),
		log:     log,
	}
	for _, op := range ops {
		d.ops[op.Name] = op
	}
	return d
}

// Handle runs the operation named by event.Function. A missing parameter
// fails the invocation; an unknown function is answered in the envelope.
func (d *Dispatcher) Handle(ctx context.Context, event Event) (Response, error) {
	log := d.log.With(zap.String("invocation_id", uuid.NewString()))
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("aws_request_id", lc.AwsRequestID))
	}
	log.Info("invocation received", zap.Object("event", event))

	id, err := event.Lookup(d.idParam)
	if err != nil {
		log.Error("invocation failed", zap.Error(err))
		return Response{}, err
	}

	var body string
	op, ok := d.ops[event.Function]
	if !ok {
		body = fmt.Sprintf("Error, function '%s' not recognized", event.Function)
	} else {
		args := make(Args, len(op.Params))
		for _, name := range op.Params {
			v, err := event.Lookup(name)
			if err != nil {
				log.Error("invocation failed", zap.Error(err))
				return Response{}, err
			}
			args[name] = v
		}
		body = op.Run(ctx, id, args)
	}

	resp := NewResponse(event, body)
	log.Info("invocation answered", zap.Object("response", resp))
	return resp, nil
}

// Invoker runs an action group. *Dispatcher satisfies it.
type Invoker interface {
	Handle(ctx context.Context, event Event) (Response, error)
}

var _ Invoker = (*Dispatcher)(nil)
