// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/protocol"
)

// worker is a demo Agent: a Base agent echoing its Task input, with an attached protocol Handler.
type worker struct {
	*agent.Base
	handler *protocol.Handler
	ctx     context.Context
}

// newWorker creates a worker. Delegated Tasks are executed asynchronously within ctx.
func newWorker(ctx context.Context, conf agent.Config, router protocol.Router, protoConf protocol.Config) *worker {
	w := &worker{ctx: ctx}

	conf.Query = w.query
	w.Base = agent.NewBase(conf)
	w.handler = protocol.New(w.Base, router, protoConf)
	w.Base.Attach(w.handler)

	w.handler.RegisterHandler(envelope.Request, w.handleRequest)
	w.handler.RegisterHandler(envelope.TaskDelegate, w.handleDelegation)

	return w
}

func (w *worker) logger() *log.Entry {
	return log.WithFields(log.Fields{"worker": w.ID(), "role": w.Role()})
}

// query answers QUERY Envelopes with the worker's status.
func (w *worker) query(_ context.Context, env *envelope.Envelope) (any, error) {
	return agent.StatusReport{
		ID:           w.ID(),
		Role:         w.Role(),
		State:        w.State(),
		Capabilities: w.Capabilities(),
	}, nil
}

// handleRequest echoes a REQUEST's payload.
func (w *worker) handleRequest(ctx context.Context, env *envelope.Envelope) error {
	return w.handler.Send(ctx, envelope.NewResponse(env, env.Payload))
}

// delegatedTask extracts the Task of a TASK_DELEGATE Envelope.
func delegatedTask(env *envelope.Envelope) (agent.Task, error) {
	var input any

	switch payload := env.Payload.(type) {
	case protocol.TaskRequest:
		input = payload.Task
	case *protocol.TaskRequest:
		input = payload.Task
	case map[string]any:
		input = payload["task"]
	default:
		return agent.Task{}, fmt.Errorf("%w: %T", protocol.ErrMalformedPayload, env.Payload)
	}

	switch task := input.(type) {
	case agent.Task:
		return task, nil
	case *agent.Task:
		return *task, nil
	default:
		return agent.Task{ID: env.CorrelationID, Input: input}, nil
	}
}

// handleDelegation accepts a delegated Task and executes it outside of the bus' delivery.
func (w *worker) handleDelegation(ctx context.Context, env *envelope.Envelope) error {
	task, err := delegatedTask(env)
	if err != nil {
		return w.handler.RejectTask(ctx, env, err.Error())
	}

	if err := w.handler.AcceptTask(ctx, env); err != nil {
		return err
	}

	go func() {
		logger := w.logger().WithFields(log.Fields{
			"task":        task.ID,
			"correlation": env.CorrelationID,
			"delegator":   env.From,
		})

		if result, err := w.Execute(w.ctx, task); err != nil {
			logger.WithError(err).Info("Delegated task failed")
			if err := w.handler.FailTask(w.ctx, env.From, env.CorrelationID, err); err != nil {
				logger.WithError(err).Warn("Reporting task failure errored")
			}
		} else {
			logger.Debug("Delegated task completed")
			if err := w.handler.CompleteTask(w.ctx, env.From, env.CorrelationID, result); err != nil {
				logger.WithError(err).Warn("Reporting task completion errored")
			}
		}
	}()

	return nil
}
