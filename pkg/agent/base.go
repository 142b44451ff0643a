// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// DefaultMaxIterations bounds a Task's execution if neither the Config nor the Task specify a bound.
const DefaultMaxIterations = 10

// Config for a Base agent.
type Config struct {
	ID           string
	Role         string
	Capabilities []string

	// MaxIterations bounds Execute; DefaultMaxIterations is used if not positive.
	MaxIterations int

	// Stepper performs the Task iterations. Echo is used if nil.
	Stepper Stepper

	// Query answers QUERY Envelopes. Without it, QUERY Envelopes are answered with an ERROR.
	Query func(ctx context.Context, env *envelope.Envelope) (any, error)

	OnInit     func(ctx context.Context) error
	OnShutdown func(ctx context.Context) error
}

// Base is a reusable Agent implementation. It runs the iterate-until-done execution loop, answers the
// execution loop's own Envelopes (TASK, QUERY, STATUS, SHUTDOWN) and passes everything else to an attached
// Handler.
type Base struct {
	conf   Config
	events *event.Emitter

	mutex   sync.RWMutex
	state   State
	handler Handler
}

// NewBase creates a new Base agent in the idle state.
func NewBase(conf Config) *Base {
	if conf.MaxIterations <= 0 {
		conf.MaxIterations = DefaultMaxIterations
	}
	if conf.Stepper == nil {
		conf.Stepper = Echo
	}
	conf.Capabilities = append([]string(nil), conf.Capabilities...)

	return &Base{
		conf:   conf,
		events: event.NewEmitter(conf.ID),
		state:  StateIdle,
	}
}

func (b *Base) log() *log.Entry {
	return log.WithFields(log.Fields{"agent": b.conf.ID, "role": b.conf.Role})
}

func (b *Base) ID() string {
	return b.conf.ID
}

func (b *Base) Role() string {
	return b.conf.Role
}

func (b *Base) Capabilities() []string {
	return append([]string(nil), b.conf.Capabilities...)
}

func (b *Base) State() State {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.state
}

func (b *Base) setState(state State) {
	b.mutex.Lock()
	b.state = state
	b.mutex.Unlock()
}

func (b *Base) Events() *event.Emitter {
	return b.events
}

// Attach a Handler, e.g., a protocol handler, to receive all Envelopes besides the execution loop's own.
func (b *Base) Attach(handler Handler) {
	b.mutex.Lock()
	b.handler = handler
	b.mutex.Unlock()
}

func (b *Base) attached() Handler {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.handler
}

// Init is called by the bus on registration.
func (b *Base) Init(ctx context.Context) error {
	if b.conf.OnInit != nil {
		if err := b.conf.OnInit(ctx); err != nil {
			b.setState(StateError)
			return err
		}
	}

	b.setState(StateIdle)
	b.log().Debug("Agent initialized")
	return nil
}

// Shutdown is called by the bus on unregistration or by a SHUTDOWN Envelope.
func (b *Base) Shutdown(ctx context.Context) (err error) {
	if b.conf.OnShutdown != nil {
		err = b.conf.OnShutdown(ctx)
	}

	b.setState(StateStopped)
	b.log().Debug("Agent shut down")
	return
}

// Execute a Task by iterating the Stepper until it is done, it errors or the iteration bound is reached.
func (b *Base) Execute(ctx context.Context, task Task) (any, error) {
	if task.ID == "" {
		task.ID = envelope.NewID()
	}

	maxIterations := b.conf.MaxIterations
	if task.MaxIterations > 0 {
		maxIterations = task.MaxIterations
	}

	b.setState(StateBusy)
	b.log().WithField("task", task.ID).Debug("Executing task")

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, b.taskFailed(task, err)
		}

		result, done, err := b.conf.Stepper.Step(ctx, task, iteration)
		if err != nil {
			return nil, b.taskFailed(task, err)
		}
		if done {
			b.setState(StateIdle)
			b.events.Emit(event.New(event.TaskCompleted, b.conf.ID).
				WithData("task", task.ID).
				WithData("iterations", iteration).
				WithData("result", result))
			return result, nil
		}
	}

	return nil, b.taskFailed(task, fmt.Errorf("%w: task %s after %d iterations",
		ErrMaxIterationsExceeded, task.ID, maxIterations))
}

func (b *Base) taskFailed(task Task, err error) error {
	b.setState(StateError)
	b.log().WithField("task", task.ID).WithError(err).Warn("Task failed")
	b.events.Emit(event.New(event.TaskFailed, b.conf.ID).WithData("task", task.ID).WithError(err))
	return err
}

// Escalate a problem to a supervising party by emitting an Escalation Event.
func (b *Base) Escalate(reason string, data any) {
	b.events.Emit(event.New(event.Escalation, b.conf.ID).WithData("reason", reason).WithData("details", data))
}

// RequestApproval emits an ApprovalRequired Event for some action.
func (b *Base) RequestApproval(action string, data any) {
	b.events.Emit(event.New(event.ApprovalRequired, b.conf.ID).WithData("action", action).WithData("details", data))
}

// ProcessMessage routes an Envelope by its type.
func (b *Base) ProcessMessage(ctx context.Context, env *envelope.Envelope) error {
	switch env.Type {
	case envelope.Task:
		return b.processTask(ctx, env)

	case envelope.Query:
		return b.processQuery(ctx, env)

	case envelope.Status:
		b.reply(ctx, envelope.NewResponse(b.own(env), StatusReport{
			ID:           b.conf.ID,
			Role:         b.conf.Role,
			State:        b.State(),
			Capabilities: b.Capabilities(),
		}))
		return nil

	case envelope.Shutdown:
		return b.Shutdown(ctx)

	default:
		handler := b.attached()
		if handler == nil {
			return fmt.Errorf("agent %s has no handler for %s", b.conf.ID, env.Type)
		}
		return handler.HandleMessage(ctx, env)
	}
}

func (b *Base) processTask(ctx context.Context, env *envelope.Envelope) error {
	var task Task
	switch payload := env.Payload.(type) {
	case Task:
		task = payload
	case *Task:
		task = *payload
	default:
		return fmt.Errorf("TASK envelope %s carries %T instead of a Task", env.ID, env.Payload)
	}

	// Task failures are reported to the sender and as Events; they are no delivery failures.
	result, err := b.Execute(ctx, task)
	if err != nil {
		b.reply(ctx, envelope.NewReply(b.own(env), envelope.TaskFailed, map[string]any{
			"task":  task.ID,
			"error": err.Error(),
		}))
	} else {
		b.reply(ctx, envelope.NewReply(b.own(env), envelope.TaskComplete, map[string]any{
			"task":   task.ID,
			"result": result,
		}))
	}
	return nil
}

func (b *Base) processQuery(ctx context.Context, env *envelope.Envelope) error {
	if b.conf.Query == nil {
		b.reply(ctx, envelope.NewErrorReply(b.own(env), fmt.Errorf("agent %s does not answer queries", b.conf.ID)))
		return nil
	}

	if result, err := b.conf.Query(ctx, env); err != nil {
		b.reply(ctx, envelope.NewErrorReply(b.own(env), err))
	} else {
		b.reply(ctx, envelope.NewResponse(b.own(env), result))
	}
	return nil
}

// own returns an Envelope whose first recipient is this agent, to derive replies from multi-target Envelopes.
func (b *Base) own(env *envelope.Envelope) *envelope.Envelope {
	if env.Recipient() == b.conf.ID {
		return env
	}

	clone := env.Clone()
	clone.To = []string{b.conf.ID}
	return clone
}

// reply sends an answer through the attached Handler. Envelopes without a sender are not answered.
func (b *Base) reply(ctx context.Context, env *envelope.Envelope) {
	if env.Recipient() == "" {
		return
	}

	handler := b.attached()
	if handler == nil {
		b.log().WithField("envelope", env.ID).Debug("Dropping reply, no handler attached")
		return
	}

	if err := handler.Send(ctx, env); err != nil {
		b.log().WithField("envelope", env.ID).WithError(err).Warn("Sending reply errored")
	}
}
