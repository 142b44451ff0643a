// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/envelope"
)

// SendTask executes a Task directly on an Agent, bypassing the queue.
func (b *Bus) SendTask(ctx context.Context, id string, task agent.Task) (any, error) {
	a, ok := b.Agent(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}

	return a.Execute(ctx, task)
}

// SendTaskToRole executes a Task directly on an Agent of the given role. The first idle Agent in registration
// order is chosen, or the first registered one if none is idle.
func (b *Bus) SendTaskToRole(ctx context.Context, role string, task agent.Task) (any, error) {
	a, err := b.selectByRole(role)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"role":  role,
		"agent": a.ID(),
		"task":  task.ID,
	}).Debug("Selected agent for task")

	return a.Execute(ctx, task)
}

func (b *Bus) selectByRole(role string) (agent.Agent, error) {
	candidates := b.AgentsByRole(role)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAgentForRole, role)
	}

	for _, a := range candidates {
		if a.State() == agent.StateIdle {
			return a, nil
		}
	}
	return candidates[0], nil
}

// Broadcast calls ProcessMessage concurrently on every Agent whose role is not excluded, bypassing the queue.
// The result maps each addressed Agent's id to its error, nil on success.
func (b *Bus) Broadcast(ctx context.Context, mt envelope.MessageType, payload any, excludeRoles ...string) map[string]error {
	excluded := make(map[string]struct{}, len(excludeRoles))
	for _, role := range excludeRoles {
		excluded[role] = struct{}{}
	}

	var (
		group   errgroup.Group
		mutex   sync.Mutex
		results = make(map[string]error)
	)

	for _, a := range b.Agents() {
		if _, skip := excluded[a.Role()]; skip {
			continue
		}

		a := a
		env := &envelope.Envelope{
			ID:        envelope.NewID(),
			Type:      mt,
			From:      Source,
			To:        []string{a.ID()},
			Priority:  envelope.PriorityNormal,
			Payload:   payload,
			Timestamp: time.Now(),
		}

		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("agent %s panicked: %v", a.ID(), r)
				}

				mutex.Lock()
				results[a.ID()] = err
				mutex.Unlock()
			}()

			return a.ProcessMessage(ctx, env)
		})
	}

	// Errors are collected per Agent; Wait only synchronizes.
	_ = group.Wait()

	log.WithFields(log.Fields{
		"type":    mt,
		"targets": len(results),
	}).Debug("Broadcast envelope")

	return results
}
