// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import "context"

// Stepper performs a single iteration of a Task. Execute calls Step until it reports done, returns an error
// or the iteration bound is reached. Iterations start at one.
type Stepper interface {
	Step(ctx context.Context, task Task, iteration int) (result any, done bool, err error)
}

// StepFunc adapts a function to a Stepper.
type StepFunc func(ctx context.Context, task Task, iteration int) (any, bool, error)

// Step calls f.
func (f StepFunc) Step(ctx context.Context, task Task, iteration int) (any, bool, error) {
	return f(ctx, task, iteration)
}

// Echo is a Stepper finishing every Task in its first iteration with the Task's input as result.
var Echo = StepFunc(func(_ context.Context, task Task, _ int) (any, bool, error) {
	return task.Input, true, nil
})
