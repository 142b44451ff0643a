// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cron runs named jobs at fixed intervals.
package cron

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultResolution is the tick of a Cron created by NewCron.
const DefaultResolution = 50 * time.Millisecond

// job is a registered task. A job never overlaps itself: a tick is skipped while its last run is ongoing.
type job struct {
	name     string
	task     func()
	interval time.Duration
	next     time.Time
	running  atomic.Bool
}

func (j *job) run() {
	defer j.running.Store(false)
	j.task()
}

// Cron manages different jobs which require interval based execution.
type Cron struct {
	jobs       map[string]*job
	mutex      sync.Mutex
	resolution time.Duration

	stopOnce sync.Once
	stopSyn  chan struct{}
	stopAck  chan struct{}
}

// NewCron creates and starts an empty Cron instance, ticking every DefaultResolution.
func NewCron() *Cron {
	return NewCronResolution(DefaultResolution)
}

// NewCronResolution creates and starts an empty Cron instance with a custom tick. Jobs cannot run more
// frequently than this resolution.
func NewCronResolution(resolution time.Duration) *Cron {
	if resolution <= 0 {
		resolution = DefaultResolution
	}

	cron := &Cron{
		jobs:       make(map[string]*job),
		resolution: resolution,
		stopSyn:    make(chan struct{}),
		stopAck:    make(chan struct{}),
	}

	go cron.loop()

	return cron
}

func (cron *Cron) loop() {
	ticker := time.NewTicker(cron.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-cron.stopSyn:
			close(cron.stopAck)
			return

		case t := <-ticker.C:
			cron.fire(t)
		}
	}
}

// fire starts all due jobs. Missed ticks are skipped instead of being caught up in a burst.
func (cron *Cron) fire(now time.Time) {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	for _, j := range cron.jobs {
		if now.Before(j.next) {
			continue
		}

		for !now.Before(j.next) {
			j.next = j.next.Add(j.interval)
		}

		logger := log.WithFields(log.Fields{
			"job":        j.name,
			"interval":   j.interval,
			"next_event": j.next,
		})

		if !j.running.CompareAndSwap(false, true) {
			logger.Debug("Cron skipped job, its previous run is still ongoing")
			continue
		}

		go j.run()
		logger.Trace("Cron executed job")
	}
}

// Stop this Cron. Subsequent calls are no-ops.
func (cron *Cron) Stop() {
	cron.stopOnce.Do(func() {
		close(cron.stopSyn)
		<-cron.stopAck
	})
}

// Register a new task by its name, function and interval. The interval must be at least the Cron's
// resolution. The function will be executed in a new Goroutine and must be thread-safe.
func (cron *Cron) Register(name string, task func(), interval time.Duration) error {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	if _, exists := cron.jobs[name]; exists {
		return fmt.Errorf("a job named %s is already registered", name)
	}

	if interval < cron.resolution {
		return fmt.Errorf("given interval %v is shorter than the resolution %v", interval, cron.resolution)
	}

	cron.jobs[name] = &job{
		name:     name,
		task:     task,
		interval: interval,
		next:     time.Now().Add(interval),
	}

	return nil
}

// Unregister a task by its name.
func (cron *Cron) Unregister(name string) {
	cron.mutex.Lock()
	defer cron.mutex.Unlock()

	delete(cron.jobs, name)
}

// Jobs returns the sorted names of all registered jobs.
func (cron *Cron) Jobs() []string {
	cron.mutex.Lock()
	names := make([]string, 0, len(cron.jobs))
	for name := range cron.jobs {
		names = append(names, name)
	}
	cron.mutex.Unlock()

	sort.Strings(names)
	return names
}
