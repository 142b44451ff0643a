// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Observer receives Events. OnEvent is called synchronously by the Emitter and must not block.
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(e Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Only wraps an Observer to receive only Events of the given types.
func Only(obs Observer, types ...Type) Observer {
	allowed := make(map[Type]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}

	return ObserverFunc(func(e Event) {
		if _, ok := allowed[e.Type]; ok {
			obs.OnEvent(e)
		}
	})
}

// Emitter dispatches Events to its registered Observers. An Emitter is safe for concurrent use.
type Emitter struct {
	source string

	mutex     sync.RWMutex
	observers map[uint64]Observer
	nextId    uint64
}

// NewEmitter creates an Emitter. The source is used for Events without one.
func NewEmitter(source string) *Emitter {
	return &Emitter{
		source:    source,
		observers: make(map[uint64]Observer),
	}
}

// Source of this Emitter.
func (em *Emitter) Source() string {
	return em.source
}

// Observe registers an Observer. The returned function removes it again and may be called multiple times.
func (em *Emitter) Observe(obs Observer) (cancel func()) {
	em.mutex.Lock()
	id := em.nextId
	em.nextId++
	em.observers[id] = obs
	em.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			em.mutex.Lock()
			delete(em.observers, id)
			em.mutex.Unlock()
		})
	}
}

// Len returns the number of registered Observers.
func (em *Emitter) Len() int {
	em.mutex.RLock()
	defer em.mutex.RUnlock()

	return len(em.observers)
}

// Emit an Event to all Observers. A panicking Observer is logged and does not affect the others.
func (em *Emitter) Emit(e Event) {
	if e.Source == "" {
		e.Source = em.source
	}

	em.mutex.RLock()
	observers := make([]Observer, 0, len(em.observers))
	for _, obs := range em.observers {
		observers = append(observers, obs)
	}
	em.mutex.RUnlock()

	for _, obs := range observers {
		em.notify(obs, e)
	}
}

func (em *Emitter) notify(obs Observer, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"source": em.source,
				"event":  e.Type,
				"panic":  r,
			}).Error("Event observer panicked")
		}
	}()

	obs.OnEvent(e)
}
