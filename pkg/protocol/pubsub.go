// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"sort"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// Subscribe records the Owner's interest in a topic. This is informational; publishers decide about their
// subscribers by AddSubscriber.
func (h *Handler) Subscribe(topic string) {
	h.mutex.Lock()
	h.subscriptions[topic] = struct{}{}
	h.mutex.Unlock()

	h.emit(h.newEvent(event.Subscribed).WithData("topic", topic))
}

// Unsubscribe removes the Owner's interest in a topic.
func (h *Handler) Unsubscribe(topic string) {
	h.mutex.Lock()
	_, known := h.subscriptions[topic]
	delete(h.subscriptions, topic)
	h.mutex.Unlock()

	if known {
		h.emit(h.newEvent(event.Unsubscribed).WithData("topic", topic))
	}
}

// Subscriptions returns the Owner's topics in lexical order.
func (h *Handler) Subscriptions() []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	topics := make([]string, 0, len(h.subscriptions))
	for topic := range h.subscriptions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// AddSubscriber adds an agent to the receivers of this Owner's EVENTs for a topic.
func (h *Handler) AddSubscriber(topic, agentID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subs, ok := h.subscribers[topic]
	if !ok {
		subs = make(map[string]struct{})
		h.subscribers[topic] = subs
	}
	subs[agentID] = struct{}{}
}

// RemoveSubscriber removes an agent from the receivers of a topic.
func (h *Handler) RemoveSubscriber(topic, agentID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, ok := h.subscribers[topic]; ok {
		delete(subs, agentID)
		if len(subs) == 0 {
			delete(h.subscribers, topic)
		}
	}
}

// Subscribers returns the receivers of a topic in lexical order.
func (h *Handler) Subscribers(topic string) []string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ids := make([]string, 0, len(h.subscribers[topic]))
	for id := range h.subscribers[topic] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PublishEvent sends an EVENT for a topic to all its subscribers.
func (h *Handler) PublishEvent(ctx context.Context, topic string, payload any) error {
	env, err := envelope.Builder().
		Type(envelope.Event).
		From(h.owner.ID()).
		Topic(topic).
		Payload(payload).
		Build()
	if err != nil {
		return err
	}

	return h.Send(ctx, env)
}
