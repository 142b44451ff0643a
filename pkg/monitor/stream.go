// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// EventMessage is the JSON representation of an Event on the WebSocket stream.
type EventMessage struct {
	Type      event.Type         `json:"type"`
	Source    string             `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
	Envelope  *envelope.Envelope `json:"envelope,omitempty"`
	Error     string             `json:"error,omitempty"`
	Data      map[string]any     `json:"data,omitempty"`
}

func newEventMessage(e event.Event) EventMessage {
	return EventMessage{
		Type:      e.Type,
		Source:    e.Source,
		Timestamp: e.Timestamp,
		Envelope:  e.Envelope,
		Error:     e.ErrorString(),
		Data:      e.Data,
	}
}

const writeTimeout = 5 * time.Second

type streamClient struct {
	conn   *websocket.Conn
	events *event.Channel

	shutdownOnce sync.Once
}

func newStreamClient(conn *websocket.Conn, buffer int) *streamClient {
	return &streamClient{
		conn:   conn,
		events: event.NewChannel(buffer),
	}
}

func (client *streamClient) logger() *log.Entry {
	return log.WithField("monitor client", client.conn.RemoteAddr().String())
}

// start blocks until the connection is closed.
func (client *streamClient) start() {
	go client.handleEvents()
	client.handleConn()
}

func (client *streamClient) shutdown() {
	client.shutdownOnce.Do(func() {
		client.logger().WithField("dropped", client.events.Dropped()).Debug("Reached shutdown")

		client.events.Close()
		_ = client.conn.Close()
	})
}

// handleEvents writes all observed Events to the WebSocket.
func (client *streamClient) handleEvents() {
	defer client.shutdown()

	for e := range client.events.C() {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.conn.WriteJSON(newEventMessage(e)); err != nil {
			client.logger().WithError(err).Debug("Writing event errored")
			return
		}
	}
}

// handleConn reads from the WebSocket to detect its closing. Incoming messages are ignored.
func (client *streamClient) handleConn() {
	defer client.shutdown()

	for {
		if _, _, err := client.conn.NextReader(); err != nil {
			client.logger().WithError(err).Debug("WebSocket closed")
			return
		}
	}
}
