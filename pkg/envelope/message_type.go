// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import "fmt"

// MessageType identifies the purpose of an Envelope.
type MessageType string

const (
	Request  MessageType = "REQUEST"
	Response MessageType = "RESPONSE"
	Error    MessageType = "ERROR"
	Event    MessageType = "EVENT"

	Broadcast MessageType = "BROADCAST"
	Multicast MessageType = "MULTICAST"

	Ping               MessageType = "PING"
	Pong               MessageType = "PONG"
	CapabilityQuery    MessageType = "CAPABILITY_QUERY"
	CapabilityResponse MessageType = "CAPABILITY_RESPONSE"

	TaskDelegate MessageType = "TASK_DELEGATE"
	TaskAccept   MessageType = "TASK_ACCEPT"
	TaskReject   MessageType = "TASK_REJECT"
	TaskProgress MessageType = "TASK_PROGRESS"
	TaskComplete MessageType = "TASK_COMPLETE"
	TaskFailed   MessageType = "TASK_FAILED"

	CollaborateRequest MessageType = "COLLABORATE_REQUEST"
	CollaborateJoin    MessageType = "COLLABORATE_JOIN"
	CollaborateLeave   MessageType = "COLLABORATE_LEAVE"
	CollaborateUpdate  MessageType = "COLLABORATE_UPDATE"

	Propose   MessageType = "PROPOSE"
	Vote      MessageType = "VOTE"
	Consensus MessageType = "CONSENSUS"

	// The following types are consumed by an agent's own execution loop and never reach its protocol handler.
	Task     MessageType = "TASK"
	Query    MessageType = "QUERY"
	Status   MessageType = "STATUS"
	Shutdown MessageType = "SHUTDOWN"
)

var messageTypes = map[MessageType]struct{}{
	Request: {}, Response: {}, Error: {}, Event: {},
	Broadcast: {}, Multicast: {},
	Ping: {}, Pong: {}, CapabilityQuery: {}, CapabilityResponse: {},
	TaskDelegate: {}, TaskAccept: {}, TaskReject: {}, TaskProgress: {}, TaskComplete: {}, TaskFailed: {},
	CollaborateRequest: {}, CollaborateJoin: {}, CollaborateLeave: {}, CollaborateUpdate: {},
	Propose: {}, Vote: {}, Consensus: {},
	Task: {}, Query: {}, Status: {}, Shutdown: {},
}

// Valid reports whether this MessageType is a known one.
func (mt MessageType) Valid() bool {
	_, ok := messageTypes[mt]
	return ok
}

// CheckValid returns an error for an unknown MessageType.
func (mt MessageType) CheckValid() error {
	if !mt.Valid() {
		return fmt.Errorf("MessageType: unknown type %q", string(mt))
	}
	return nil
}

// IsReply reports whether this MessageType answers a previous REQUEST.
func (mt MessageType) IsReply() bool {
	return mt == Response || mt == Error
}

func (mt MessageType) String() string {
	return string(mt)
}
