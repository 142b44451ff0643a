// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"errors"
	"fmt"

	"github.com/dtn7/agentbus/pkg/envelope"
)

var (
	// ErrRequestTimeout is returned by Request if no reply arrived within the timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrUnknownThread is returned for operations on unknown thread ids.
	ErrUnknownThread = errors.New("unknown thread")

	// ErrUnknownSession is returned for operations on unknown collaboration session ids.
	ErrUnknownSession = errors.New("unknown collaboration session")

	// ErrUnknownProposal is returned for operations on unknown proposal ids.
	ErrUnknownProposal = errors.New("unknown proposal")

	// ErrNotInitiator is returned for session operations reserved to the session's initiator.
	ErrNotInitiator = errors.New("not the session's initiator")

	// ErrMalformedPayload is returned if an Envelope's payload does not match its MessageType.
	ErrMalformedPayload = errors.New("malformed payload")
)

// RemoteError is returned by Request if the peer answered with an ERROR Envelope.
type RemoteError struct {
	Envelope *envelope.Envelope
	Message  string
	Type     string
}

func (re *RemoteError) Error() string {
	if re.Type != "" {
		return fmt.Sprintf("%s replied %s: %s", re.Envelope.From, re.Type, re.Message)
	}
	return fmt.Sprintf("%s replied with an error: %s", re.Envelope.From, re.Message)
}

func newRemoteError(env *envelope.Envelope) *RemoteError {
	re := &RemoteError{Envelope: env}

	switch payload := env.Payload.(type) {
	case envelope.ErrorPayload:
		re.Message, re.Type = payload.Error, payload.Type
	case *envelope.ErrorPayload:
		re.Message, re.Type = payload.Error, payload.Type
	case map[string]any:
		re.Message, _ = payload["error"].(string)
		re.Type, _ = payload["type"].(string)
	case error:
		re.Message = payload.Error()
	case string:
		re.Message = payload
	default:
		re.Message = fmt.Sprintf("%v", payload)
	}
	return re
}

// HandlerError wraps an error or a panic of a registered handler function. It is attached to HandlerError
// Events.
type HandlerError struct {
	MessageType envelope.MessageType
	EnvelopeID  string
	Err         error
}

func (he *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s failed on %s: %v", he.MessageType, he.EnvelopeID, he.Err)
}

func (he *HandlerError) Unwrap() error {
	return he.Err
}
