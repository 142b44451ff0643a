// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import "time"

// ErrorPayload is the Payload of an ERROR Envelope.
type ErrorPayload struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// correlationOf returns the original's CorrelationID, or its ID if none was set.
func correlationOf(original *Envelope) string {
	if original.CorrelationID != "" {
		return original.CorrelationID
	}
	return original.ID
}

// NewReply creates an Envelope of the given type answering the original Envelope. It is addressed to the
// original's sender, sent from the original's (first) recipient and keeps the correlation.
func NewReply(original *Envelope, mt MessageType, payload any) *Envelope {
	return &Envelope{
		ID:            NewID(),
		Type:          mt,
		From:          original.Recipient(),
		To:            []string{original.From},
		ReplyTo:       original.ID,
		CorrelationID: correlationOf(original),
		ThreadID:      original.ThreadID,
		Priority:      original.Priority,
		Payload:       payload,
		Timestamp:     time.Now(),
	}
}

// NewResponse creates a RESPONSE to the original Envelope.
func NewResponse(original *Envelope, payload any) *Envelope {
	return NewReply(original, Response, payload)
}

// NewErrorReply creates an ERROR answer to the original Envelope, carrying an ErrorPayload.
func NewErrorReply(original *Envelope, err error) *Envelope {
	return NewReply(original, Error, ErrorPayload{Error: err.Error(), Type: "HandlerError"})
}
