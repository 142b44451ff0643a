// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/envelope"
)

// ThreadItem is a wrapper for meta data around an archived thread. The Envelopes are stored separately in
// a file and loaded on demand.
type ThreadItem struct {
	Id           string `badgerhold:"key"`
	Participants []string
	Status       coord.ThreadStatus

	CreatedAt  time.Time
	ArchivedAt time.Time

	// Expires is only meaningful if Expiring is set.
	Expires  time.Time `badgerholdIndex:"Expires"`
	Expiring bool

	Messages int
	Filename string
}

func newThreadItem(thread *coord.Thread, dir string, retention time.Duration) ThreadItem {
	now := time.Now()

	ti := ThreadItem{
		Id:           thread.ID,
		Participants: thread.ParticipantIDs(),
		Status:       thread.Status,
		CreatedAt:    thread.CreatedAt,
		ArchivedAt:   now,
		Messages:     len(thread.Messages),
		Filename:     path.Join(dir, fmt.Sprintf("%x", sha256.Sum256([]byte(thread.ID)))),
	}
	if retention > 0 {
		ti.Expires = now.Add(retention)
		ti.Expiring = true
	}
	return ti
}

// storeMessages serializes the thread's Envelopes to the disk.
func (ti ThreadItem) storeMessages(messages []*envelope.Envelope) error {
	f, err := os.OpenFile(ti.Filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(messages); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load the archived Envelopes. Payloads are restored in their generic JSON form.
func (ti ThreadItem) Load() (messages []*envelope.Envelope, err error) {
	f, err := os.Open(ti.Filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&messages)
	return
}

// deleteMessages removes the serialized Envelopes from the disk.
func (ti ThreadItem) deleteMessages() error {
	return os.Remove(ti.Filename)
}
