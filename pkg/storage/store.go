// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage archives conversation threads on disk.
//
// An Archive keeps each thread's metadata in a badgerhold store and its Envelopes as a JSON file next to it.
// Archived threads expire after a retention period and are removed by DeleteExpired.
package storage

import (
	"fmt"
	"os"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold"

	"github.com/dtn7/agentbus/pkg/coord"
)

const (
	dirBadger string = "db"
	dirThread string = "thrd"
)

// Archive implements a storage for archived threads together with their metadata.
type Archive struct {
	bh *badgerhold.Store

	badgerDir string
	threadDir string
	retention time.Duration
}

// NewArchive creates a new Archive or opens an existing one from the given path. Stored threads expire after
// the retention period; zero keeps them forever.
func NewArchive(dir string, retention time.Duration) (a *Archive, err error) {
	badgerDir := path.Join(dir, dirBadger)
	threadDir := path.Join(dir, dirThread)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}
	if dirErr := os.MkdirAll(threadDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		a = &Archive{
			bh: bh,

			badgerDir: badgerDir,
			threadDir: threadDir,
			retention: retention,
		}
	}
	return
}

// Close the Archive. It must not be used afterwards.
func (a *Archive) Close() error {
	return a.bh.Close()
}

// Store a thread. An already archived thread with the same id is replaced.
func (a *Archive) Store(thread *coord.Thread) error {
	ti := newThreadItem(thread, a.threadDir, a.retention)

	if err := ti.storeMessages(thread.Messages); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"thread":   ti.Id,
		"messages": ti.Messages,
	}).Info("Archive stores thread")

	return a.bh.Upsert(ti.Id, ti)
}

// Delete an archived thread by its id.
func (a *Archive) Delete(threadID string) error {
	if ti, err := a.QueryId(threadID); err == nil {
		log.WithFields(log.Fields{
			"thread": threadID,
		}).Info("Archive deletes thread")

		if err := ti.deleteMessages(); err != nil {
			log.WithFields(log.Fields{
				"thread": threadID,
				"file":   ti.Filename,
				"error":  err,
			}).Warn("Failed to delete thread messages")
		}

		return a.bh.Delete(ti.Id, ThreadItem{})
	}

	return nil
}

// DeleteExpired removes all threads whose retention period has passed.
func (a *Archive) DeleteExpired() {
	var tis []ThreadItem
	if err := a.bh.Find(&tis, badgerhold.Where("Expires").Lt(time.Now()).And("Expiring").Eq(true)); err != nil {
		log.WithError(err).Warn("Failed to get expired threads")
		return
	}

	for _, ti := range tis {
		logger := log.WithField("thread", ti.Id)
		if err := a.Delete(ti.Id); err != nil {
			logger.WithError(err).Warn("Failed to delete expired thread")
		} else {
			logger.Info("Deleted expired thread")
		}
	}
}

// QueryId fetches the ThreadItem for the requested thread id.
func (a *Archive) QueryId(threadID string) (ti ThreadItem, err error) {
	err = a.bh.Get(threadID, &ti)
	return
}

// QueryParticipant fetches all archived threads an agent took part in.
func (a *Archive) QueryParticipant(agentID string) (tis []ThreadItem, err error) {
	err = a.bh.Find(&tis, badgerhold.Where("Participants").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		participants, ok := ra.Field().([]string)
		if !ok {
			return false, fmt.Errorf("field Participants is %T", ra.Field())
		}
		for _, p := range participants {
			if p == agentID {
				return true, nil
			}
		}
		return false, nil
	}))
	return
}

// KnowsThread checks if such a thread is archived.
func (a *Archive) KnowsThread(threadID string) bool {
	_, err := a.QueryId(threadID)
	return err != badgerhold.ErrNotFound
}
