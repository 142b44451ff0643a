// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// configWatcher re-applies the Logging-configuration block whenever the configuration file changes.
type configWatcher struct {
	filename string
	watcher  *fsnotify.Watcher
	apply    func(logConf)

	stopSyn chan struct{}
	stopAck chan struct{}
}

// watchConfig starts a configWatcher. The file's directory is watched, as editors tend to replace files.
func watchConfig(filename string, apply func(logConf)) (cw *configWatcher, err error) {
	cw = &configWatcher{
		filename: filepath.Clean(filename),
		apply:    apply,
		stopSyn:  make(chan struct{}),
		stopAck:  make(chan struct{}),
	}

	if cw.watcher, err = fsnotify.NewWatcher(); err != nil {
		return nil, err
	}
	if err = cw.watcher.Add(filepath.Dir(cw.filename)); err != nil {
		_ = cw.watcher.Close()
		return nil, err
	}

	go cw.handler()
	return cw, nil
}

func (cw *configWatcher) handler() {
	defer close(cw.stopAck)

	for {
		select {
		case <-cw.stopSyn:
			return

		case e, ok := <-cw.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if filepath.Clean(e.Name) != cw.filename || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cw.reload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Warn("fsnotify errored")
		}
	}
}

// reload re-reads the configuration file and applies a valid Logging-configuration block.
func (cw *configWatcher) reload() {
	logger := log.WithField("file", cw.filename)

	conf, err := decodeConfig(cw.filename)
	if err != nil {
		logger.WithError(err).Warn("Failed to re-read configuration")
		return
	}
	if err := checkLogging(conf.Logging); err != nil {
		logger.WithError(err).Warn("Ignoring invalid logging configuration")
		return
	}

	cw.apply(conf.Logging)
	logger.Info("Re-applied logging configuration")
}

// Close stops watching.
func (cw *configWatcher) Close() error {
	close(cw.stopSyn)
	<-cw.stopAck
	return cw.watcher.Close()
}
