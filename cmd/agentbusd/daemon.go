// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/cron"
	"github.com/dtn7/agentbus/pkg/event"
	"github.com/dtn7/agentbus/pkg/monitor"
	"github.com/dtn7/agentbus/pkg/storage"
)

const (
	archiveJob     = "archive_expire"
	archiveJobTick = time.Minute
	shutdownGrace  = 5 * time.Second
)

// daemon bundles all components started from a configuration.
type daemon struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	bus     *bus.Bus
	cron    *cron.Cron
	workers []*worker

	archive *storage.Archive
	monitor *monitor.Monitor
	server  *http.Server

	stopLog func()
}

// startDaemon creates and starts the bus, its workers and the optional archive and monitor.
func startDaemon(conf daemonConfig) (d *daemon, err error) {
	d = &daemon{
		bus:  bus.New(conf.bus),
		cron: cron.NewCron(),
	}
	d.ctx, d.ctxCancel = context.WithCancel(context.Background())
	d.stopLog = d.bus.Events().Observe(event.NewLogObserver(nil, log.DebugLevel))

	defer func() {
		if err != nil {
			_ = d.Close()
			d = nil
		}
	}()

	if conf.archiveDir != "" {
		if d.archive, err = storage.NewArchive(conf.archiveDir, conf.archiveRetention); err != nil {
			return
		}
		if conf.archiveRetention > 0 {
			if err = d.cron.Register(archiveJob, d.archive.DeleteExpired, archiveJobTick); err != nil {
				return
			}
		}
	}

	for _, workerConf := range conf.workers {
		w := newWorker(d.ctx, workerConf, d.bus, conf.protocol)
		if d.archive != nil {
			w.handler.SetArchive(d.archive)
		}

		if err = d.bus.Register(d.ctx, w); err != nil {
			return
		}
		d.workers = append(d.workers, w)

		if err = w.handler.Schedule(d.cron); err != nil {
			return
		}
	}

	if err = d.bus.Start(); err != nil {
		return
	}

	if conf.monitorListen != "" {
		d.monitor = monitor.New(d.bus, conf.monitorBuffer)
		d.server = &http.Server{
			Addr:    conf.monitorListen,
			Handler: d.monitor,
		}

		go func() {
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).WithField("listen", conf.monitorListen).Error("Monitor server errored")
			}
		}()
	}

	log.WithFields(log.Fields{
		"workers": len(d.workers),
		"archive": conf.archiveDir,
		"monitor": conf.monitorListen,
	}).Info("Started agentbus daemon")

	return
}

// Close shuts down all components, reporting all errors at once.
func (d *daemon) Close() (errs error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
		d.monitor.Close()
	}

	for _, w := range d.workers {
		w.handler.Close(d.cron)
	}
	d.cron.Stop()

	if err := d.bus.Close(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	d.ctxCancel()

	if d.archive != nil {
		if err := d.archive.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	d.stopLog()
	return
}
