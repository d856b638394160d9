// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package radio

import (
	"context"
	"time"

	"github.com/ManuGH/tetherd/internal/log"
	"github.com/rs/zerolog"
)

// Watcher samples the radio and the link table and calls Notify whenever
// either changes. It carries no state to the consumer: the control loop
// re-queries the radio when it handles the notification.
type Watcher struct {
	radio    Radio
	links    LinkLister
	interval time.Duration
	notify   func()
	logger   zerolog.Logger
}

// NewWatcher creates a polling watcher. links may be nil to watch the radio only.
func NewWatcher(r Radio, links LinkLister, interval time.Duration, notify func()) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		radio:    r,
		links:    links,
		interval: interval,
		notify:   notify,
		logger:   log.WithComponent("netwatch"),
	}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastRadio, lastLinks := w.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r, l := w.sample(ctx)
			if r == lastRadio && l == lastLinks {
				continue
			}
			w.logger.Debug().
				Str("event", "netwatch.changed").
				Str("from", lastRadio.String()).
				Str(log.FieldRadio, r.String()).
				Bool("links_changed", l != lastLinks).
				Msg("network state changed")
			lastRadio, lastLinks = r, l
			w.notify()
		}
	}
}

func (w *Watcher) sample(ctx context.Context) (State, string) {
	s, err := w.radio.State(ctx)
	if err != nil {
		w.logger.Debug().Err(err).Str("event", "netwatch.radio_query_failed").Msg("radio state query failed")
	}
	if w.links == nil {
		return s, ""
	}
	links, err := w.links()
	if err != nil {
		w.logger.Debug().Err(err).Str("event", "netwatch.links_failed").Msg("link listing failed")
		return s, ""
	}
	return s, Fingerprint(links)
}
