package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// Watcher recomputes every rule's schedule on a cron cadence. The real
// change-notification feed lives outside this process; periodic
// recompute stands in for it, which is safe because each computation is
// independent and supersedes the previous one.
type Watcher struct {
	tracker  *Tracker
	log      *logrus.Logger
	cronSpec string
	engine   *cron.Cron
	onUpdate func(recurrence.Schedule)
}

// NewWatcher builds a watcher over the tracker. onUpdate receives every
// freshly computed schedule; nil means log-only.
func NewWatcher(tracker *Tracker, log *logrus.Logger, cronSpec string, onUpdate func(recurrence.Schedule)) *Watcher {
	return &Watcher{
		tracker:  tracker,
		log:      log,
		cronSpec: cronSpec,
		engine:   cron.New(cron.WithLocation(time.UTC)),
		onUpdate: onUpdate,
	}
}

// Start registers the recompute job and starts the cron engine. It also
// runs one immediate recompute so the caller does not wait for the
// first tick.
func (w *Watcher) Start() error {
	if _, err := w.engine.AddFunc(w.cronSpec, w.recomputeAll); err != nil {
		return err
	}
	w.recomputeAll()
	w.engine.Start()
	w.log.WithField("cron", w.cronSpec).Info("schedule watcher started")
	return nil
}

// Stop halts the cron engine and waits for a running job to finish.
func (w *Watcher) Stop() {
	ctx := w.engine.Stop()
	<-ctx.Done()
	w.log.Info("schedule watcher stopped")
}

func (w *Watcher) recomputeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rules, err := w.tracker.store.ListRules(ctx)
	if err != nil {
		w.log.WithError(err).Error("listing rules for recompute failed")
		return
	}

	for _, rule := range rules {
		sched, err := w.tracker.Schedule(ctx, rule.ID)
		if err != nil {
			w.log.WithError(err).WithField("rule", rule.ID).Error("recompute failed")
			continue
		}
		w.log.WithFields(logrus.Fields{
			"rule":     rule.ID,
			"cycles":   sched.Stats.Cycles,
			"paid":     sched.Stats.Paid,
			"overdue":  sched.Stats.Overdue,
			"upcoming": sched.Stats.Upcoming,
		}).Info("schedule recomputed")
		if w.onUpdate != nil {
			w.onUpdate(sched)
		}
	}
}
