// Package worker ties the queue, guard, pipeline, and store together:
// it turns each delivery into exactly one ack/nack decision.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atento-labs/callaudit/analysis"
	"github.com/atento-labs/callaudit/guard"
	"github.com/atento-labs/callaudit/notify"
	"github.com/atento-labs/callaudit/queue"
	"github.com/atento-labs/callaudit/retry"
	"github.com/atento-labs/callaudit/stats"
	"github.com/atento-labs/callaudit/storage"
)

// Runner executes the analysis pipeline for one file.
type Runner interface {
	Run(ctx context.Context, fileName, audioURI string) (*analysis.Result, error)
}

// Options configures a Worker.
type Options struct {
	Guard         *guard.Guard
	Pipeline      Runner
	Store         storage.Store
	Tracker       retry.Tracker
	Notifier      *notify.Notifier
	Stats         *stats.Collector
	Log           *logrus.Logger
	MaxRetries    int
	BaseNackDelay time.Duration
	DefaultBucket string
}

// Worker processes queue deliveries.
type Worker struct {
	guard         *guard.Guard
	pipeline      Runner
	store         storage.Store
	tracker       retry.Tracker
	notifier      *notify.Notifier
	stats         *stats.Collector
	log           *logrus.Logger
	maxRetries    int
	baseNackDelay time.Duration
	defaultBucket string

	// scheduleNack defers a rejection so the broker redelivers after a
	// backoff. Replaced in tests to avoid real sleeps.
	scheduleNack func(d time.Duration, fn func())
}

func New(opts Options) *Worker {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Worker{
		guard:         opts.Guard,
		pipeline:      opts.Pipeline,
		store:         opts.Store,
		tracker:       opts.Tracker,
		notifier:      opts.Notifier,
		stats:         opts.Stats,
		log:           opts.Log,
		maxRetries:    opts.MaxRetries,
		baseNackDelay: opts.BaseNackDelay,
		defaultBucket: opts.DefaultBucket,
		scheduleNack: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Handle processes one delivery end to end. Every path through it ends
// in exactly one Ack or Nack; panics are converted into a failure
// decision instead of crashing the consumer loop.
func (w *Worker) Handle(ctx context.Context, d *queue.Delivery) {
	evt, err := queue.ParseEvent(d.Body)
	if err != nil {
		w.log.WithError(err).WithField("message_id", d.ID).Error("discarding undecodable message")
		w.stats.Begin(d.ID, "")
		w.terminal(ctx, d, "", err)
		return
	}

	fileName := evt.File()
	audioURI := evt.AudioURI(w.defaultBucket)
	log := w.log.WithFields(logrus.Fields{"message_id": d.ID, "file": fileName})

	w.stats.Begin(d.ID, fileName)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("recovered panic while processing message")
			w.fail(ctx, d, fileName, fmt.Errorf("panic: %v", r))
		}
	}()

	decision, err := w.guard.Check(ctx, fileName)
	if err != nil {
		w.fail(ctx, d, fileName, fmt.Errorf("idempotency check: %w", err))
		return
	}

	switch decision.Outcome {
	case guard.AlreadyDone:
		// A result can exist with the flag still unset if a previous
		// delivery stored it and then failed MarkTreated. The conditional
		// update is a no-op everywhere else, so heal it here.
		if won, err := w.store.MarkTreated(ctx, fileName); err != nil {
			log.WithError(err).Warn("treated flag repair failed")
		} else if won {
			log.Info("repaired treated flag left unset by an earlier delivery")
		}
		log.Info("already processed, acknowledging without work")
		w.ackNoOp(ctx, d)
		return
	case guard.Unassociated:
		w.terminal(ctx, d, fileName, errors.New("no evaluation record for file"))
		return
	}

	result, err := w.pipeline.Run(ctx, fileName, audioURI)
	if err != nil {
		w.fail(ctx, d, fileName, err)
		return
	}
	result.EvaluationID = decision.Evaluation.ID

	if _, err := w.store.InsertResult(ctx, result); err != nil {
		if errors.Is(err, storage.ErrDuplicateResult) {
			// A concurrent worker finished first. Its MarkTreated call
			// covers the record; ours becomes a no-op.
			log.Info("result stored by a concurrent worker, acknowledging")
			w.ackNoOp(ctx, d)
			return
		}
		w.fail(ctx, d, fileName, fmt.Errorf("persist result: %w", err))
		return
	}

	won, err := w.store.MarkTreated(ctx, fileName)
	if err != nil {
		// The result row exists, so redelivery lands on AlreadyDone and
		// only the treated flag is at risk; still worth a retry.
		w.fail(ctx, d, fileName, fmt.Errorf("mark treated: %w", err))
		return
	}
	if !won {
		log.Warn("treated flag already set before this worker's update")
	}

	if w.notifier != nil {
		w.notifier.Completion(ctx, result.EvaluationID)
	}

	elapsed := w.stats.Finish(d.ID)
	w.stats.Success(d.ID, fileName, elapsed)
	w.clearTracker(ctx, d.ID)
	if err := d.Ack(); err != nil {
		log.WithError(err).Error("ack failed")
	}
	log.WithFields(logrus.Fields{
		"score":   result.Consensus.Score,
		"elapsed": elapsed.Seconds(),
	}).Info("message processed")
}

// fail routes a processing failure to the terminal or retrying path
// based on its classification.
func (w *Worker) fail(ctx context.Context, d *queue.Delivery, fileName string, cause error) {
	if retry.Classify(cause) == retry.Terminal {
		w.terminal(ctx, d, fileName, cause)
		return
	}

	attempts, err := w.tracker.Increment(ctx, d.ID)
	if err != nil {
		w.log.WithError(err).Warn("attempt tracker unavailable, assuming first failure")
		attempts = 1
	}

	log := w.log.WithFields(logrus.Fields{
		"message_id": d.ID,
		"file":       fileName,
		"attempt":    attempts,
	})

	if attempts >= w.maxRetries {
		elapsed := w.stats.Finish(d.ID)
		w.stats.Failure(d.ID, fileName, cause.Error(), elapsed)
		w.clearTracker(ctx, d.ID)
		log.WithError(cause).Error("retries exhausted, dead-lettering message")
		if err := d.Nack(false); err != nil {
			log.WithError(err).Error("nack failed")
		}
		return
	}

	delay := w.baseNackDelay << (attempts - 1)
	w.stats.Finish(d.ID)
	log.WithError(cause).WithField("delay", delay.String()).Warn("recoverable failure, scheduling redelivery")
	w.scheduleNack(delay, func() {
		if err := d.Nack(true); err != nil {
			log.WithError(err).Error("nack failed")
		}
	})
}

// terminal records a failure that redelivery cannot fix and removes the
// message from the queue.
func (w *Worker) terminal(ctx context.Context, d *queue.Delivery, fileName string, cause error) {
	elapsed := w.stats.Finish(d.ID)
	w.stats.Failure(d.ID, fileName, cause.Error(), elapsed)
	w.clearTracker(ctx, d.ID)
	w.log.WithFields(logrus.Fields{
		"message_id": d.ID,
		"file":       fileName,
	}).WithError(cause).Error("terminal failure, acknowledging message")
	if err := d.Ack(); err != nil {
		w.log.WithError(err).Error("ack failed")
	}
}

// ackNoOp acknowledges a message whose work was already done, without
// touching the processed counters.
func (w *Worker) ackNoOp(ctx context.Context, d *queue.Delivery) {
	w.stats.Finish(d.ID)
	w.clearTracker(ctx, d.ID)
	if err := d.Ack(); err != nil {
		w.log.WithError(err).Error("ack failed")
	}
}

func (w *Worker) clearTracker(ctx context.Context, messageID string) {
	if err := w.tracker.Clear(ctx, messageID); err != nil {
		w.log.WithError(err).Debug("failed to clear attempt count")
	}
}
