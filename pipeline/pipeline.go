// Package pipeline runs the analysis stages for one audio file:
// transcription, primary scoring, optional secondary cross-validation,
// and consensus merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/atento-labs/callaudit/analysis"
	"github.com/atento-labs/callaudit/retry"
)

// StageError tags a failure with the stage that produced it. Unwrap
// exposes the original error for classification.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage names as they appear in StageError and logs.
const (
	StageTranscription = "transcription"
	StagePrimary       = "primary analysis"
	StageSecondary     = "secondary analysis"
)

// Orchestrator drives the stages in order. Each stage is retried
// independently with exponential backoff before its failure surfaces.
type Orchestrator struct {
	transcriber analysis.Transcriber
	primary     analysis.Analyzer
	secondary   analysis.Analyzer // nil disables cross-validation
	maxAttempts int
	baseDelay   time.Duration
	language    string
	log         *logrus.Logger
}

type Options struct {
	Transcriber analysis.Transcriber
	Primary     analysis.Analyzer
	Secondary   analysis.Analyzer
	MaxAttempts int
	BaseDelay   time.Duration
	Language    string
	Log         *logrus.Logger
}

func New(opts Options) *Orchestrator {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Orchestrator{
		transcriber: opts.Transcriber,
		primary:     opts.Primary,
		secondary:   opts.Secondary,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		language:    opts.Language,
		log:         opts.Log,
	}
}

// Run executes the full pipeline for one file. A secondary-stage
// failure degrades the result to a single source instead of failing the
// run; transcription and primary failures abort with a StageError.
func (o *Orchestrator) Run(ctx context.Context, fileName, audioURI string) (*analysis.Result, error) {
	started := time.Now()

	var transcription *analysis.Transcription
	err := retry.Do(ctx, func() error {
		var err error
		transcription, err = o.transcriber.Transcribe(ctx, audioURI, fileName, o.language)
		return err
	}, o.maxAttempts, o.baseDelay)
	if err != nil {
		return nil, &StageError{Stage: StageTranscription, Err: err}
	}
	if transcription.Text == "" {
		return nil, &StageError{Stage: StageTranscription, Err: errors.New("empty transcript")}
	}

	var primary *analysis.Assessment
	err = retry.Do(ctx, func() error {
		var err error
		primary, err = o.primary.Analyze(ctx, transcription.Text, transcription.Words, nil)
		return err
	}, o.maxAttempts, o.baseDelay)
	if err != nil {
		return nil, &StageError{Stage: StagePrimary, Err: err}
	}

	var secondary *analysis.Assessment
	if o.secondary != nil {
		err = retry.Do(ctx, func() error {
			var err error
			secondary, err = o.secondary.Analyze(ctx, transcription.Text, transcription.Words, primary)
			return err
		}, o.maxAttempts, o.baseDelay)
		if err != nil {
			// Degraded mode: the primary assessment alone still
			// produces a storable result.
			o.log.WithError(err).WithField("file", fileName).Warn("secondary analysis unavailable, continuing with primary only")
			secondary = nil
		}
	}

	result := &analysis.Result{
		FileName:       fileName,
		AudioURI:       audioURI,
		Transcription:  *transcription,
		Primary:        *primary,
		Secondary:      secondary,
		Consensus:      Merge(primary, secondary),
		ProcessingTime: time.Since(started).Seconds(),
		CreatedAt:      time.Now().UTC(),
	}
	return result, nil
}
