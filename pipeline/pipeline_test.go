package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atento-labs/callaudit/analysis"
)

type fakeTranscriber struct {
	transcription *analysis.Transcription
	errs          []error
	calls         int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioURI, fileName, language string) (*analysis.Transcription, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.transcription, nil
}

type fakeAnalyzer struct {
	assessment *analysis.Assessment
	err        error
	calls      int
	lastPrior  *analysis.Assessment
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript string, words []analysis.WordTiming, prior *analysis.Assessment) (*analysis.Assessment, error) {
	f.calls++
	f.lastPrior = prior
	if f.err != nil {
		return nil, f.err
	}
	return f.assessment, nil
}

func newOrchestrator(tr analysis.Transcriber, primary, secondary analysis.Analyzer) *Orchestrator {
	return New(Options{
		Transcriber: tr,
		Primary:     primary,
		Secondary:   secondary,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
}

func TestRunFullPipeline(t *testing.T) {
	concurs := true
	tr := &fakeTranscriber{transcription: &analysis.Transcription{Text: "bom dia", Confidence: 0.9}}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{Provider: "gemini", TotalScore: 75}}
	secondary := &fakeAnalyzer{assessment: &analysis.Assessment{Provider: "claude", TotalScore: 70, Concurs: &concurs}}

	result, err := newOrchestrator(tr, primary, secondary).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Primary.TotalScore != 75 {
		t.Errorf("primary score = %d", result.Primary.TotalScore)
	}
	if result.Secondary == nil || result.Secondary.TotalScore != 70 {
		t.Errorf("secondary = %+v", result.Secondary)
	}
	if result.Consensus.Score != 75 || !result.Consensus.Validated || result.Consensus.Sources != 2 {
		t.Errorf("consensus = %+v", result.Consensus)
	}
	if secondary.lastPrior == nil || secondary.lastPrior.TotalScore != 75 {
		t.Error("secondary must receive the primary assessment for cross-validation")
	}
	if primary.lastPrior != nil {
		t.Error("primary must run without a prior assessment")
	}
}

func TestRunRetriesTranscription(t *testing.T) {
	tr := &fakeTranscriber{
		transcription: &analysis.Transcription{Text: "ola"},
		errs:          []error{errors.New("connection reset by peer")},
	}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{TotalScore: 10}}

	result, err := newOrchestrator(tr, primary, nil).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if tr.calls != 2 {
		t.Errorf("expected one retry, got %d transcribe calls", tr.calls)
	}
	if result.Transcription.Text != "ola" {
		t.Errorf("transcription = %q", result.Transcription.Text)
	}
}

func TestRunTranscriptionFailureAborts(t *testing.T) {
	tr := &fakeTranscriber{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{}}

	_, err := newOrchestrator(tr, primary, nil).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err == nil {
		t.Fatal("expected a failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageTranscription {
		t.Errorf("expected a transcription stage error, got %v", err)
	}
	if primary.calls != 0 {
		t.Error("primary must not run after transcription fails")
	}
}

func TestRunEmptyTranscriptIsFailure(t *testing.T) {
	tr := &fakeTranscriber{transcription: &analysis.Transcription{Text: ""}}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{}}

	_, err := newOrchestrator(tr, primary, nil).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err == nil {
		t.Fatal("expected a failure for an empty transcript")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageTranscription {
		t.Errorf("expected a transcription stage error, got %v", err)
	}
}

func TestRunPrimaryFailureAborts(t *testing.T) {
	tr := &fakeTranscriber{transcription: &analysis.Transcription{Text: "ola"}}
	primary := &fakeAnalyzer{err: errors.New("invalid response: score 500 out of range")}
	secondary := &fakeAnalyzer{assessment: &analysis.Assessment{}}

	_, err := newOrchestrator(tr, primary, secondary).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err == nil {
		t.Fatal("expected a failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StagePrimary {
		t.Errorf("expected a primary stage error, got %v", err)
	}
	if secondary.calls != 0 {
		t.Error("secondary must not run after the primary fails")
	}
}

func TestRunSecondaryFailureDegrades(t *testing.T) {
	tr := &fakeTranscriber{transcription: &analysis.Transcription{Text: "ola"}}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{TotalScore: 40}}
	secondary := &fakeAnalyzer{err: errors.New("service unavailable")}

	result, err := newOrchestrator(tr, primary, secondary).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err != nil {
		t.Fatalf("secondary failure must not fail the run: %v", err)
	}
	if result.Secondary != nil {
		t.Error("expected no secondary assessment")
	}
	if result.Consensus.Sources != 1 || result.Consensus.Validated {
		t.Errorf("consensus = %+v", result.Consensus)
	}
	if result.Consensus.Score != 40 {
		t.Errorf("consensus score = %d", result.Consensus.Score)
	}
}

func TestRunWithoutSecondary(t *testing.T) {
	tr := &fakeTranscriber{transcription: &analysis.Transcription{Text: "ola"}}
	primary := &fakeAnalyzer{assessment: &analysis.Assessment{TotalScore: -30}}

	result, err := newOrchestrator(tr, primary, nil).Run(context.Background(), "call.mp3", "gs://b/call.mp3")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Consensus.Score != -30 || result.Consensus.Sources != 1 {
		t.Errorf("consensus = %+v", result.Consensus)
	}
}

func TestStageErrorPreservesCause(t *testing.T) {
	cause := errors.New("record not found")
	err := &StageError{Stage: StagePrimary, Err: cause}

	if err.Error() != "primary analysis: record not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}
