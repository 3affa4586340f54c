package storage

import (
	"context"
	"errors"
	"time"

	"github.com/atento-labs/callaudit/analysis"
)

// ErrNotFound is returned when no evaluation record exists for a file.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateResult is returned when a result already exists for a file.
var ErrDuplicateResult = errors.New("already processed: result exists for file")

// Evaluation is the business record an analysis result attaches to. It is
// created by the upload surface before the audio event is published; the
// worker only ever flips its treated flag.
type Evaluation struct {
	ID        string    `bson:"-" json:"id"`
	FileName  string    `bson:"fileName" json:"fileName"`
	Sent      bool      `bson:"sent" json:"sent"`
	Treated   bool      `bson:"treated" json:"treated"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Store persists evaluations and analysis results, keyed by file name.
type Store interface {
	// FindEvaluation returns the evaluation for a file, or ErrNotFound.
	FindEvaluation(ctx context.Context, fileName string) (*Evaluation, error)

	// ResultExists reports whether a result was already stored for a file.
	ResultExists(ctx context.Context, fileName string) (bool, error)

	// InsertResult stores a result. At most one result may exist per file
	// name; a second insert returns ErrDuplicateResult.
	InsertResult(ctx context.Context, result *analysis.Result) (string, error)

	// MarkTreated flips the evaluation's treated flag from false to true
	// as a single conditional update. It reports whether this call won
	// the transition.
	MarkTreated(ctx context.Context, fileName string) (bool, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}
