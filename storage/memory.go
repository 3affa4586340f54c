package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/atento-labs/callaudit/analysis"
)

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu          sync.Mutex
	evaluations map[string]*Evaluation
	results     map[string]*analysis.Result
	nextID      int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		evaluations: make(map[string]*Evaluation),
		results:     make(map[string]*analysis.Result),
	}
}

// SeedEvaluation registers an evaluation record, as the upload surface
// would before publishing the queue event.
func (s *MemoryStore) SeedEvaluation(fileName string) *Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	eval := &Evaluation{
		ID:        "eval-" + strconv.Itoa(s.nextID),
		FileName:  fileName,
		Sent:      true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.evaluations[fileName] = eval
	return eval
}

func (s *MemoryStore) FindEvaluation(ctx context.Context, fileName string) (*Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eval, ok := s.evaluations[fileName]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *eval
	return &copied, nil
}

func (s *MemoryStore) ResultExists(ctx context.Context, fileName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.results[fileName]
	return ok, nil
}

func (s *MemoryStore) InsertResult(ctx context.Context, result *analysis.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[result.FileName]; ok {
		return "", ErrDuplicateResult
	}
	s.nextID++
	id := "result-" + strconv.Itoa(s.nextID)
	s.results[result.FileName] = result
	return id, nil
}

func (s *MemoryStore) MarkTreated(ctx context.Context, fileName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eval, ok := s.evaluations[fileName]
	if !ok || eval.Treated {
		return false, nil
	}
	eval.Treated = true
	eval.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Result returns the stored result for a file, if any.
func (s *MemoryStore) Result(fileName string) (*analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[fileName]
	return r, ok
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
