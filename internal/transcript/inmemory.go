package transcript

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string]Record
	feedback    map[string]FeedbackReport
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		transcripts: make(map[string]Record),
		feedback:    make(map[string]FeedbackReport),
	}
}

func (s *InMemoryStore) SaveTranscript(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcripts[record.RoomID] = record
	return nil
}

func (s *InMemoryStore) GetTranscript(_ context.Context, roomID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.transcripts[roomID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) HasTranscript(_ context.Context, roomID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.transcripts[roomID]
	return ok, nil
}

func (s *InMemoryStore) SaveFeedback(_ context.Context, report FeedbackReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[report.RoomID] = report
	return nil
}

func (s *InMemoryStore) GetFeedback(_ context.Context, roomID string) (FeedbackReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.feedback[roomID]
	if !ok {
		return FeedbackReport{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) HasFeedback(_ context.Context, roomID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.feedback[roomID]
	return ok, nil
}

func (s *InMemoryStore) RoomIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.transcripts))
	for id := range s.transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryStore) Close() error { return nil }
