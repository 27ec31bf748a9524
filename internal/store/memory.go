package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore keeps records in process memory, newest last.
type MemStore struct {
	mu         sync.RWMutex
	closed     bool
	recordings []Recording
	reports    []PestReport
	workdays   []Workday
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) InsertRecording(_ context.Context, rec *Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	Stamp(&rec.ID, &rec.Datetime, time.Now())
	s.recordings = append(s.recordings, *rec)
	return nil
}

func (s *MemStore) ListRecordings(_ context.Context) ([]Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]Recording(nil), s.recordings...), nil
}

// DeleteRecording removes the recording with id and returns it.
func (s *MemStore) DeleteRecording(_ context.Context, id string) (Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Recording{}, ErrClosed
	}
	i := slices.IndexFunc(s.recordings, func(r Recording) bool { return r.ID == id })
	if i < 0 {
		return Recording{}, ErrNotFound
	}
	rec := s.recordings[i]
	s.recordings = slices.Delete(s.recordings, i, i+1)
	return rec, nil
}

func (s *MemStore) InsertPestReport(_ context.Context, rep *PestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	Stamp(&rep.ID, &rep.Datetime, time.Now())
	s.reports = append(s.reports, *rep)
	return nil
}

func (s *MemStore) ListPestReports(_ context.Context) ([]PestReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]PestReport(nil), s.reports...), nil
}

func (s *MemStore) DeletePestReport(_ context.Context, id string) (PestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return PestReport{}, ErrClosed
	}
	i := slices.IndexFunc(s.reports, func(r PestReport) bool { return r.ID == id })
	if i < 0 {
		return PestReport{}, ErrNotFound
	}
	rep := s.reports[i]
	s.reports = slices.Delete(s.reports, i, i+1)
	return rep, nil
}

func (s *MemStore) InsertWorkday(_ context.Context, day *Workday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	Stamp(&day.ID, &day.StartedAt, time.Now())
	s.workdays = append(s.workdays, *day)
	return nil
}

func (s *MemStore) ListWorkdays(_ context.Context) ([]Workday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return append([]Workday(nil), s.workdays...), nil
}

// Close makes every later call fail with ErrClosed.
func (s *MemStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
