// Package store keeps the records produced by voice sessions: plain
// dictations, pest reports, and started workdays.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
)

// Recording is a saved free-form dictation.
type Recording struct {
	ID            string
	Name          string
	Transcription string
	File          string
	Location      string
	Datetime      time.Time
}

// PestReport is a saved field pest/anomaly report.
type PestReport struct {
	ID          string
	Name        string
	Description string
	Property    string
	Pest        string
	File        string
	Location    string
	Datetime    time.Time
}

// Workday records a completed start-of-day dialogue.
type Workday struct {
	ID        string
	Objective string
	Property  string
	Field     string
	StartedAt time.Time
}

// Store persists session records.
type Store interface {
	InsertRecording(ctx context.Context, rec *Recording) error
	ListRecordings(ctx context.Context) ([]Recording, error)
	DeleteRecording(ctx context.Context, id string) (Recording, error)
	InsertPestReport(ctx context.Context, rep *PestReport) error
	ListPestReports(ctx context.Context) ([]PestReport, error)
	DeletePestReport(ctx context.Context, id string) (PestReport, error)
	InsertWorkday(ctx context.Context, day *Workday) error
	ListWorkdays(ctx context.Context) ([]Workday, error)
	Close()
}

// Stamp fills a missing id and timestamp. Implementations call it on insert.
func Stamp(id *string, at *time.Time, now time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if at.IsZero() {
		*at = now.UTC()
	}
}
