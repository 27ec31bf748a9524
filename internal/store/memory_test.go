package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	rep := &PestReport{Name: "recorder-1.wav", Description: "lagarta", Property: "fazenda sul", Pest: "lagarta", Location: "Indisponível"}
	require.NoError(t, s.InsertPestReport(ctx, rep))
	_, err := uuid.Parse(rep.ID)
	require.NoError(t, err)
	require.False(t, rep.Datetime.IsZero())

	rec := &Recording{Name: "n.wav", Transcription: "anotar chuva"}
	require.NoError(t, s.InsertRecording(ctx, rec))

	day := &Workday{Objective: "Colheita", Property: "Fazenda Sul", Field: "05"}
	require.NoError(t, s.InsertWorkday(ctx, day))

	reports, err := s.ListPestReports(ctx)
	require.NoError(t, err)
	require.Equal(t, []PestReport{*rep}, reports)

	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	days, err := s.ListWorkdays(ctx)
	require.NoError(t, err)
	require.Equal(t, "05", days[0].Field)
}

func TestMemStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	first := &Recording{Name: "a.wav"}
	second := &Recording{Name: "b.wav", File: "file:///tmp/b.wav"}
	require.NoError(t, s.InsertRecording(ctx, first))
	require.NoError(t, s.InsertRecording(ctx, second))

	got, err := s.DeleteRecording(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, "file:///tmp/b.wav", got.File)
	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	require.Equal(t, []Recording{*first}, recs)

	_, err = s.DeleteRecording(ctx, second.ID)
	require.ErrorIs(t, err, ErrNotFound)

	rep := &PestReport{Name: "r.wav"}
	require.NoError(t, s.InsertPestReport(ctx, rep))
	_, err = s.DeletePestReport(ctx, rep.ID)
	require.NoError(t, err)
	_, err = s.DeletePestReport(ctx, rep.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStampKeepsExistingValues(t *testing.T) {
	at := time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)
	id := "fixed"
	Stamp(&id, &at, time.Now())
	require.Equal(t, "fixed", id)
	require.Equal(t, 2025, at.Year())
}

func TestMemStoreClosed(t *testing.T) {
	s := NewMemStore()
	s.Close()
	require.ErrorIs(t, s.InsertRecording(context.Background(), &Recording{}), ErrClosed)
	_, err := s.ListWorkdays(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
