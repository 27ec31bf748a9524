package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/rbright/agrovoz/internal/store"
	"github.com/rbright/agrovoz/internal/store/postgres"
)

// testDSN skips unless AGROVOZ_TEST_POSTGRES_DSN points at a scratch database.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("AGROVOZ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGROVOZ_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS recorders",
		"DROP TABLE IF EXISTS praga",
		"DROP TABLE IF EXISTS workdays",
	} {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	pool.Close()

	s, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Migrate(ctx))

	rep := &store.PestReport{Name: "recorder-1.wav", Description: "lagarta", Property: "fazenda sul", Pest: "lagarta-do-cartucho", Location: "Indisponível"}
	require.NoError(t, s.InsertPestReport(ctx, rep))
	reports, err := s.ListPestReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, rep.ID, reports[0].ID)
	require.Equal(t, "lagarta-do-cartucho", reports[0].Pest)

	require.NoError(t, s.InsertRecording(ctx, &store.Recording{Name: "n.wav", Transcription: "chuva forte"}))
	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	require.Equal(t, "chuva forte", recs[0].Transcription)

	require.NoError(t, s.InsertWorkday(ctx, &store.Workday{Objective: "Colheita", Property: "Fazenda Sul", Field: "05"}))
	days, err := s.ListWorkdays(ctx)
	require.NoError(t, err)
	require.Equal(t, "Fazenda Sul", days[0].Property)
}

func TestStoreDeleteReturnsRemovedRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rep := &store.PestReport{Name: "recorder-2.wav", Description: "ferrugem", File: "file:///tmp/recorder-2.wav"}
	require.NoError(t, s.InsertPestReport(ctx, rep))
	got, err := s.DeletePestReport(ctx, rep.ID)
	require.NoError(t, err)
	require.Equal(t, rep.File, got.File)

	_, err = s.DeletePestReport(ctx, rep.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	rec := &store.Recording{Name: "n.wav", Transcription: "geada"}
	require.NoError(t, s.InsertRecording(ctx, rec))
	_, err = s.DeleteRecording(ctx, rec.ID)
	require.NoError(t, err)
	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestOpenRejectsBadDSN(t *testing.T) {
	_, err := postgres.Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
