package observe

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCountersRecord(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionStarted(ctx, "commands", "")
	m.RecordSessionStarted(ctx, "dictation", "report")
	m.RecordCommand(ctx, "abrir mapa")
	m.RecordCommandMiss(ctx)
	m.RecordWizardAnswer(ctx, "objectives", "matched")
	m.RecordPersistenceFailure(ctx, "artifact")
	m.RecordSaved(ctx, "pest_report")

	rm := collect(t, reader)
	require.Equal(t, int64(2), sumOf(t, rm, "agrovoz.sessions.started"))
	require.Equal(t, int64(1), sumOf(t, rm, "agrovoz.commands.fired"))
	require.Equal(t, int64(1), sumOf(t, rm, "agrovoz.commands.misses"))
	require.Equal(t, int64(1), sumOf(t, rm, "agrovoz.wizard.answers"))
	require.Equal(t, int64(1), sumOf(t, rm, "agrovoz.persistence.failures"))
	require.Equal(t, int64(1), sumOf(t, rm, "agrovoz.records.saved"))
}

func TestSessionDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordSessionDuration(context.Background(), "dictation", 3*time.Second)

	rm := collect(t, reader)
	found := findMetric(rm, "agrovoz.session.duration")
	require.NotNil(t, found)
	hist, ok := found.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	require.Equal(t, uint64(1), hist.DataPoints[0].Count)
	require.InDelta(t, 3.0, hist.DataPoints[0].Sum, 1e-9)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordSessionStarted(ctx, "commands", "")
	m.RecordCommand(ctx, "voltar")
	m.RecordCommandMiss(ctx)
	m.RecordWizardAnswer(ctx, "field", "retry")
	m.RecordPersistenceFailure(ctx, "store")
	m.RecordSaved(ctx, "recording")
	m.RecordSessionDuration(ctx, "commands", time.Second)
}

func TestInitProviderExposesPrometheusText(t *testing.T) {
	p, err := InitProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider)
	require.NoError(t, err)
	m.RecordCommand(context.Background(), "saldo")

	srv := httptest.NewServer(p.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "agrovoz_commands_fired")
}

func TestServeStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, http.NotFoundHandler()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
