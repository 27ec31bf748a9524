// Package observe holds agrovoz's OpenTelemetry metric instruments and the
// optional Prometheus scrape endpoint.
//
// Components take a *Metrics and tolerate nil, so tests and the CLI client
// can run without a meter provider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rbright/agrovoz"

// Metrics holds all instruments recorded by the session daemon.
type Metrics struct {
	// SessionsStarted counts listening sessions by mode and purpose.
	SessionsStarted metric.Int64Counter
	// CommandsFired counts matched voice commands by label.
	CommandsFired metric.Int64Counter
	// CommandMisses counts commands-mode cycles that ended without a match.
	CommandMisses metric.Int64Counter
	// WizardAnswers counts start-of-day answers by step and result.
	WizardAnswers metric.Int64Counter
	// PersistenceFailures counts records or artifacts that failed to save.
	PersistenceFailures metric.Int64Counter
	// RecordsSaved counts stored records by kind.
	RecordsSaved metric.Int64Counter
	// SessionDuration tracks listening session length.
	SessionDuration metric.Float64Histogram
}

var durationBuckets = []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsStarted, err = m.Int64Counter("agrovoz.sessions.started",
		metric.WithDescription("Listening sessions started by mode and purpose."),
	); err != nil {
		return nil, err
	}
	if met.CommandsFired, err = m.Int64Counter("agrovoz.commands.fired",
		metric.WithDescription("Voice commands matched by label."),
	); err != nil {
		return nil, err
	}
	if met.CommandMisses, err = m.Int64Counter("agrovoz.commands.misses",
		metric.WithDescription("Commands cycles that timed out without a match."),
	); err != nil {
		return nil, err
	}
	if met.WizardAnswers, err = m.Int64Counter("agrovoz.wizard.answers",
		metric.WithDescription("Start-of-day answers by step and result."),
	); err != nil {
		return nil, err
	}
	if met.PersistenceFailures, err = m.Int64Counter("agrovoz.persistence.failures",
		metric.WithDescription("Artifacts or records that failed to persist."),
	); err != nil {
		return nil, err
	}
	if met.RecordsSaved, err = m.Int64Counter("agrovoz.records.saved",
		metric.WithDescription("Records stored by kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("agrovoz.session.duration",
		metric.WithDescription("Listening session duration by mode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) RecordSessionStarted(ctx context.Context, mode string, purpose string) {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("purpose", purpose),
	))
}

func (m *Metrics) RecordCommand(ctx context.Context, label string) {
	if m == nil {
		return
	}
	m.CommandsFired.Add(ctx, 1, metric.WithAttributes(attribute.String("label", label)))
}

func (m *Metrics) RecordCommandMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.CommandMisses.Add(ctx, 1)
}

// RecordWizardAnswer records result as one of matched, retry, aborted,
// cancelled, blocked, done.
func (m *Metrics) RecordWizardAnswer(ctx context.Context, step string, result string) {
	if m == nil {
		return
	}
	m.WizardAnswers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordPersistenceFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) RecordSaved(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.RecordsSaved.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordSessionDuration(ctx context.Context, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
}
