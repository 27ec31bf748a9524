package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/agrovoz/internal/artifact"
	"github.com/rbright/agrovoz/internal/capture"
	"github.com/rbright/agrovoz/internal/location"
	"github.com/rbright/agrovoz/internal/store"
	"github.com/rbright/agrovoz/internal/transcript"
	"github.com/rbright/agrovoz/internal/wizard"
)

const (
	noDescription = "Sem descrição"
	undefined     = "Indefinido"
)

var timeNow = time.Now

// Intent is one recognized user intention handed to the UI collaborator.
type Intent struct {
	Name   string
	Label  string
	Values map[string]string
	At     time.Time
}

// IntentSink receives every fired intent.
type IntentSink interface {
	Publish(context.Context, Intent)
}

// IntentFunc adapts a function to the IntentSink interface.
type IntentFunc func(context.Context, Intent)

func (f IntentFunc) Publish(ctx context.Context, in Intent) {
	f(ctx, in)
}

// logSink writes intents to the runtime log.
func logSink(logger *slog.Logger) IntentSink {
	return IntentFunc(func(_ context.Context, in Intent) {
		if logger == nil {
			return
		}
		args := []any{"intent", in.Name, "label", in.Label}
		for k, v := range in.Values {
			args = append(args, k, v)
		}
		logger.Info("intent", args...)
	})
}

func (c *Controller) publishIntent(ctx context.Context, in Intent) {
	if in.At.IsZero() {
		in.At = timeNow().UTC()
	}
	c.lastIntent = in.Name
	c.sink.Publish(ctx, in)
}

// saveOutcome is the result of persisting one dictation.
type saveOutcome struct {
	// skipped means there was neither text nor audio to keep.
	skipped bool
	name    string
	err     error
}

// cleanup runs on the worker: it stops the engine, ends any capture, and
// persists the record off the worker before reporting back to the loop.
func (c *Controller) cleanup(ctx context.Context, gen uint64, ex exit) {
	if err := c.engine.Stop(ctx); err != nil {
		c.log(slog.LevelWarn, "stop recognizer failed", "error", err.Error())
	}

	var (
		rec      capture.Recording
		recorded bool
	)
	if ex.purpose.records() {
		rec, recorded = c.capture.End(ctx)
	}

	if ex.discard || !ex.purpose.records() {
		if recorded {
			if err := artifact.Discard(rec.URI); err != nil {
				c.log(slog.LevelWarn, "discard capture failed", "error", err.Error())
			}
		}
		c.post(cleaned{gen: gen, exit: ex, saved: saveOutcome{skipped: true}})
		return
	}

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		out := c.persist(ctx, ex, rec, recorded)
		c.post(cleaned{gen: gen, exit: ex, saved: out})
	}()
}

// persist moves the capture into the recordings dir, resolves the location
// and inserts the note or pest report.
func (c *Controller) persist(ctx context.Context, ex exit, rec capture.Recording, recorded bool) saveOutcome {
	text := ex.transcript
	if text == "" && !recorded {
		return saveOutcome{skipped: true}
	}

	now := timeNow().UTC()
	var saved artifact.Saved
	if recorded {
		opts := c.cfg.Artifacts
		opts.Filename = artifact.BuildName(rec.URI, artifact.DefaultPrefix, now)
		s, err := artifact.Persist(rec.URI, opts)
		if err != nil {
			c.metrics.RecordPersistenceFailure(ctx, "artifact")
			return saveOutcome{err: fmt.Errorf("persist recording: %w", err)}
		}
		saved = s
	}

	where := location.Resolve(ctx, c.locator)

	var err error
	switch ex.purpose {
	case PurposeNote:
		err = c.store.InsertRecording(ctx, &store.Recording{
			Name:          saved.Name,
			Transcription: text,
			File:          saved.URI,
			Location:      where,
			Datetime:      now,
		})
	case PurposeReport:
		fields := transcript.SplitFields(text, c.cfg.Separator)
		err = c.store.InsertPestReport(ctx, &store.PestReport{
			Name:        saved.Name,
			Description: transcript.FieldOr(fields, 0, noDescription),
			Property:    transcript.FieldOr(fields, 1, undefined),
			Pest:        transcript.FieldOr(fields, 2, undefined),
			File:        saved.URI,
			Location:    where,
			Datetime:    now,
		})
	}
	if err != nil {
		c.metrics.RecordPersistenceFailure(ctx, "store")
		return saveOutcome{name: saved.Name, err: fmt.Errorf("insert %s: %w", ex.purpose, err)}
	}

	c.metrics.RecordSaved(ctx, string(ex.purpose))
	c.log(slog.LevelInfo, "record saved",
		"purpose", string(ex.purpose),
		"file", saved.URI,
		"bytes", saved.Size,
		"location", where,
	)
	return saveOutcome{name: saved.Name}
}

// saveWorkday stores the confirmed start of day in the background.
func (c *Controller) saveWorkday(ctx context.Context, st wizard.State) {
	day := store.Workday{
		Objective: st.Objective,
		Property:  st.Property,
		Field:     st.Field,
		StartedAt: timeNow().UTC(),
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.store.InsertWorkday(ctx, &day); err != nil {
			c.metrics.RecordPersistenceFailure(ctx, "workday")
			c.log(slog.LevelError, "save workday failed", "error", err.Error())
			return
		}
		c.metrics.RecordSaved(ctx, "workday")
	}()
}
