package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rbright/agrovoz/internal/artifact"
	"github.com/rbright/agrovoz/internal/ipc"
	"github.com/rbright/agrovoz/internal/store"
)

// listRecords answers the records command straight from the store, oldest first.
func (c *Controller) listRecords(ctx context.Context) ipc.Response {
	recs, err := c.store.ListRecordings(ctx)
	if err != nil {
		return c.respond(false, "", fmt.Sprintf("list recordings: %v", err))
	}
	reports, err := c.store.ListPestReports(ctx)
	if err != nil {
		return c.respond(false, "", fmt.Sprintf("list pest reports: %v", err))
	}
	days, err := c.store.ListWorkdays(ctx)
	if err != nil {
		return c.respond(false, "", fmt.Sprintf("list workdays: %v", err))
	}

	out := make([]ipc.Record, 0, len(recs)+len(reports)+len(days))
	for _, r := range recs {
		out = append(out, ipc.Record{
			Kind:     ipc.RecordNote,
			ID:       r.ID,
			Name:     r.Name,
			Text:     r.Transcription,
			File:     r.File,
			Location: r.Location,
			At:       r.Datetime,
		})
	}
	for _, r := range reports {
		out = append(out, ipc.Record{
			Kind:     ipc.RecordReport,
			ID:       r.ID,
			Name:     r.Name,
			Text:     r.Description,
			Property: r.Property,
			Detail:   r.Pest,
			File:     r.File,
			Location: r.Location,
			At:       r.Datetime,
		})
	}
	for _, d := range days {
		out = append(out, ipc.Record{
			Kind:     ipc.RecordWorkday,
			ID:       d.ID,
			Text:     d.Objective,
			Property: d.Property,
			Detail:   d.Field,
			At:       d.StartedAt,
		})
	}
	slices.SortStableFunc(out, func(a, b ipc.Record) int {
		return a.At.Compare(b.At)
	})

	resp := c.respond(true, fmt.Sprintf("%d records", len(out)), "")
	resp.Records = out
	return resp
}

// deleteRecord removes a note or pest report by id, then its audio file.
// Workdays are kept.
func (c *Controller) deleteRecord(ctx context.Context, id string) ipc.Response {
	if id == "" {
		return c.respond(false, "", "delete requires a record id")
	}

	file, err := c.deleteByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.respond(false, "", fmt.Sprintf("no note or report with id %s", id))
	}
	if err != nil {
		return c.respond(false, "", fmt.Sprintf("delete %s: %v", id, err))
	}

	if err := artifact.Discard(file); err != nil {
		c.log(slog.LevelWarn, "discard deleted audio failed", "id", id, "error", err.Error())
	}
	c.log(slog.LevelInfo, "record deleted", "id", id)
	return c.respond(true, "deleted "+id, "")
}

func (c *Controller) deleteByID(ctx context.Context, id string) (string, error) {
	rep, err := c.store.DeletePestReport(ctx, id)
	if err == nil {
		return rep.File, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	rec, err := c.store.DeleteRecording(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.File, nil
}
