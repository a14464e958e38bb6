// Package publish mirrors the study schedule into external calendars.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"studyplan/internal/export"
	"studyplan/internal/models"
	"studyplan/internal/store"
)

// Target is an external calendar events can be written to.
type Target interface {
	Name() string
	PublishEvent(ctx context.Context, event models.ScheduleEvent, uid string) error
	DeleteEvent(ctx context.Context, uid string) error
}

// Batch is the complete set of events that should exist on the target between
// From and To. Published events in that range that are missing from Events are
// removed from the target. A zero range disables removal.
type Batch struct {
	From   time.Time
	To     time.Time
	Events []models.ScheduleEvent
}

// Source yields the events to publish.
type Source func(ctx context.Context) (Batch, error)

// Result summarises one publish cycle.
type Result struct {
	Published int
	Skipped   int
	Removed   int
	Failed    int
}

// Publisher orchestrates publishing from the planner to one target.
type Publisher struct {
	logger *slog.Logger
	source Source
	target Target
	store  *store.Store
	dryRun bool
	tz     *time.Location
}

// NewPublisher creates a new Publisher. Publish state is kept in st.
func NewPublisher(logger *slog.Logger, source Source, target Target, st *store.Store, dryRun bool, tz *time.Location) *Publisher {
	if tz == nil {
		tz = time.Local
	}
	return &Publisher{
		logger: logger,
		source: source,
		target: target,
		store:  st,
		dryRun: dryRun,
		tz:     tz,
	}
}

// Publish performs a full publish cycle.
func (p *Publisher) Publish(ctx context.Context) (Result, error) {
	p.logger.Info("Starting publish cycle.", "target", p.target.Name())

	batch, err := p.source(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	p.logger.Info("Fetched schedule events.", "count", len(batch.Events))

	var res Result
	for _, event := range batch.Events {
		published, err := p.publishEvent(ctx, event)
		switch {
		case err != nil:
			res.Failed++
			// Continue with the next event even if one fails.
			p.logger.Error("Failed to publish event", "title", event.Title, "error", err)
		case published:
			res.Published++
		default:
			res.Skipped++
		}
	}

	if !batch.From.IsZero() && batch.To.After(batch.From) {
		removed, failed, err := p.prune(ctx, batch)
		if err != nil {
			return res, err
		}
		res.Removed += removed
		res.Failed += failed
	}

	p.logger.Info("Publish cycle finished.", "published", res.Published, "skipped", res.Skipped,
		"removed", res.Removed, "failed", res.Failed)
	return res, nil
}

// prune deletes events that were published in the batch's range but are no
// longer part of it.
func (p *Publisher) prune(ctx context.Context, batch Batch) (removed, failed int, err error) {
	pubs, err := p.store.ListPublications(ctx, p.target.Name(), batch.From, batch.To)
	if err != nil {
		return 0, 0, err
	}
	current := make(map[string]bool, len(batch.Events))
	for _, e := range batch.Events {
		current[e.ID] = true
	}

	for _, pub := range pubs {
		if current[pub.EventID] {
			continue
		}
		if p.dryRun {
			p.logger.Info("[DRY RUN] Would remove event", "id", pub.EventID, "uid", pub.RemoteUID, "target", p.target.Name())
			removed++
			continue
		}
		if err := p.target.DeleteEvent(ctx, pub.RemoteUID); err != nil {
			failed++
			p.logger.Error("Failed to remove event", "id", pub.EventID, "error", err)
			continue
		}
		if err := p.store.DeletePublication(ctx, pub.Target, pub.EventID); err != nil {
			return removed, failed, fmt.Errorf("failed to save publish state: %w", err)
		}
		p.logger.Info("Removed event no longer in the schedule.", "id", pub.EventID)
		removed++
	}
	return removed, failed, nil
}

// publishEvent writes one event unless the target already holds the same version.
func (p *Publisher) publishEvent(ctx context.Context, event models.ScheduleEvent) (bool, error) {
	fp := Fingerprint(event)
	uid := export.UID(event)

	prev, err := p.store.GetPublication(ctx, p.target.Name(), event.ID)
	switch {
	case err == nil:
		if prev.Fingerprint == fp {
			p.logger.Debug("Event already published, skipping.", "title", event.Title, "id", event.ID)
			return false, nil
		}
		uid = prev.RemoteUID
		p.logger.Info("Event changed, republishing.", "title", event.Title)
	case errors.Is(err, store.ErrNotFound):
		p.logger.Info("New event found, publishing.", "title", event.Title)
	default:
		return false, err
	}

	event.StartTime = event.StartTime.In(p.tz)
	event.EndTime = event.EndTime.In(p.tz)

	if p.dryRun {
		p.logger.Info("[DRY RUN] Would publish event", "title", event.Title, "startTime", event.StartTime, "target", p.target.Name())
		return true, nil
	}

	if err := p.target.PublishEvent(ctx, event, uid); err != nil {
		return false, fmt.Errorf("failed to publish event to %s: %w", p.target.Name(), err)
	}

	err = p.store.SavePublication(ctx, store.Publication{
		Target:      p.target.Name(),
		EventID:     event.ID,
		RemoteUID:   uid,
		Fingerprint: fp,
		StartsAt:    event.StartTime,
	})
	if err != nil {
		return true, fmt.Errorf("failed to save publish state: %w", err)
	}
	return true, nil
}

// Fingerprint identifies the published version of an event.
func Fingerprint(e models.ScheduleEvent) string {
	h := sha256.New()
	for _, part := range []string{
		e.Title, e.Description, e.Color,
		strconv.FormatInt(e.StartTime.Unix(), 10),
		strconv.FormatInt(e.EndTime.Unix(), 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
