package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "nannypay/internal/log"
	"nannypay/internal/model"
	"nannypay/internal/timesheet"
)

// ErrAllSourcesFailed is returned when no configured feed could be read,
// not even from cache.
var ErrAllSourcesFailed = errors.New("ics: no calendar feed could be fetched")

// FeedProvider lists the raw events of a set of ICS feeds the way a
// calendar API would: the default listing first, then the expanded
// instances of recurring masters.
type FeedProvider struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
}

// NewFeedProvider builds a provider. loc is the zone of floating times.
func NewFeedProvider(fetcher *Fetcher, sources []Source, loc *time.Location) *FeedProvider {
	if loc == nil {
		loc = time.Local
	}
	return &FeedProvider{fetcher: fetcher, sources: sources, loc: loc}
}

// Events fetches every feed, waits for all of them and returns the raw
// events for [start, end]. Feeds that fail are logged and skipped.
func (p *FeedProvider) Events(ctx context.Context, start, end time.Time) ([]model.RawEvent, error) {
	if len(p.sources) == 0 {
		appLog.Warn("ics provider: no calendar feed configured")
		return nil, nil
	}

	results, errs := p.fetcher.FetchAll(ctx, p.sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Warn("ics provider: skipping unparsable feed", "source", res.Source.ID, "error", err)
			continue
		}
		parsed = append(parsed, evs...)
	}

	// Days match every event starting on the first day, so instances are
	// expanded from its midnight as well.
	expanded, err := ExpandInstances(parsed, ExpandConfig{
		DisplayLocation: p.loc,
		RangeStart:      timesheet.StartOfDay(start.In(p.loc)),
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	raw := RawEvents(parsed, p.loc)
	raw = append(raw, expanded.Instances...)
	appLog.Info("ics provider: events listed",
		"sources", len(p.sources),
		"failed", len(errs),
		"listed", len(parsed),
		"instances", len(expanded.Instances),
	)
	return raw, nil
}
