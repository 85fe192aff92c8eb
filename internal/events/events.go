// Package events serves registry events (bankruptcies, formations, capital
// changes) from fixture data, filtered by type, industry and date window.
package events

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvrgpt/internal/model"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Provider lists registry events matching a filter.
type Provider interface {
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
}

// Fixture reads events from <dir>/events.json.
type Fixture struct {
	dir string
}

func NewFixture(dir string) *Fixture {
	return &Fixture{dir: dir}
}

func (f *Fixture) load() ([]model.Event, error) {
	path := filepath.Join(f.dir, "events.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Event{}, nil
		}
		return nil, eris.Wrap(err, "events: read fixture")
	}
	var evs []model.Event
	if err := json.Unmarshal(raw, &evs); err != nil {
		return nil, eris.Wrapf(err, "events: decode %s", path)
	}
	return evs, nil
}

func (f *Fixture) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	evs, err := f.load()
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		if matches(ev, filter) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.After(out[j].EventDate) })

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return []model.Event{}, nil
	}
	out = out[offset:]

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(ev model.Event, filter model.EventFilter) bool {
	if filter.EventType != "" && !strings.EqualFold(ev.EventType, filter.EventType) {
		return false
	}
	if len(filter.NACEPrefixes) > 0 {
		ok := false
		for _, prefix := range filter.NACEPrefixes {
			if prefix != "" && strings.HasPrefix(ev.NACE, prefix) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.DateFrom != nil && ev.EventDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && ev.EventDate.After(*filter.DateTo) {
		return false
	}
	return true
}
