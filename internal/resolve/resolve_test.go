package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/extract"
	"github.com/justestif/go-music-muse/internal/query"
)

// mockFinder is a test double for EventFinder.
type mockFinder struct {
	events []db.Event
	err    error
	calls  int
}

func (m *mockFinder) FindByName(_ context.Context, _, _ string) ([]db.Event, error) {
	m.calls++
	return m.events, m.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestContextResolverNoUserNeverQueries(t *testing.T) {
	finder := &mockFinder{events: []db.Event{{Name: "semester abroad", StartDate: date(2022, 1, 1)}}}
	r := NewContextResolver(finder)

	ev := r.Resolve(context.Background(), "semester abroad", "")
	if ev.Resolved {
		t.Error("Resolve() resolved without a user id")
	}
	if finder.calls != 0 {
		t.Errorf("finder called %d times, want 0", finder.calls)
	}
}

func TestContextResolverResolves(t *testing.T) {
	finder := &mockFinder{events: []db.Event{
		{Name: "Semester Abroad in Madrid", StartDate: date(2022, 1, 10), EndDate: ptr(date(2022, 5, 30))},
		{Name: "Semester Abroad", StartDate: date(2021, 8, 20), EndDate: ptr(date(2021, 12, 15)), Description: ptr("Lisbon")},
	}}
	r := NewContextResolver(finder)

	ev := r.Resolve(context.Background(), "semester abroad", "u1")
	if !ev.Resolved {
		t.Fatal("Resolve() unresolved, want resolved")
	}
	if ev.Name != "Semester Abroad" {
		t.Errorf("Name = %q, want closest match", ev.Name)
	}
	if !ev.Start.Equal(date(2021, 8, 20)) || !ev.End.Equal(date(2021, 12, 15)) {
		t.Errorf("window = %v..%v", ev.Start, ev.End)
	}
	if ev.Description != "Lisbon" {
		t.Errorf("Description = %q, want Lisbon", ev.Description)
	}
}

func TestContextResolverOpenEndedUsesToday(t *testing.T) {
	finder := &mockFinder{events: []db.Event{{Name: "new job", StartDate: date(2024, 2, 1)}}}
	now := time.Date(2024, 6, 9, 17, 45, 0, 0, time.UTC)
	r := NewContextResolver(finder, WithClock(func() time.Time { return now }))

	ev := r.Resolve(context.Background(), "new job", "u1")
	if !ev.Resolved {
		t.Fatal("Resolve() unresolved")
	}
	if !ev.End.Equal(date(2024, 6, 9)) {
		t.Errorf("End = %v, want today's date", ev.End)
	}
}

func TestContextResolverUnresolved(t *testing.T) {
	tests := []struct {
		name   string
		finder *mockFinder
	}{
		{"no candidates", &mockFinder{}},
		{"candidate without substring", &mockFinder{events: []db.Event{{Name: "gap year"}}}},
		{"store error", &mockFinder{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewContextResolver(tt.finder).Resolve(context.Background(), "semester abroad", "u1")
			if ev.Resolved {
				t.Error("Resolve() resolved, want unresolved")
			}
			if ev.Name != "semester abroad" {
				t.Errorf("Name = %q, want the phrase", ev.Name)
			}
		})
	}
}

func TestBestMatchTieBreaks(t *testing.T) {
	events := []db.Event{
		{Name: "Tour B", StartDate: date(2020, 1, 1)},
		{Name: "Tour A", StartDate: date(2019, 1, 1)},
	}
	got, ok := bestMatch("tour", events)
	if !ok || got.Name != "Tour A" {
		t.Errorf("bestMatch() = %q, %v, want earlier start on equal score", got.Name, ok)
	}
}

func TestSimilarity(t *testing.T) {
	if got := similarity("abc", "abc"); got != 1 {
		t.Errorf("similarity(equal) = %v, want 1", got)
	}
	if got := similarity("kitten", "sitting"); got < 0.74 || got > 0.75 {
		t.Errorf("similarity(kitten, sitting) = %v, want about 0.746", got)
	}
	if near, far := similarity("semester abroad", "semester abroad 2"), similarity("semester abroad", "semester abroad in madrid"); near <= far {
		t.Errorf("similarity ranks the longer name higher: %v <= %v", near, far)
	}
}

// blockingFinder waits until ctx ends, like a stalled store.
type blockingFinder struct{}

func (blockingFinder) FindByName(ctx context.Context, _, _ string) ([]db.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(3 * time.Second):
		return nil, errors.New("lookup was not cancelled")
	}
}

func TestContextResolverLookupTimeout(t *testing.T) {
	r := NewContextResolver(blockingFinder{}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	ev := r.Resolve(context.Background(), "semester abroad", "u1")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Resolve() took %v with a 20ms lookup timeout", elapsed)
	}
	if ev.Resolved {
		t.Error("Resolve() resolved after a timed-out lookup")
	}
}

func TestIntentMergesEvent(t *testing.T) {
	ext := extract.New().Extract(context.Background(), "What were my top songs during my semester abroad?")
	ev := &query.EventContext{Name: "semester abroad"}

	q := Intent("What were my top songs during my semester abroad?", ext, ev)
	if q.Action() != query.ActionTop || q.Entity() != query.EntityTrack {
		t.Errorf("got %v/%v, want top/track", q.Action(), q.Entity())
	}
	got, ok := q.Event()
	if !ok || got.Name != "semester abroad" || got.Resolved {
		t.Errorf("Event() = %+v, %v", got, ok)
	}

	q = Intent("x", ext, nil)
	if _, ok := q.Event(); ok {
		t.Error("Event() present without context")
	}
}
