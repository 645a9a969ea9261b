package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/engine"
)

type fakeStore struct{}

func (fakeStore) Run(_ context.Context, sql string, _ ...any) ([]db.Row, error) {
	if strings.Contains(sql, "skipped_count") {
		return []db.Row{{int64(1), int64(4)}}, nil
	}
	return []db.Row{{"SZA", int64(100)}, {"Unknown Artist", int64(90)}, {"Drake", int64(80)}}, nil
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "ask": false, "migrate": false, "events": false, "rules": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestAskAllKeepsOrder(t *testing.T) {
	e := engine.New(fakeStore{}, nil)
	questions := []string{
		"Who are my top artists?",
		"What percentage of my plays were skipped?",
		"Who are my top 2 artists?",
	}

	answers, err := askAll(context.Background(), e, questions, "")
	if err != nil {
		t.Fatalf("askAll() error = %v", err)
	}
	for i, a := range answers {
		if a.Question != questions[i] {
			t.Errorf("answers[%d].Question = %q, want %q", i, a.Question, questions[i])
		}
	}
	if !strings.Contains(answers[1].HTML, "25.00%") {
		t.Errorf("percentage answer = %q", answers[1].HTML)
	}
}

func TestPrintAnswers(t *testing.T) {
	e := engine.New(fakeStore{}, nil)
	answers, err := askAll(context.Background(), e, []string{"Who are my top artists?"}, "")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := printAnswers(&buf, answers, false, false); err != nil {
		t.Fatal(err)
	}
	want := "Q: Who are my top artists?\nYour top artists:\n  - SZA\n  - Drake\n"
	if buf.String() != want {
		t.Errorf("plain output =\n%q\nwant\n%q", buf.String(), want)
	}

	buf.Reset()
	if err := printAnswers(&buf, answers, true, false); err != nil {
		t.Fatal(err)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decoding JSON line: %v", err)
	}
	parsed, _ := line["parsed"].(map[string]any)
	if parsed["action"] != "top" {
		t.Errorf("parsed.action = %v, want top", parsed["action"])
	}
}

func TestPlainText(t *testing.T) {
	got := plainText("<h2>Sorry, something went wrong while answering your question.</h2><p class='error'>a &amp; b</p>")
	want := "Sorry, something went wrong while answering your question.\na & b"
	if got != want {
		t.Errorf("plainText() = %q, want %q", got, want)
	}
}

func TestNewEvent(t *testing.T) {
	tests := []struct {
		name       string
		evName     string
		start, end string
		wantErr    bool
		ongoing    bool
	}{
		{name: "closed", evName: "Semester Abroad", start: "2021-08-20", end: "2021-12-15"},
		{name: "ongoing", evName: "New Job", start: "2024-02-01", ongoing: true},
		{name: "blank name", evName: "  ", start: "2024-02-01", wantErr: true},
		{name: "bad start", evName: "Trip", start: "02/01/2024", wantErr: true},
		{name: "end before start", evName: "Trip", start: "2024-02-01", end: "2024-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := newEvent("u1", tt.evName, tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if ev.UserID != "u1" || ev.Name != strings.TrimSpace(tt.evName) {
				t.Errorf("newEvent() = %+v", ev)
			}
			if (ev.EndDate == nil) != tt.ongoing {
				t.Errorf("EndDate = %v, ongoing %v", ev.EndDate, tt.ongoing)
			}
		})
	}
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	printEvents(&buf, nil)
	if buf.String() != "no events\n" {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	printEvents(&buf, []db.Event{{Name: "New Job", StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}})
	if !strings.Contains(buf.String(), "New Job  2024-02-01 to ongoing") {
		t.Errorf("output = %q", buf.String())
	}
}
