package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"incidentdesk/internal/domain"
)

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: 20, 0: 20, 5: 5, 200: 200, 1000: 200}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d)=%d, want %d", in, got, want)
		}
	}
}

// TestStoreRoundTrip runs against a real database when DB_TEST_DSN is set.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("DB_TEST_DSN")
	if dsn == "" {
		t.Skip("DB_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	event := domain.IncidentEvent{
		IncidentID: uuid.NewString(),
		SessionID:  "sess",
		IssueType:  domain.IssuePlayback,
		Outcome:    domain.OutcomeFailed,
		Record:     domain.IncidentRecord{Problem: "schwarzes Bild", Model: "iPad"},
		Error:      "status=500",
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.SaveIncident(ctx, event); err != nil {
		t.Fatalf("SaveIncident: %v", err)
	}

	got, err := store.GetIncident(ctx, event.IncidentID)
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if got.Record != event.Record || got.Outcome != event.Outcome || got.Error != event.Error {
		t.Fatalf("got=%+v, want %+v", got, event)
	}

	if _, err := store.GetIncident(ctx, uuid.NewString()); !errors.Is(err, ErrIncidentNotFound) {
		t.Fatalf("err=%v, want ErrIncidentNotFound", err)
	}

	recent, err := store.RecentIncidents(ctx, 5)
	if err != nil {
		t.Fatalf("RecentIncidents: %v", err)
	}
	if len(recent) == 0 {
		t.Fatalf("expected at least one incident")
	}
}
