package composer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jun/jotflow/internal/daily"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/outliner/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	svc := NewService(daily.NewResolver(log), newMapFetcher(nil), log, loc)
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 20, 9, 30, 45, 0, loc)
	}
	return svc
}

func setupParent(t *testing.T, client *memory.Client) *outliner.CreatedNode {
	t.Helper()
	parent, err := client.CreateNode(context.Background(), outliner.CreateNodeRequest{Name: "Inbox"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	return parent
}

func TestService_SendPlain(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)

	res, err := svc.Send(context.Background(), client, Request{
		Title:    "quick thought",
		Note:     "some detail",
		ParentID: parent.ID,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	node, ok := client.Get(res.NewNodeID)
	if !ok {
		t.Fatal("created node missing")
	}
	if node.Name != "quick thought" || node.Note != "some detail" {
		t.Errorf("node = %q / %q", node.Name, node.Note)
	}
	if res.DailyNoteURL != "" {
		t.Error("plain send must not report a daily note")
	}
}

func TestService_SendWithTimestampAndTemplate(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)

	res, err := svc.Send(context.Background(), client, Request{
		Title:            "Hello world",
		ParentID:         parent.ID,
		Template:         "**{HH}:{mm}** {content}",
		IncludeTimestamp: true,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	node, _ := client.Get(res.NewNodeID)
	if node.Name != "**09:30** Hello world" {
		t.Errorf("templated title = %q", node.Name)
	}
	if node.Note != "2025-06-20 09:30" {
		t.Errorf("timestamped empty note = %q", node.Note)
	}
}

func TestService_SendDailyCreatesAndCaches(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)

	res, err := svc.Send(context.Background(), client, Request{
		Title:       "first of the day",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if res.DailyNoteURL == "" {
		t.Fatal("daily send must report the daily note URL")
	}
	if res.Cache["2025-06-20"] != res.DailyNoteURL {
		t.Errorf("cache entry %q != daily URL %q", res.Cache["2025-06-20"], res.DailyNoteURL)
	}

	// Second send reuses the cached node without another create.
	creates := client.CreateCalls()
	res2, err := svc.Send(context.Background(), client, Request{
		Title:       "second of the day",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
		Cache:       res.Cache,
	})
	if err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if res2.DailyNoteURL != res.DailyNoteURL {
		t.Errorf("second send used %q, first %q", res2.DailyNoteURL, res.DailyNoteURL)
	}
	// Exactly one create for the note itself, none for the daily node.
	if client.CreateCalls() != creates+1 {
		t.Errorf("expected 1 create on cached path, got %d", client.CreateCalls()-creates)
	}
}

func TestService_SendDailyRecoversFromStaleCache(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, client, Request{
		Title:       "note",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Delete today's daily note behind the cache's back.
	staleID := strings.TrimPrefix(first.DailyNoteURL, "https://workflowy.com/#/")
	client.Delete(staleID)

	res, err := svc.Send(ctx, client, Request{
		Title:       "after deletion",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
		Cache:       first.Cache,
	})
	if err != nil {
		t.Fatalf("recovery send failed: %v", err)
	}
	if res.DailyNoteURL == first.DailyNoteURL {
		t.Error("recovery reused the stale daily note")
	}

	// The recreated daily note hangs off the original parent.
	newDailyID := strings.TrimPrefix(res.DailyNoteURL, "https://workflowy.com/#/")
	if _, ok := client.Get(newDailyID); !ok {
		t.Fatal("recreated daily note missing")
	}
	note, ok := client.Get(res.NewNodeID)
	if !ok || note.Name != "after deletion" {
		t.Errorf("note after recovery = %+v (ok=%v)", note, ok)
	}
	if res.Cache["2025-06-20"] == first.Cache["2025-06-20"] {
		t.Error("stale cache entry not replaced")
	}
}

func TestService_SendDailyRecoveryFailureNamesDate(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)
	ctx := context.Background()

	cache := daily.Cache{"2025-06-20": "https://workflowy.com/#/gone-node"}
	// Every create fails as not-found: the first note create against the
	// stale node, and the recreation attempt.
	client.CreateErr = outliner.ErrNotFound

	_, err := svc.Send(ctx, client, Request{
		Title:       "doomed",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
		Cache:       cache,
	})
	if err == nil {
		t.Fatal("expected recovery failure")
	}
	var recErr *daily.RecoveryError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecoveryError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "2025-06-20") {
		t.Errorf("error %q should name the date key", err)
	}
}

func TestService_SendDailyRateLimitDoesNotFallBack(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)

	client.CreateErr = outliner.ErrRateLimited
	_, err := svc.Send(context.Background(), client, Request{
		Title:       "note",
		ParentID:    parent.ID,
		CreateDaily: true,
		DateKey:     "2025-06-20",
	})
	if !errors.Is(err, outliner.ErrRateLimited) {
		t.Errorf("expected rate limit to propagate, got %v", err)
	}
	// Nothing may have been written to the plain destination.
	children, _ := client.ListNodes(context.Background(), parent.ID)
	if len(children) != 0 {
		t.Errorf("fallback write happened: %d children", len(children))
	}
}

func TestService_SendServerDateKeyFallback(t *testing.T) {
	client := memory.New()
	parent := setupParent(t, client)
	svc := newTestService(t)

	res, err := svc.Send(context.Background(), client, Request{
		Title:       "no local date supplied",
		ParentID:    parent.ID,
		CreateDaily: true,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	// svc.now is fixed at 2025-06-20 Tokyo time.
	if res.Cache["2025-06-20"] == "" {
		t.Errorf("expected server-computed date key 2025-06-20, cache = %v", res.Cache)
	}
}
