package daily

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/outliner/memory"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func mustCreate(t *testing.T, client *memory.Client, parentID, name string) *outliner.CreatedNode {
	t.Helper()
	created, err := client.CreateNode(context.Background(), outliner.CreateNodeRequest{ParentID: parentID, Name: name})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return created
}

func TestResolver_CacheHitMakesNoRemoteCall(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	r := NewResolver(testLogger())
	ctx := context.Background()

	cache := Cache{"2025-06-20": "https://workflowy.com/#/cached-node"}
	baseline := client.CreateCalls() + client.ListCalls()

	res, err := r.Resolve(ctx, client, parent.ID, "2025-06-20", cache)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.NodeID != "cached-node" {
		t.Errorf("got node %q, want cached-node", res.NodeID)
	}
	if res.Created {
		t.Error("cache hit must not report creation")
	}
	if calls := client.CreateCalls() + client.ListCalls(); calls != baseline {
		t.Errorf("cache hit made %d remote calls", calls-baseline)
	}
}

func TestResolver_ResolveTwiceCreatesOnce(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	r := NewResolver(testLogger())
	ctx := context.Background()

	first, err := r.Resolve(ctx, client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	if !first.Created {
		t.Fatal("first resolution should create the node")
	}
	createsAfterFirst := client.CreateCalls()

	second, err := r.Resolve(ctx, client, parent.ID, "2025-06-20", first.Cache)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if second.Created {
		t.Error("second resolution should hit the cache")
	}
	if second.NodeID != first.NodeID {
		t.Errorf("second resolution returned %q, first returned %q", second.NodeID, first.NodeID)
	}
	if client.CreateCalls() != createsAfterFirst {
		t.Errorf("second resolution created again: %d -> %d", createsAfterFirst, client.CreateCalls())
	}
}

func TestResolver_LookupFindsHandMadeNode(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	// A node a human titled with the long date convention.
	handMade := mustCreate(t, client, parent.ID, "Fri, Jun 20, 2025 ☀️")
	r := NewResolver(testLogger())

	res, err := r.Resolve(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.NodeID != handMade.ID {
		t.Errorf("expected lookup to find %q, got %q", handMade.ID, res.NodeID)
	}
	if res.Created {
		t.Error("lookup hit must not report creation")
	}
	if res.Cache["2025-06-20"] == "" {
		t.Error("lookup hit must populate the cache")
	}
}

func TestResolver_LookupMatchesExactDateKey(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	existing := mustCreate(t, client, parent.ID, "[2025-06-20]")
	r := NewResolver(testLogger())

	res, err := r.Resolve(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.NodeID != existing.ID {
		t.Errorf("expected %q, got %q", existing.ID, res.NodeID)
	}
}

func TestResolver_CreatesBracketedDateNode(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	r := NewResolver(testLogger())

	res, err := r.Resolve(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	node, ok := client.Get(res.NodeID)
	if !ok {
		t.Fatal("created node missing from remote")
	}
	if node.Name != "[2025-06-20]" {
		t.Errorf("created node named %q, want [2025-06-20]", node.Name)
	}
	if res.Cache["2025-06-20"] == "" {
		t.Error("creation must populate the cache")
	}
}

func TestResolver_SkipLookupWhenDisabled(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	mustCreate(t, client, parent.ID, "[2025-06-20]")
	r := NewResolver(testLogger())
	r.LookupExisting = false

	res, err := r.Resolve(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.Created {
		t.Error("with lookup disabled, a cache miss should create directly")
	}
}

func TestResolver_MissingParentPropagates(t *testing.T) {
	client := memory.New()
	r := NewResolver(testLogger())

	_, err := r.Resolve(context.Background(), client, "no-such-parent", "2025-06-20", Cache{})
	if !errors.Is(err, outliner.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestResolver_CreateFailurePropagatesWithoutFallback(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	client.CreateErr = outliner.ErrRateLimited
	r := NewResolver(testLogger())

	_, err := r.Resolve(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if !errors.Is(err, outliner.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited to propagate, got %v", err)
	}
}

func TestResolver_RecoverUsesOriginalParent(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	r := NewResolver(testLogger())
	ctx := context.Background()

	res, err := r.Resolve(ctx, client, parent.ID, "2025-06-20", Cache{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The daily note disappears behind the cache's back.
	client.Delete(res.NodeID)

	recovered, err := r.Recover(ctx, client, parent.ID, "2025-06-20", res.Cache)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if recovered.NodeID == res.NodeID {
		t.Error("recovery returned the stale node")
	}
	node, ok := client.Get(recovered.NodeID)
	if !ok {
		t.Fatal("recovered node missing from remote")
	}
	if node.Name != "[2025-06-20]" {
		t.Errorf("recovered node named %q", node.Name)
	}
	if recovered.Cache["2025-06-20"] == res.Cache["2025-06-20"] {
		t.Error("stale cache entry was not overwritten")
	}
}

func TestResolver_RecoverFailureIncludesDateKey(t *testing.T) {
	client := memory.New()
	parent := mustCreate(t, client, "", "Journal")
	client.CreateErr = outliner.ErrNotFound
	r := NewResolver(testLogger())

	_, err := r.Recover(context.Background(), client, parent.ID, "2025-06-20", Cache{})
	if err == nil {
		t.Fatal("expected recovery failure")
	}
	var recErr *RecoveryError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecoveryError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "2025-06-20") {
		t.Errorf("error message %q should contain the date key", err.Error())
	}
}
