package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
)

// longDateLayout is the human-facing date convention some users title their
// daily nodes with ("Sat, Feb 14, 2026"). Lookup matches either this or the
// bare date key; creation always uses the bracketed date key.
const longDateLayout = "Mon, Jan 2, 2006"

// RecoveryError is surfaced when the one-shot recreation of a vanished daily
// note also fails. The message carries the date key so the user can see
// which day's node could not be restored.
type RecoveryError struct {
	DateKey string
	Err     error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("daily note (%s) was not found and could not be recreated: %v", e.DateKey, e.Err)
}

func (e *RecoveryError) Unwrap() error { return e.Err }

// Resolution is the outcome of resolving a daily-note destination.
type Resolution struct {
	// NodeID is the node today's note should be appended to.
	NodeID string
	// NodeURL is its browser URL when known.
	NodeURL string
	// Created reports whether a new remote node was created by this call.
	Created bool
	// Cache is the updated, pruned cache for the caller to persist.
	Cache Cache
}

// Resolver resolves and recovers daily-note destinations.
type Resolver struct {
	log logging.Logger
	// LookupExisting enables the remote listing fallback that matches
	// date-titled children a human may have created by hand. Skipping
	// straight from cache miss to create is also valid behavior.
	LookupExisting bool
}

// NewResolver returns a Resolver with the remote lookup fallback enabled.
func NewResolver(log logging.Logger) *Resolver {
	return &Resolver{log: log, LookupExisting: true}
}

// Resolve returns the node for (parentID, dateKey). Resolution order: cache,
// remote lookup by date-titled child, creation. The cache is pruned on every
// update, never on the pure cache-hit path, and creation happens at most
// once per date per destination as long as the caller persists the cache.
func (r *Resolver) Resolve(ctx context.Context, client outliner.Client, parentID, dateKey string, cache Cache) (*Resolution, error) {
	if cache == nil {
		cache = Cache{}
	}

	if ref, ok := cache[dateKey]; ok {
		return &Resolution{NodeID: outliner.NodeID(ref), NodeURL: ref, Cache: cache}, nil
	}

	if r.LookupExisting {
		found, err := r.lookup(ctx, client, parentID, dateKey)
		if err == nil && found != "" {
			cache = Prune(cache, dateKey)
			cache[dateKey] = found
			return &Resolution{NodeID: outliner.NodeID(found), NodeURL: found, Cache: cache}, nil
		}
		if err != nil && !errors.Is(err, outliner.ErrNotFound) {
			// The lookup is best-effort; only a missing parent is worth
			// propagating, since creation would fail on it anyway.
			r.log.Warn(ctx, "daily note lookup failed, creating instead", "error", err)
		}
		if errors.Is(err, outliner.ErrNotFound) {
			return nil, err
		}
	}

	created, err := r.create(ctx, client, parentID, dateKey)
	if err != nil {
		return nil, err
	}
	cache = Prune(cache, dateKey)
	cache[dateKey] = created.URL
	return &Resolution{NodeID: created.ID, NodeURL: created.URL, Created: true, Cache: cache}, nil
}

// Recover recreates the daily note under the original parent after a
// downstream call reported the resolved node gone. Exactly one attempt is
// made; a second failure surfaces a RecoveryError carrying the date key.
// The stale cache entry is overwritten on success.
func (r *Resolver) Recover(ctx context.Context, client outliner.Client, originalParentID, dateKey string, cache Cache) (*Resolution, error) {
	if cache == nil {
		cache = Cache{}
	}

	r.log.Warn(ctx, "daily note vanished upstream, recreating", "date", dateKey, "parent", originalParentID)
	created, err := r.create(ctx, client, originalParentID, dateKey)
	if err != nil {
		return nil, &RecoveryError{DateKey: dateKey, Err: err}
	}

	cache = Prune(cache, dateKey)
	cache[dateKey] = created.URL
	return &Resolution{NodeID: created.ID, NodeURL: created.URL, Created: true, Cache: cache}, nil
}

// lookup scans the parent's children for a date-titled node. The canonical
// matching rule: a child matches if its name contains the exact date key or
// the long form of the same date.
func (r *Resolver) lookup(ctx context.Context, client outliner.Client, parentID, dateKey string) (string, error) {
	date, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return "", fmt.Errorf("bad date key %q: %w", dateKey, err)
	}
	longForm := date.Format(longDateLayout)

	nodes, err := client.ListNodes(ctx, parentID)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		if strings.Contains(n.Name, dateKey) || strings.Contains(n.Name, longForm) {
			return outliner.NodeURL(n.ID), nil
		}
	}
	return "", nil
}

func (r *Resolver) create(ctx context.Context, client outliner.Client, parentID, dateKey string) (*outliner.CreatedNode, error) {
	created, err := client.CreateNode(ctx, outliner.CreateNodeRequest{
		ParentID: parentID,
		Name:     "[" + dateKey + "]",
	})
	if err != nil {
		return nil, fmt.Errorf("create daily note %s: %w", dateKey, err)
	}
	r.log.Info(ctx, "created daily note", "date", dateKey, "node_id", created.ID)
	return created, nil
}
