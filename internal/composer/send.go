package composer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jun/jotflow/internal/daily"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/pagetitle"
)

// Request is a validated send: text already trimmed and non-empty, parent
// reference present. The handler performs the validation; the composer does
// not re-check.
type Request struct {
	Title            string
	Note             string
	ParentID         string
	Template         string
	CreateDaily      bool
	IncludeTimestamp bool
	ExpandURLs       bool
	// DateKey is the caller's wall-clock local date. Empty means the server
	// computes it in its configured zone.
	DateKey string
	Cache   daily.Cache
}

// Result is the outcome of a send.
type Result struct {
	NewNodeID  string
	NewNodeURL string
	// DailyNoteURL is set when the send routed through a daily note, so the
	// caller can persist the mapping.
	DailyNoteURL string
	Cache        daily.Cache
}

// Service composes outgoing notes and creates them remotely.
type Service struct {
	resolver *daily.Resolver
	fetcher  pagetitle.Fetcher
	log      logging.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService builds a Service. loc is the zone for timestamps and for the
// server-side date-key fallback.
func NewService(resolver *daily.Resolver, fetcher pagetitle.Fetcher, log logging.Logger, loc *time.Location) *Service {
	return &Service{
		resolver: resolver,
		fetcher:  fetcher,
		log:      log,
		loc:      loc,
		now:      time.Now,
	}
}

// Send applies the transforms, resolves the destination, and creates the
// note. A destination reported gone under a daily-note send is recreated
// once against the original parent; any second failure surfaces with the
// date key. All other remote errors propagate with their class intact.
func (s *Service) Send(ctx context.Context, client outliner.Client, req Request) (*Result, error) {
	now := s.now().In(s.loc)

	title := req.Title
	note := req.Note
	if req.ExpandURLs {
		title = ExpandURLs(ctx, title, s.fetcher)
		if note != "" {
			note = ExpandURLs(ctx, note, s.fetcher)
		}
	}
	if req.IncludeTimestamp {
		note = WithTimestamp(note, now)
	}
	if req.Template != "" {
		title = ApplyTemplate(req.Template, title, now)
	}

	parentID := req.ParentID
	cache := req.Cache
	dailyURL := ""
	dateKey := req.DateKey
	if dateKey == "" {
		dateKey = daily.DateKey(now)
	}

	if req.CreateDaily {
		res, err := s.resolver.Resolve(ctx, client, req.ParentID, dateKey, cache)
		if err != nil {
			return nil, fmt.Errorf("resolve daily note: %w", err)
		}
		parentID = res.NodeID
		dailyURL = res.NodeURL
		cache = res.Cache
	}

	created, err := client.CreateNode(ctx, outliner.CreateNodeRequest{
		ParentID: parentID,
		Name:     title,
		Note:     note,
	})
	if err != nil && req.CreateDaily && errors.Is(err, outliner.ErrNotFound) {
		// The resolved daily note vanished upstream; recreate it once
		// against the original parent and retry exactly once.
		res, recErr := s.resolver.Recover(ctx, client, req.ParentID, dateKey, cache)
		if recErr != nil {
			return nil, recErr
		}
		parentID = res.NodeID
		dailyURL = res.NodeURL
		cache = res.Cache

		created, err = client.CreateNode(ctx, outliner.CreateNodeRequest{
			ParentID: parentID,
			Name:     title,
			Note:     note,
		})
		if err != nil {
			return nil, &daily.RecoveryError{DateKey: dateKey, Err: err}
		}
	} else if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.log.Info(ctx, "note created", "node_id", created.ID, "daily", req.CreateDaily)
	return &Result{
		NewNodeID:    created.ID,
		NewNodeURL:   created.URL,
		DailyNoteURL: dailyURL,
		Cache:        cache,
	}, nil
}
