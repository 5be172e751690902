package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sort"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/session"
)

// historyBuckets is how many recent daily notes the history view returns.
const historyBuckets = 5

var dateNamePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// NodesHandler serves destination listings and the recent-sends history view.
type NodesHandler struct {
	sessions   *session.Manager
	provider   outliner.Provider
	cookieName string
	log        logging.Logger
}

// NewNodesHandler creates a new NodesHandler.
func NewNodesHandler(sessions *session.Manager, provider outliner.Provider, cookieName string, log logging.Logger) *NodesHandler {
	return &NodesHandler{sessions: sessions, provider: provider, cookieName: cookieName, log: log}
}

func (h *NodesHandler) client(ctx context.Context, req events.APIGatewayProxyRequest) (outliner.Client, *events.APIGatewayProxyResponse) {
	apiKey, err := h.sessions.Verify(ctx, sessionToken(req, h.cookieName))
	if err != nil {
		resp := authFailureResponse(err, h.cookieName)
		return nil, &resp
	}
	return h.provider.ClientFor(apiKey), nil
}

// List returns the children of the given parent, or of the root when no
// parent_id is supplied.
func (h *NodesHandler) List(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	client, errResp := h.client(ctx, req)
	if errResp != nil {
		return *errResp, nil
	}

	parentID := req.QueryStringParameters["parent_id"]
	if parentID == "" {
		parentID = outliner.RootParent
	}

	nodes, err := client.ListNodes(ctx, parentID)
	if err != nil {
		h.log.Error(ctx, "list nodes failed", "parent", parentID, "error", err)
		return listErrorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, map[string]any{"nodes": nodes}), nil
}

// historyGroup is one date bucket in the history view.
type historyGroup struct {
	Date  string          `json:"date"`
	Items []outliner.Node `json:"items"`
}

// History returns recently sent items under a destination. For plain
// destinations that is the children list. For daily-note destinations the
// children are date-named notes; the most recent buckets are expanded so
// each date appears with the items sent under it.
func (h *NodesHandler) History(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	client, errResp := h.client(ctx, req)
	if errResp != nil {
		return *errResp, nil
	}

	parentID := req.QueryStringParameters["parent_id"]
	if parentID == "" {
		return errorResponse(http.StatusBadRequest, "parent_id is required"), nil
	}

	children, err := client.ListNodes(ctx, parentID)
	if err != nil {
		h.log.Error(ctx, "history listing failed", "parent", parentID, "error", err)
		return listErrorResponse(err), nil
	}

	if req.QueryStringParameters["daily_note"] != "true" {
		return jsonResponse(http.StatusOK, map[string]any{"items": children}), nil
	}

	groups := make([]historyGroup, 0, historyBuckets)
	for _, note := range recentDailyNotes(children) {
		items, err := client.ListNodes(ctx, note.ID)
		if err != nil {
			h.log.Warn(ctx, "history bucket listing failed", "node", note.ID, "error", err)
			continue
		}
		groups = append(groups, historyGroup{Date: dateNamePattern.FindString(note.Name), Items: items})
	}
	return jsonResponse(http.StatusOK, map[string]any{"groups": groups}), nil
}

// recentDailyNotes picks the date-named children, newest date first,
// capped at historyBuckets.
func recentDailyNotes(nodes []outliner.Node) []outliner.Node {
	dated := make([]outliner.Node, 0, len(nodes))
	for _, n := range nodes {
		if dateNamePattern.MatchString(n.Name) {
			dated = append(dated, n)
		}
	}
	sort.Slice(dated, func(i, j int) bool {
		return dateNamePattern.FindString(dated[i].Name) > dateNamePattern.FindString(dated[j].Name)
	})
	if len(dated) > historyBuckets {
		dated = dated[:historyBuckets]
	}
	return dated
}

// listErrorResponse maps listing failures onto client-facing status codes.
func listErrorResponse(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, outliner.ErrNotFound):
		return errorResponse(http.StatusNotFound, "Node not found")
	case errors.Is(err, outliner.ErrUnauthorized):
		return errorResponse(http.StatusUnauthorized, "API key rejected; check your API key")
	case errors.Is(err, outliner.ErrRateLimited):
		return errorResponse(http.StatusTooManyRequests, "Rate limited by the outliner service; try again shortly")
	case errors.Is(err, outliner.ErrTimeout):
		return errorResponse(http.StatusGatewayTimeout, "Outliner service timed out")
	case outliner.IsServerError(err):
		return errorResponse(http.StatusBadGateway, "Outliner service error")
	default:
		return errorResponse(http.StatusInternalServerError, "Failed to list nodes")
	}
}
