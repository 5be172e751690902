package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/jotflow/internal/composer"
	"github.com/jun/jotflow/internal/daily"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/session"
)

const maxTitleLength = 10000

// SendHandler accepts a note capture and forwards it to the outliner.
type SendHandler struct {
	sessions   *session.Manager
	provider   outliner.Provider
	composer   *composer.Service
	cookieName string
	log        logging.Logger
}

// NewSendHandler creates a new SendHandler.
func NewSendHandler(sessions *session.Manager, provider outliner.Provider, svc *composer.Service, cookieName string, log logging.Logger) *SendHandler {
	return &SendHandler{sessions: sessions, provider: provider, composer: svc, cookieName: cookieName, log: log}
}

type sendPayload struct {
	Title string `json:"title"`
	Note  string `json:"note"`
	// Text is an alternative to title/note: one editor blob, split at the
	// first blank line. Ignored when a title is given.
	Text             string      `json:"text"`
	ParentID         string      `json:"parentId"`
	Template         string      `json:"template"`
	CreateDaily      bool        `json:"createDailyNote"`
	IncludeTimestamp bool        `json:"includeTimestamp"`
	ExpandURLs       bool        `json:"expandUrls"`
	LocalDate        string      `json:"localDate"`
	DailyNoteCache   daily.Cache `json:"dailyNoteCache"`
}

// Send composes and creates the note. The response carries the created
// node URL, the daily note URL when one was involved, and the refreshed
// daily note cache for the client to persist.
func (h *SendHandler) Send(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	apiKey, err := h.sessions.Verify(ctx, sessionToken(req, h.cookieName))
	if err != nil {
		return authFailureResponse(err, h.cookieName), nil
	}

	var payload sendPayload
	if resp, ok := parseBody(req, &payload); !ok {
		return resp, nil
	}

	title, note := payload.Title, payload.Note
	if strings.TrimSpace(title) == "" && payload.Text != "" {
		title, note = composer.ParseContent(payload.Text)
	}

	if strings.TrimSpace(title) == "" {
		return errorResponse(http.StatusBadRequest, "Title is required"), nil
	}
	if len(title) > maxTitleLength {
		return errorResponse(http.StatusBadRequest, "Title is too long"), nil
	}
	if payload.ParentID == "" {
		return errorResponse(http.StatusBadRequest, "Destination is required"), nil
	}

	result, err := h.composer.Send(ctx, h.provider.ClientFor(apiKey), composer.Request{
		Title:            title,
		Note:             note,
		ParentID:         payload.ParentID,
		Template:         payload.Template,
		CreateDaily:      payload.CreateDaily,
		IncludeTimestamp: payload.IncludeTimestamp,
		ExpandURLs:       payload.ExpandURLs,
		DateKey:          payload.LocalDate,
		Cache:            payload.DailyNoteCache,
	})
	if err != nil {
		h.log.Error(ctx, "send failed", "error", err)
		return sendErrorResponse(err), nil
	}

	body := map[string]any{
		"newNodeUrl":     result.NewNodeURL,
		"dailyNoteCache": result.Cache,
	}
	if result.DailyNoteURL != "" {
		body["dailyNoteUrl"] = result.DailyNoteURL
	}
	return jsonResponse(http.StatusOK, body), nil
}

// authFailureResponse maps a session verification error to a 401. Expired
// and malformed cookies are cleared so the client re-authenticates cleanly.
func authFailureResponse(err error, cookieName string) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, session.ErrNoToken):
		return errorResponse(http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, session.ErrTokenExpired):
		return withCookie(errorResponse(http.StatusUnauthorized, "Session expired"), session.RevokedCookie(cookieName))
	default:
		return withCookie(errorResponse(http.StatusUnauthorized, "Invalid session"), session.RevokedCookie(cookieName))
	}
}

// sendErrorResponse maps outliner failures to client-facing status codes.
func sendErrorResponse(err error) events.APIGatewayProxyResponse {
	var recovery *daily.RecoveryError
	switch {
	case errors.As(err, &recovery):
		return errorResponse(http.StatusUnprocessableEntity, "Daily note for "+recovery.DateKey+" could not be created; check the destination")
	case errors.Is(err, outliner.ErrNotFound):
		return errorResponse(http.StatusUnprocessableEntity, "Destination not found")
	case errors.Is(err, outliner.ErrUnauthorized):
		return errorResponse(http.StatusUnauthorized, "API key rejected; check your API key")
	case errors.Is(err, outliner.ErrRateLimited):
		return errorResponse(http.StatusTooManyRequests, "Rate limited by the outliner service; try again shortly")
	case errors.Is(err, outliner.ErrTimeout):
		return errorResponse(http.StatusGatewayTimeout, "Outliner service timed out")
	case outliner.IsServerError(err):
		return errorResponse(http.StatusBadGateway, "Outliner service error")
	default:
		return errorResponse(http.StatusInternalServerError, "Failed to send note")
	}
}
