package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/pagetitle"
	"github.com/jun/jotflow/internal/session"
)

// TitleHandler resolves page titles for the client-side link preview.
type TitleHandler struct {
	sessions   *session.Manager
	fetcher    pagetitle.Fetcher
	cookieName string
	log        logging.Logger
}

// NewTitleHandler creates a new TitleHandler.
func NewTitleHandler(sessions *session.Manager, fetcher pagetitle.Fetcher, cookieName string, log logging.Logger) *TitleHandler {
	return &TitleHandler{sessions: sessions, fetcher: fetcher, cookieName: cookieName, log: log}
}

// Fetch returns the page title for the given URL. Unsafe or unreachable
// URLs degrade to the URL itself; the endpoint never fails a send flow.
func (h *TitleHandler) Fetch(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := h.sessions.Verify(ctx, sessionToken(req, h.cookieName)); err != nil {
		return authFailureResponse(err, h.cookieName), nil
	}

	rawURL := req.QueryStringParameters["url"]
	if rawURL == "" {
		return errorResponse(http.StatusBadRequest, "url is required"), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{"title": h.fetcher.FetchTitle(ctx, rawURL)}), nil
}
