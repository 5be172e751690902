package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/session"
)

// AuthHandler manages session lifecycle: login, logout, and session checks.
type AuthHandler struct {
	sessions   *session.Manager
	provider   outliner.Provider
	cookieName string
	log        logging.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(sessions *session.Manager, provider outliner.Provider, cookieName string, log logging.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, provider: provider, cookieName: cookieName, log: log}
}

// sessionToken extracts the session token from the request cookie header.
func sessionToken(req events.APIGatewayProxyRequest, cookieName string) string {
	return session.FromCookieHeader(getHeader(req, "Cookie"), cookieName)
}

// Login verifies the submitted API key against the outliner service and,
// on success, issues an encrypted session cookie.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var payload struct {
		APIKey     string `json:"apiKey"`
		Expiration string `json:"expiration"`
		CustomDays int    `json:"customDays"`
	}
	if resp, ok := parseBody(req, &payload); !ok {
		return resp, nil
	}

	if payload.APIKey == "" {
		return errorResponse(http.StatusBadRequest, "API key is required"), nil
	}

	client := h.provider.ClientFor(payload.APIKey)
	if err := client.VerifyKey(ctx); err != nil {
		if errors.Is(err, outliner.ErrUnauthorized) {
			return errorResponse(http.StatusUnauthorized, "Invalid API key"), nil
		}
		h.log.Error(ctx, "api key verification failed", "error", err)
		return errorResponse(http.StatusBadGateway, "Failed to verify API key"), nil
	}

	ttl := session.TTL(payload.Expiration, payload.CustomDays)
	token, err := h.sessions.Issue(ctx, payload.APIKey, ttl)
	if err != nil {
		h.log.Error(ctx, "session issue failed", "error", err)
		return errorResponse(http.StatusInternalServerError, "Failed to create session"), nil
	}

	resp := jsonResponse(http.StatusOK, map[string]any{
		"message":   "Logged in",
		"expiresAt": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
	return withCookie(resp, session.Cookie(h.cookieName, token, ttl)), nil
}

// Logout clears the session cookie. Always succeeds.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := jsonResponse(http.StatusOK, map[string]string{"message": "Logged out"})
	return withCookie(resp, session.RevokedCookie(h.cookieName)), nil
}

// Check reports whether the request carries a usable session. An expired
// or malformed cookie is cleared so the client stops presenting it.
func (h *AuthHandler) Check(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	_, err := h.sessions.Verify(ctx, sessionToken(req, h.cookieName))
	if err != nil {
		resp := jsonResponse(http.StatusOK, map[string]bool{"authenticated": false})
		if !errors.Is(err, session.ErrNoToken) {
			resp = withCookie(resp, session.RevokedCookie(h.cookieName))
		}
		return resp, nil
	}
	return jsonResponse(http.StatusOK, map[string]bool{"authenticated": true}), nil
}
