package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/jotflow/internal/crypto"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/outliner/memory"
	"github.com/jun/jotflow/internal/session"
)

const testCookieName = "auth"

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

// recordingLogger captures the contexts handed to each log call, so tests
// can check handlers propagate their request context into logging.
type recordingLogger struct {
	contexts []context.Context
}

func (r *recordingLogger) Info(ctx context.Context, _ string, _ ...any)  { r.record(ctx) }
func (r *recordingLogger) Warn(ctx context.Context, _ string, _ ...any)  { r.record(ctx) }
func (r *recordingLogger) Error(ctx context.Context, _ string, _ ...any) { r.record(ctx) }
func (r *recordingLogger) With(_ ...any) logging.Logger                  { return r }

func (r *recordingLogger) record(ctx context.Context) {
	r.contexts = append(r.contexts, ctx)
}

func newTestSessions() *session.Manager {
	return session.NewManager(crypto.NewMockEncryptor(), "test-secret")
}

// makeRequest builds a proxy request the way API Gateway delivers it.
func makeRequest(method, path, body string, headers map[string]string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers:    headers,
	}
}

func withQuery(req events.APIGatewayProxyRequest, params map[string]string) events.APIGatewayProxyRequest {
	req.QueryStringParameters = params
	return req
}

// loginCookie issues a session for apiKey and returns a Cookie header value.
func loginCookie(t *testing.T, mgr *session.Manager, apiKey string, ttl time.Duration) map[string]string {
	t.Helper()
	token, err := mgr.Issue(context.Background(), apiKey, ttl)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return map[string]string{"Cookie": testCookieName + "=" + token}
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("response body is not JSON: %v (body %q)", err, resp.Body)
	}
	return body
}

// mustCreate seeds a node into the in-memory outliner.
func mustCreate(t *testing.T, client *memory.Client, parentID, name, note string) string {
	t.Helper()
	created, err := client.CreateNode(context.Background(), outliner.CreateNodeRequest{
		ParentID: parentID,
		Name:     name,
		Note:     note,
	})
	if err != nil {
		t.Fatalf("seed node %q: %v", name, err)
	}
	return created.ID
}

func assertStatus(t *testing.T, resp events.APIGatewayProxyResponse, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, want, resp.Body)
	}
}

func assertRevokedCookie(t *testing.T, resp events.APIGatewayProxyResponse) {
	t.Helper()
	cookie := resp.Headers["Set-Cookie"]
	if !strings.Contains(cookie, "Max-Age=0") {
		t.Fatalf("expected a revoked session cookie, got %q", cookie)
	}
}
