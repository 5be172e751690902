// Package workflowy implements outliner.Client against the Workflowy REST
// API.
package workflowy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"github.com/jun/jotflow/internal/outliner"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://beta.workflowy.com/api/v1"

// Client talks to the Workflowy nodes API with Bearer authentication.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for one API key. The underlying http.Client
// injects the Bearer header via a static token source, the same way an
// authenticated per-user client is built for any token-bearing REST API.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = timeout
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Provider implements outliner.Provider for the Workflowy API.
type Provider struct {
	BaseURL string
	Timeout time.Duration
}

// NewProvider returns a Provider with the given API root and per-call timeout.
func NewProvider(baseURL string, timeout time.Duration) *Provider {
	return &Provider{BaseURL: baseURL, Timeout: timeout}
}

func (p *Provider) ClientFor(apiKey string) outliner.Client {
	return NewClient(apiKey, p.BaseURL, p.Timeout)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return outliner.ErrTimeout
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return outliner.ErrTimeout
		}
		return fmt.Errorf("outliner request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return outliner.ErrorFromStatus(resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type nodesResponse struct {
	Nodes []nodePayload `json:"nodes"`
}

type nodePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Note        string `json:"note"`
	Priority    int    `json:"priority"`
	CreatedAt   int64  `json:"createdAt"`
	ModifiedAt  int64  `json:"modifiedAt"`
	CompletedAt *int64 `json:"completedAt"`
}

// ListNodes lists the immediate children of parentID sorted by priority.
func (c *Client) ListNodes(ctx context.Context, parentID string) ([]outliner.Node, error) {
	if parentID == "" {
		parentID = outliner.RootParent
	}
	var resp nodesResponse
	path := "/nodes?parent_id=" + url.QueryEscape(parentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	nodes := make([]outliner.Node, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		node := outliner.Node{
			ID:         n.ID,
			Name:       n.Name,
			Note:       n.Note,
			Priority:   n.Priority,
			CreatedAt:  time.Unix(n.CreatedAt, 0),
			ModifiedAt: time.Unix(n.ModifiedAt, 0),
		}
		if n.CompletedAt != nil {
			completed := time.Unix(*n.CompletedAt, 0)
			node.CompletedAt = &completed
		}
		nodes = append(nodes, node)
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Priority < nodes[j].Priority })
	return nodes, nil
}

type createNodePayload struct {
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
	Note     string `json:"note,omitempty"`
	Position string `json:"position,omitempty"`
}

type createNodeResponse struct {
	ItemID string `json:"item_id"`
}

// CreateNode creates a node under req.ParentID.
func (c *Client) CreateNode(ctx context.Context, req outliner.CreateNodeRequest) (*outliner.CreatedNode, error) {
	payload := createNodePayload{
		ParentID: req.ParentID,
		Name:     req.Name,
		Note:     req.Note,
		Position: req.Position,
	}
	var resp createNodeResponse
	if err := c.do(ctx, http.MethodPost, "/nodes", payload, &resp); err != nil {
		return nil, err
	}
	return &outliner.CreatedNode{
		ID:  resp.ItemID,
		URL: outliner.NodeURL(resp.ItemID),
	}, nil
}

// VerifyKey probes the API with a root listing; an ErrUnauthorized result
// means the key is bad, anything else means it works.
func (c *Client) VerifyKey(ctx context.Context) error {
	_, err := c.ListNodes(ctx, outliner.RootParent)
	return err
}
