// Package memory implements outliner.Client over an in-process node tree.
// Used by tests and dev mode; Delete and the error hook let tests simulate
// upstream failures such as a daily note removed behind the cache's back.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jun/jotflow/internal/outliner"
)

type node struct {
	outliner.Node
	parentID string
}

// Client is an in-memory outliner. The zero value is not usable; call New.
type Client struct {
	mu     sync.RWMutex
	nodes  map[string]*node
	nextPr int

	// CreateErr, when set, is returned by every CreateNode call.
	CreateErr error
	// VerifyErr, when set, is returned by VerifyKey.
	VerifyErr error

	createCalls int
	listCalls   int
}

// New returns an empty in-memory outliner.
func New() *Client {
	return &Client{nodes: make(map[string]*node)}
}

// Provider implements outliner.Provider, handing every API key the same
// shared tree. KeyErrs marks keys that VerifyKey should reject.
type Provider struct {
	Client  *Client
	KeyErrs map[string]error
}

// NewProvider wraps a shared Client.
func NewProvider(c *Client) *Provider {
	return &Provider{Client: c, KeyErrs: make(map[string]error)}
}

func (p *Provider) ClientFor(apiKey string) outliner.Client {
	if err, ok := p.KeyErrs[apiKey]; ok {
		return &failingClient{err: err}
	}
	return p.Client
}

// failingClient rejects every operation with a fixed error.
type failingClient struct{ err error }

func (f *failingClient) ListNodes(context.Context, string) ([]outliner.Node, error) {
	return nil, f.err
}
func (f *failingClient) CreateNode(context.Context, outliner.CreateNodeRequest) (*outliner.CreatedNode, error) {
	return nil, f.err
}
func (f *failingClient) VerifyKey(context.Context) error { return f.err }

// ListNodes returns the children of parentID sorted by priority.
func (c *Client) ListNodes(_ context.Context, parentID string) ([]outliner.Node, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()

	if parentID == "" {
		parentID = outliner.RootParent
	}
	if parentID != outliner.RootParent {
		if _, ok := c.get(parentID); !ok {
			return nil, outliner.ErrNotFound
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	var children []outliner.Node
	for _, n := range c.nodes {
		if n.parentID == parentID {
			children = append(children, n.Node)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Priority < children[j].Priority })
	return children, nil
}

// CreateNode inserts a node under req.ParentID. A missing parent yields
// ErrNotFound, matching the upstream "location not found" class.
func (c *Client) CreateNode(_ context.Context, req outliner.CreateNodeRequest) (*outliner.CreatedNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++

	if c.CreateErr != nil {
		return nil, c.CreateErr
	}

	parentID := req.ParentID
	if parentID == "" {
		parentID = outliner.RootParent
	}
	if parentID != outliner.RootParent {
		if _, ok := c.nodes[parentID]; !ok {
			return nil, outliner.ErrNotFound
		}
	}

	now := time.Now()
	id := uuid.New().String()
	c.nextPr++
	c.nodes[id] = &node{
		Node: outliner.Node{
			ID:         id,
			Name:       req.Name,
			Note:       req.Note,
			Priority:   c.nextPr,
			CreatedAt:  now,
			ModifiedAt: now,
		},
		parentID: parentID,
	}
	return &outliner.CreatedNode{ID: id, URL: outliner.NodeURL(id)}, nil
}

// VerifyKey honors the configured VerifyErr.
func (c *Client) VerifyKey(_ context.Context) error {
	return c.VerifyErr
}

// Delete removes a node and its subtree, simulating deletion upstream.
func (c *Client) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(id)
}

func (c *Client) deleteLocked(id string) {
	delete(c.nodes, id)
	for childID, n := range c.nodes {
		if n.parentID == id {
			c.deleteLocked(childID)
		}
	}
}

// Get returns a node by id.
func (c *Client) Get(id string) (outliner.Node, bool) {
	n, ok := c.get(id)
	if !ok {
		return outliner.Node{}, false
	}
	return n.Node, true
}

func (c *Client) get(id string) (*node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	return n, ok
}

// CreateCalls reports how many CreateNode calls were made.
func (c *Client) CreateCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.createCalls
}

// ListCalls reports how many ListNodes calls were made.
func (c *Client) ListCalls() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listCalls
}
