// Package outliner defines the interface to the remote outliner service that
// stores notes as a tree of nodes. The abstraction allows swapping the HTTP
// client for an in-memory implementation in tests without touching the
// business logic.
package outliner

import (
	"context"
	"strings"
	"time"
)

// RootParent is the parent id meaning the top level of the user's tree.
const RootParent = "None"

// NodeURLBase is where nodes open in a browser.
const NodeURLBase = "https://workflowy.com/#"

// NodeURL returns the browser URL for a node id.
func NodeURL(id string) string {
	return NodeURLBase + "/" + id
}

// NodeID extracts the node id from a browser URL. Bare ids (older cached
// references) pass through unchanged.
func NodeID(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Node is a single bullet in the remote tree.
type Node struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Note        string     `json:"note,omitempty"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"createdAt"`
	ModifiedAt  time.Time  `json:"modifiedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CreateNodeRequest describes a node to create.
type CreateNodeRequest struct {
	ParentID string
	Name     string
	Note     string
	// Position is "top" or "bottom"; empty means the service default.
	Position string
}

// CreatedNode is the reference returned for a newly created node.
type CreatedNode struct {
	ID  string `json:"item_id"`
	URL string `json:"url,omitempty"`
}

// Client is the operations the service needs from the remote outliner.
type Client interface {
	// ListNodes lists the immediate children of parentID, sorted by priority.
	ListNodes(ctx context.Context, parentID string) ([]Node, error)

	// CreateNode creates a new node and returns its reference.
	CreateNode(ctx context.Context, req CreateNodeRequest) (*CreatedNode, error)

	// VerifyKey checks that the client's credential is accepted upstream.
	VerifyKey(ctx context.Context) error
}

// Provider builds a Client for a per-request credential. Mirrors the
// one-adapter-per-user construction: the edge handler holds no remote
// session, so every request carries its own API key.
type Provider interface {
	ClientFor(apiKey string) Client
}
