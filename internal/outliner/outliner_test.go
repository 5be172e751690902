package outliner

import "testing"

func TestNodeURLRoundTrip(t *testing.T) {
	url := NodeURL("abc-123")
	if url != "https://workflowy.com/#/abc-123" {
		t.Fatalf("NodeURL = %q", url)
	}
	if got := NodeID(url); got != "abc-123" {
		t.Errorf("NodeID(%q) = %q", url, got)
	}

	// Bare ids from older cached references pass through.
	if got := NodeID("abc-123"); got != "abc-123" {
		t.Errorf("NodeID(bare) = %q", got)
	}
}
