package session

import (
	"context"
	"testing"

	"pushgate/pkg/logx"
)

func TestActivateFocusesMatchingSession(t *testing.T) {
	t.Parallel()
	hub := NewHub(logx.Nop())
	viewing := hub.Connect("/ads/7")
	other := hub.Connect("/ads/9")

	r := NewRouter(hub, logx.Nop())
	r.ActivateOrOpen(context.Background(), "/ads/7")

	if viewing.FocusCount() != 1 {
		t.Fatalf("matching session focus count = %d, want 1", viewing.FocusCount())
	}
	if other.FocusCount() != 0 {
		t.Fatal("non-matching session was focused")
	}
	if hub.Len() != 2 {
		t.Fatalf("hub len = %d, a new session was opened despite a match", hub.Len())
	}
}

func TestActivateOpensWhenNoMatch(t *testing.T) {
	t.Parallel()
	hub := NewHub(logx.Nop())
	existing := hub.Connect("/profile")

	r := NewRouter(hub, logx.Nop())
	r.ActivateOrOpen(context.Background(), "/ads/7")

	if existing.FocusCount() != 0 {
		t.Fatal("unrelated session was focused")
	}
	if hub.Len() != 2 {
		t.Fatalf("hub len = %d, want 2 (new session opened)", hub.Len())
	}

	list, err := hub.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, s := range list {
		if s.URL() == "/ads/7" {
			found = true
		}
	}
	if !found {
		t.Fatal("no session at the requested destination")
	}
}

func TestActivateDefaultsToRoot(t *testing.T) {
	t.Parallel()
	hub := NewHub(logx.Nop())
	root := hub.Connect(RootURL)

	r := NewRouter(hub, logx.Nop())
	r.ActivateOrOpen(context.Background(), "")

	if root.FocusCount() != 1 {
		t.Fatalf("root session focus count = %d, want 1", root.FocusCount())
	}
	if hub.Len() != 1 {
		t.Fatalf("hub len = %d, want 1", hub.Len())
	}
}

func TestActivateRequiresExactMatch(t *testing.T) {
	t.Parallel()
	hub := NewHub(logx.Nop())
	near := hub.Connect("/ads/7?ref=push")

	r := NewRouter(hub, logx.Nop())
	r.ActivateOrOpen(context.Background(), "/ads/7")

	if near.FocusCount() != 0 {
		t.Fatal("prefix match must not count as exact")
	}
	if hub.Len() != 2 {
		t.Fatalf("hub len = %d, want 2", hub.Len())
	}
}
