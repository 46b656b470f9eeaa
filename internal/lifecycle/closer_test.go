package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pushgate/internal/platform"
	"pushgate/pkg/logx"
)

func show(t *testing.T, reg *platform.MemoryRegistry, tag, dest string) *platform.Record {
	t.Helper()
	rec, err := reg.Show(context.Background(), platform.Notification{Title: "t", Tag: tag, DestinationURL: dest})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	return rec
}

func TestCloseAllMatchingClosesSiblings(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	a := show(t, reg, "a1", "/ads/7")
	b := show(t, reg, "b2", "/ads/7")
	other := show(t, reg, "c3", "/ads/9")

	c := NewCloser(reg, logx.Nop())
	if got := c.CloseAllMatching(context.Background(), "/ads/7"); got != 2 {
		t.Fatalf("closed = %d, want 2", got)
	}
	if !a.Closed() || !b.Closed() {
		t.Fatal("siblings not closed")
	}
	if other.Closed() {
		t.Fatal("unrelated destination was closed")
	}
}

func TestSameGroupKeyDifferentDestinationNotMerged(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	// Distinct tags so platform tag replacement stays out of the picture;
	// what matters is that close keys on destination only.
	a := show(t, reg, "g-a", "/ads/7")
	b := show(t, reg, "g-b", "/ads/9")

	c := NewCloser(reg, logx.Nop())
	if got := c.CloseAllMatching(context.Background(), "/ads/7"); got != 1 {
		t.Fatalf("closed = %d, want 1", got)
	}
	if !a.Closed() {
		t.Fatal("target not closed")
	}
	if b.Closed() {
		t.Fatal("different destination closed despite shared semantics")
	}
}

func TestEmptyDestinationClosesNothing(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	show(t, reg, "a1", "/ads/7")
	show(t, reg, "", "")

	c := NewCloser(reg, logx.Nop())
	if got := c.CloseAllMatching(context.Background(), ""); got != 0 {
		t.Fatalf("closed = %d, want 0", got)
	}
	if reg.Len() != 2 {
		t.Fatalf("registry len = %d, want 2", reg.Len())
	}
}

func TestIdempotentCloseAcrossCalls(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	show(t, reg, "a1", "/ads/7")
	show(t, reg, "b2", "/ads/7")

	c := NewCloser(reg, logx.Nop())
	first := c.CloseAllMatching(context.Background(), "/ads/7")
	second := c.CloseAllMatching(context.Background(), "/ads/7")
	if first != 2 {
		t.Fatalf("first = %d, want 2", first)
	}
	if second != 0 {
		t.Fatalf("second = %d, want 0", second)
	}
}

func TestConcurrentSessionsRaceSafely(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	for i := 0; i < 8; i++ {
		show(t, reg, "", "/ads/7")
	}

	// Two simulated sessions acting on the same broadcast at once.
	c1 := NewCloser(reg, logx.Nop())
	c2 := NewCloser(reg, logx.Nop())

	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i, c := range []*Closer{c1, c2} {
		wg.Add(1)
		go func(i int, c *Closer) {
			defer wg.Done()
			counts[i] = c.CloseAllMatching(context.Background(), "/ads/7")
		}(i, c)
	}
	wg.Wait()

	if total := counts[0] + counts[1]; total != 8 {
		t.Fatalf("closed %d records from 8", total)
	}
	if reg.Len() != 0 {
		t.Fatalf("registry len = %d, want 0", reg.Len())
	}
}

func TestHeldRecordClosesWithoutDestination(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	held := show(t, reg, "a1", "")
	other := show(t, reg, "b2", "/ads/7")

	c := NewCloser(reg, logx.Nop())
	if got := c.CloseAllMatchingOr(context.Background(), "", held); got != 1 {
		t.Fatalf("closed = %d, want 1", got)
	}
	if !held.Closed() {
		t.Fatal("held record not closed")
	}
	if other.Closed() {
		t.Fatal("unrelated record closed on empty destination")
	}
}

type failingRegistry struct{}

func (failingRegistry) Show(ctx context.Context, n platform.Notification) (*platform.Record, error) {
	return nil, errors.New("unavailable")
}

func (failingRegistry) Notifications(ctx context.Context) ([]*platform.Record, error) {
	return nil, errors.New("unavailable")
}

func TestEnumerationFailureFallsBackToHeldRecord(t *testing.T) {
	t.Parallel()
	held := platform.NewRecord("id", "tag", "/ads/7", nil)
	c := NewCloser(failingRegistry{}, logx.Nop())

	if got := c.CloseAllMatchingOr(context.Background(), "/ads/7", held); got != 1 {
		t.Fatalf("closed = %d, want 1", got)
	}
	if !held.Closed() {
		t.Fatal("held record not closed")
	}
	// No held record: plain no-op.
	if got := c.CloseAllMatchingOr(context.Background(), "/ads/7", nil); got != 0 {
		t.Fatalf("closed = %d, want 0", got)
	}
}
