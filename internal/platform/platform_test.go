package platform

import (
	"context"
	"sync"
	"testing"

	"pushgate/pkg/logx"
)

func TestRecordCloseIdempotent(t *testing.T) {
	t.Parallel()
	unlinks := 0
	rec := NewRecord("id", "tag", "/x", func() { unlinks++ })

	if !rec.Close() {
		t.Fatal("first Close did not report the transition")
	}
	if rec.Close() {
		t.Fatal("second Close reported a transition")
	}
	if unlinks != 1 {
		t.Fatalf("unlink ran %d times", unlinks)
	}
	if !rec.Closed() {
		t.Fatal("record not closed")
	}
}

func TestRecordCloseConcurrent(t *testing.T) {
	t.Parallel()
	rec := NewRecord("id", "tag", "/x", nil)

	var wg sync.WaitGroup
	wins := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- rec.Close()
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for w := range wins {
		if w {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("transitions = %d, want exactly 1", total)
	}
}

func TestNilRecord(t *testing.T) {
	t.Parallel()
	var rec *Record
	if rec.Close() {
		t.Fatal("nil Close reported a transition")
	}
	if !rec.Closed() {
		t.Fatal("nil record should read as closed")
	}
}

func TestMemoryRegistryTagReplacement(t *testing.T) {
	t.Parallel()
	m := NewMemoryRegistry()
	ctx := context.Background()

	first, err := m.Show(ctx, Notification{Tag: "slot", DestinationURL: "/a"})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	second, err := m.Show(ctx, Notification{Tag: "slot", DestinationURL: "/b"})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	if !first.Closed() {
		t.Fatal("previous holder of the tag not closed")
	}
	if second.Closed() {
		t.Fatal("replacement closed")
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}

func TestMemoryRegistryUntaggedCoexist(t *testing.T) {
	t.Parallel()
	m := NewMemoryRegistry()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Show(ctx, Notification{DestinationURL: "/a"}); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("Len = %d, untagged records must coexist", m.Len())
	}
}

func TestMemoryRegistryUnlinkOnClose(t *testing.T) {
	t.Parallel()
	m := NewMemoryRegistry()
	rec, err := m.Show(context.Background(), Notification{Tag: "t"})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	rec.Close()
	if m.Len() != 0 {
		t.Fatalf("Len = %d after close, want 0", m.Len())
	}
	if m.Prune() != 0 {
		t.Fatal("Prune found stale records after unlink")
	}
}

func TestJanitorRejectsBadSpec(t *testing.T) {
	t.Parallel()
	j := NewJanitor(NewMemoryRegistry(), "not a cron spec", logx.Nop())
	if err := j.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestJanitorStartStop(t *testing.T) {
	t.Parallel()
	j := NewJanitor(NewMemoryRegistry(), "@every 1m", logx.Nop())
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Stop(context.Background())
	// Stop twice is a no-op.
	j.Stop(context.Background())
}
