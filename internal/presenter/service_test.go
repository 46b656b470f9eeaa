package presenter

import (
	"context"
	"errors"
	"testing"
	"time"

	"pushgate/internal/broadcast"
	"pushgate/internal/platform"
	"pushgate/internal/push"
	"pushgate/pkg/logx"
)

func TestDisplayShowsAndBroadcasts(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	bus := broadcast.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := New(Config{}, reg, bus, logx.Nop())
	rec, err := s.Display(context.Background(), push.Request{
		Title:          "Sale",
		DestinationURL: "/ads/42",
		GroupKey:       "a1",
	})
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	if rec.Tag != "a1" || rec.DestinationURL != "/ads/42" {
		t.Fatalf("record fields = %q/%q", rec.Tag, rec.DestinationURL)
	}

	select {
	case m := <-ch:
		if m.DestinationURL != "/ads/42" {
			t.Fatalf("broadcast dest = %q", m.DestinationURL)
		}
		if m.SuppressDelay != 0 {
			t.Fatalf("initial display broadcast carries delay %d", m.SuppressDelay)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast after display")
	}

	if snap := s.Snapshot(); len(snap) != 1 || snap[0].Title != "Sale" {
		t.Fatalf("history snapshot = %+v", snap)
	}
}

func TestDisplayThrottled(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	s := New(Config{RatePerSec: 1}, reg, nil, logx.Nop())

	// Burst equals the rate, so the second immediate display must hit quota.
	if _, err := s.Display(context.Background(), push.Request{Title: "a"}); err != nil {
		t.Fatalf("first display: %v", err)
	}
	_, err := s.Display(context.Background(), push.Request{Title: "b"})
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("err = %v, want ErrThrottled", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", reg.Len())
	}
}

type showFailRegistry struct{}

func (showFailRegistry) Show(ctx context.Context, n platform.Notification) (*platform.Record, error) {
	return nil, errors.New("permission revoked")
}

func (showFailRegistry) Notifications(ctx context.Context) ([]*platform.Record, error) {
	return nil, nil
}

func TestDisplayFailureDoesNotBroadcast(t *testing.T) {
	t.Parallel()
	bus := broadcast.New()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	s := New(Config{}, showFailRegistry{}, bus, logx.Nop())
	if _, err := s.Display(context.Background(), push.Request{Title: "x"}); err == nil {
		t.Fatal("expected display error")
	}
	select {
	case m := <-ch:
		t.Fatalf("unexpected broadcast %+v", m)
	default:
	}
}

func TestAnnounceCarriesDelay(t *testing.T) {
	t.Parallel()
	bus := broadcast.New()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	s := New(Config{}, platform.NewMemoryRegistry(), bus, logx.Nop())
	s.Announce("/ads/7", 15000)

	select {
	case m := <-ch:
		if m.DestinationURL != "/ads/7" || m.SuppressDelay != 15000 {
			t.Fatalf("announce message = %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no announce broadcast")
	}
}

func TestTagReplacementKeepsDestinationsIndependent(t *testing.T) {
	t.Parallel()
	reg := platform.NewMemoryRegistry()
	s := New(Config{}, reg, nil, logx.Nop())

	// Same tag, different destinations: platform replaces the slot.
	first, err := s.Display(context.Background(), push.Request{Title: "a", GroupKey: "g", DestinationURL: "/ads/1"})
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	second, err := s.Display(context.Background(), push.Request{Title: "b", GroupKey: "g", DestinationURL: "/ads/2"})
	if err != nil {
		t.Fatalf("Display: %v", err)
	}
	if !first.Closed() {
		t.Fatal("tag replacement should close the previous slot holder")
	}
	if second.Closed() {
		t.Fatal("replacement record should stay open")
	}
	if reg.Len() != 1 {
		t.Fatalf("registry len = %d, want 1", reg.Len())
	}
}
