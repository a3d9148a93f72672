package realtime

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe(1)
	b, cancelB := hub.Subscribe(1)
	defer cancelB()

	event := NewEvent("new-attendance", map[string]string{"bioId": "1"})
	if event.ID == "" {
		t.Fatal("expected event id")
	}
	if err := hub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			if got.ID != event.ID {
				t.Fatalf("expected %s, got %s", event.ID, got.ID)
			}
		default:
			t.Fatal("expected event to be delivered")
		}
	}

	cancelA()
	cancelA()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}
	if _, ok := <-a; ok {
		t.Fatal("expected cancelled channel to be closed")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	first := NewEvent("new-attendance", 1)
	_ = hub.Publish(ctx, first)
	_ = hub.Publish(ctx, NewEvent("new-attendance", 2))

	got := <-ch
	if got.ID != first.ID {
		t.Fatalf("expected first event to be kept")
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected second event to be dropped, got %+v", extra)
	default:
	}
}

func unusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

func TestManagerFallsBackToHubWhenRedisDown(t *testing.T) {
	addr := unusedAddr(t)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	var dials int
	factory := func(options *redis.Options) *redis.Client {
		dials++
		options.DialTimeout = 200 * time.Millisecond
		options.MaxRetries = -1
		return redis.NewClient(options)
	}
	settings := func() RedisSettings {
		return RedisSettings{Enabled: true, Addr: addr, Channel: "attendance:events"}
	}
	m := NewManager(nil, settings, func() time.Time { return now }, factory)
	defer func() { _ = m.Close() }()

	ch, cancel := m.Hub().Subscribe(4)
	defer cancel()

	if err := m.Publish(context.Background(), NewEvent("new-attendance", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !m.BreakerOpen() {
		t.Fatal("expected breaker to open after redis failure")
	}
	if err := m.Publish(context.Background(), NewEvent("new-attendance", 2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if dials != 1 {
		t.Fatalf("expected redis to be skipped while breaker is open, got %d dials", dials)
	}
	if len(ch) != 2 {
		t.Fatalf("expected hub to receive both events, got %d", len(ch))
	}

	now = now.Add(redisBreakerDuration + time.Second)
	if m.BreakerOpen() {
		t.Fatal("expected breaker to close after its window")
	}
}

func TestManagerHubOnlyWhenDisabled(t *testing.T) {
	var dials int
	factory := func(options *redis.Options) *redis.Client {
		dials++
		return redis.NewClient(options)
	}
	m := NewManager(nil, nil, nil, factory)
	ch, cancel := m.Hub().Subscribe(1)
	defer cancel()

	if err := m.Publish(context.Background(), NewEvent("new-attendance", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if dials != 0 {
		t.Fatalf("expected no redis client, got %d", dials)
	}
	if len(ch) != 1 {
		t.Fatalf("expected one hub event, got %d", len(ch))
	}
}

func TestBreakerWindow(t *testing.T) {
	b := newBreaker(time.Minute)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	if b.Open(now) {
		t.Fatal("expected new breaker to be closed")
	}
	if !b.Trip(now) {
		t.Fatal("expected first trip to open the breaker")
	}
	if b.Trip(now.Add(time.Second)) {
		t.Fatal("expected trip inside the window to be ignored")
	}
	if !b.Open(now.Add(59 * time.Second)) {
		t.Fatal("expected breaker open inside the window")
	}
	if b.Open(now.Add(time.Minute)) {
		t.Fatal("expected breaker closed once the window passes")
	}
	if !b.Trip(now.Add(2 * time.Minute)) {
		t.Fatal("expected breaker to trip again after closing")
	}
}

func TestOpenRedisPublisherRequiresAddress(t *testing.T) {
	var dials int
	factory := func(options *redis.Options) *redis.Client {
		dials++
		return redis.NewClient(options)
	}
	if _, err := OpenRedisPublisher(context.Background(), factory, RedisSettings{Enabled: true, Addr: "  "}); err == nil {
		t.Fatal("expected error without an address")
	}
	if dials != 0 {
		t.Fatalf("expected no client for a blank address, got %d", dials)
	}
}
