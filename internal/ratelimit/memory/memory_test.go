package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlexKimmel/termfolio/internal/ratelimit"
)

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, err := New(ratelimit.Policy{MaxRequests: 2, Window: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 2; i++ {
		if d, _ := l.Allow(ctx, "alice", now); !d.Allowed {
			t.Fatalf("alice request %d should be allowed", i+1)
		}
	}
	if d, _ := l.Allow(ctx, "alice", now); d.Allowed {
		t.Fatal("alice third request should be denied")
	}
	if d, _ := l.Allow(ctx, "bob", now); !d.Allowed {
		t.Fatal("bob should have a separate budget")
	}
}

func TestLimiter_Prune(t *testing.T) {
	l, err := New(ratelimit.Policy{MaxRequests: 5, Window: time.Minute})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	start := time.Now()

	_, _ = l.Allow(ctx, "old", start)
	_, _ = l.Allow(ctx, "fresh", start.Add(50*time.Second))

	if n := l.Prune(start.Add(70 * time.Second)); n != 1 {
		t.Fatalf("Prune removed %d keys, want 1", n)
	}
	if _, ok := l.logs.Load("old"); ok {
		t.Fatal("drained key should be gone")
	}
	if _, ok := l.logs.Load("fresh"); !ok {
		t.Fatal("active key should stay")
	}
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	_, err := New(ratelimit.Policy{MaxRequests: 0, Window: time.Minute})
	if !errors.Is(err, ratelimit.ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
}
