package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedDelay_Waits(t *testing.T) {
	start := time.Now()
	if err := FixedDelay(30 * time.Millisecond).Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Wait() returned after %v, want about 30ms", elapsed)
	}
}

func TestFixedDelay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := FixedDelay(time.Second).Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Wait() did not return promptly on a cancelled context")
	}
}

func TestTokenBucketPacer_SpacesCalls(t *testing.T) {
	p := NewTokenBucketPacer(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() = %v", err)
		}
	}
	// First token is immediate, the next three are 20ms apart.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("4 waits took %v, want at least ~60ms", elapsed)
	}
}

func TestNewPacer(t *testing.T) {
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{"", "core.FixedDelay", false},
		{ThrottleFixed, "core.FixedDelay", false},
		{ThrottleTokenBucket, "*core.TokenBucketPacer", false},
		{ThrottleNone, "core.NoDelay", false},
		{"adaptive", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			p, err := NewPacer(tt.mode, DefaultRowDelay)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPacer(%q) error = nil, want error", tt.mode)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPacer(%q) = %v", tt.mode, err)
			}
			if got := typeName(p); got != tt.want {
				t.Errorf("NewPacer(%q) type = %s, want %s", tt.mode, got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case FixedDelay:
		return "core.FixedDelay"
	case *TokenBucketPacer:
		return "*core.TokenBucketPacer"
	case NoDelay:
		return "core.NoDelay"
	}
	return "unknown"
}
