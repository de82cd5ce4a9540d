package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type payload struct {
	Name string  `json:"name"`
	APR  float64 `json:"apr"`
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	r, err := NewRedis("redis://"+mr.Addr(), "")
	if err != nil {
		mr.Close()
		t.Fatalf("NewRedis: %v", err)
	}
	return r, mr
}

func TestRedisRoundTrip(t *testing.T) {
	r, mr := setupRedis(t)
	defer mr.Close()
	defer r.Close()

	ctx := context.Background()
	if err := SetJSON(ctx, r, "staking", payload{Name: "amnis", APR: 8.65}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	if !mr.Exists(keyPrefix + "staking") {
		t.Error("key not prefixed in redis")
	}

	var got payload
	if !GetJSON(ctx, r, "staking", &got) {
		t.Fatal("GetJSON miss after SetJSON")
	}
	if got.Name != "amnis" || got.APR != 8.65 {
		t.Errorf("got %+v", got)
	}
}

func TestRedisExpiry(t *testing.T) {
	r, mr := setupRedis(t)
	defer mr.Close()
	defer r.Close()

	ctx := context.Background()
	_ = r.Set(ctx, "news", []byte(`{}`), time.Minute)
	mr.FastForward(2 * time.Minute)

	if _, err := r.Get(ctx, "news"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestRedisDelete(t *testing.T) {
	r, mr := setupRedis(t)
	defer mr.Close()
	defer r.Close()

	ctx := context.Background()
	_ = r.Set(ctx, "tokens", []byte(`[]`), time.Minute)
	if err := r.Delete(ctx, "tokens"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "tokens"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	mr, _ := miniredis.Run()
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedis("redis://"+addr, ""); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestLocalRoundTrip(t *testing.T) {
	l, err := NewLocal(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	ctx := context.Background()
	if err := SetJSON(ctx, l, "staking", payload{Name: "thala", APR: 8.4}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	if !GetJSON(ctx, l, "staking", &got) || got.Name != "thala" {
		t.Errorf("got %+v", got)
	}
	if GetJSON(ctx, l, "absent", &got) {
		t.Error("hit on absent key")
	}
}

func TestGetJSONCorruptIsMiss(t *testing.T) {
	l, _ := NewLocal(1 << 20)
	defer l.Close()

	ctx := context.Background()
	_ = l.Set(ctx, "bad", []byte("not json"), time.Minute)
	var got payload
	if GetJSON(ctx, l, "bad", &got) {
		t.Error("corrupt entry reported as hit")
	}
}

func TestOpenFallsBackToLocal(t *testing.T) {
	c := Open("", "", slog.Default())
	defer c.Close()
	if _, ok := c.(*Local); !ok {
		t.Errorf("Open(\"\") = %T, want *Local", c)
	}

	c2 := Open("redis://127.0.0.1:1", "", slog.Default())
	defer c2.Close()
	if _, ok := c2.(*Local); !ok {
		t.Errorf("Open(unreachable) = %T, want *Local", c2)
	}
}
