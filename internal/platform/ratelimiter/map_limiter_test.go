package ratelimiter_test

import (
	"testing"
	"time"

	"murmur/internal/platform/ratelimiter"
)

func TestAllowEnforcesBurstPerKey(t *testing.T) {
	l := ratelimiter.New(1, 2, time.Minute)
	now := time.Now()

	if !l.Allow("alice", now) || !l.Allow("alice", now) {
		t.Fatal("burst of 2 not honored")
	}
	if l.Allow("alice", now) {
		t.Fatal("third immediate request allowed past the burst")
	}
	// Other keys have their own bucket.
	if !l.Allow("bob", now) {
		t.Fatal("unrelated key was limited")
	}
}

func TestAllowRefillsOverTime(t *testing.T) {
	l := ratelimiter.New(1, 1, time.Minute)
	now := time.Now()

	if !l.Allow("alice", now) {
		t.Fatal("first request limited")
	}
	if l.Allow("alice", now) {
		t.Fatal("second immediate request allowed")
	}
	if !l.Allow("alice", now.Add(2*time.Second)) {
		t.Fatal("bucket did not refill after the interval")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *ratelimiter.MapLimiter
	for range 10 {
		if !l.Allow("anyone", time.Now()) {
			t.Fatal("nil limiter limited a request")
		}
	}
	if ratelimiter.New(0, 0, 0) != nil {
		t.Fatal("invalid args should yield a nil limiter")
	}
}

func TestEmptyKeyNotLimited(t *testing.T) {
	l := ratelimiter.New(1, 1, time.Minute)
	now := time.Now()
	for range 5 {
		if !l.Allow("  ", now) {
			t.Fatal("blank key was limited")
		}
	}
}
