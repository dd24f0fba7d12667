// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-ch:
		if !got.Equal(epoch.Add(time.Second)) {
			t.Errorf("fired at %v, want %v", got, epoch.Add(time.Second))
		}
	default:
		t.Fatal("did not fire at deadline")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
}

func TestSleepWakesOnAdvance(t *testing.T) {
	c := Fake(epoch)
	done := make(chan error, 1)
	go func() { done <- Sleep(context.Background(), c, 5*time.Second) }()

	c.WaitForWaiters(1)
	c.Advance(5 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Sleep returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestSleepCancelled(t *testing.T) {
	c := Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Sleep(ctx, c, time.Hour) }()

	c.WaitForWaiters(1)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Sleep returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Sleep ignored cancellation")
	}
}
