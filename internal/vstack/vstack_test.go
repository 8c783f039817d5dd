package vstack

import "testing"

func TestPushIncreasesDepth(t *testing.T) {
	s := New()
	s.Push(2)
	if s.Depth() != 2 {
		t.Fatalf("got depth %d, want 2", s.Depth())
	}
}

func TestPopDecreasesDepth(t *testing.T) {
	s := New()
	s.Push(3)
	s.Pop(1)
	if s.Depth() != 2 {
		t.Fatalf("got depth %d, want 2", s.Depth())
	}
}

func TestPopUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on stack underflow")
		}
	}()
	s := New()
	s.Pop(1)
}
