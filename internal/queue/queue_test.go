package queue

import (
	"errors"
	"sync"
	"testing"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int](31)
	for i := 0; i < 20; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 20; i++ {
		got, ok := q.Pop()
		if !ok || got != i {
			t.Fatalf("pop %d: got %v/%v", i, got, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Errorf("pop on empty queue returned a value")
	}
}

func TestCapacityBound(t *testing.T) {
	const length = 31
	q := New[int](length)

	for i := 0; i < length-1; i++ {
		if err := q.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if !q.IsFull() {
		t.Errorf("queue with %d values not full", length-1)
	}
	if err := q.Push(100); !errors.Is(err, ErrQueueFull) {
		t.Errorf("got %v, expected ErrQueueFull", err)
	}

	if _, ok := q.Pop(); !ok {
		t.Fatal("pop on full queue failed")
	}
	if err := q.Push(100); err != nil {
		t.Errorf("push after pop: %v", err)
	}
	if got := q.Len(); got != length-1 {
		t.Errorf("got len %d, expected %d", got, length-1)
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](4)
	next := 0
	expected := 0
	for round := 0; round < 10; round++ {
		for q.Push(next) == nil {
			next++
		}
		for q.Len() > 1 {
			got, _ := q.Pop()
			if got != expected {
				t.Fatalf("round %d: got %d, expected %d", round, got, expected)
			}
			expected++
		}
	}
}

func TestRejectsDuplicates(t *testing.T) {
	q := New[string](5)
	if err := q.Push("A"); err != nil {
		t.Fatal(err)
	}
	if err := q.Push("A"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("got %v, expected ErrDuplicate", err)
	}
	q.Pop()
	if err := q.Push("A"); err != nil {
		t.Errorf("push after pop: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	q := New[string](6)
	if got := q.Snapshot(); len(got) != 0 || got == nil {
		t.Errorf("got %v, expected empty slice", got)
	}
	for _, v := range []string{"A", "B", "C", "D", "E"} {
		q.Push(v)
	}
	q.Pop()
	got := q.Snapshot()
	expected := []string{"B", "C", "D", "E"}
	if len(got) != len(expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("got %v, expected %v", got, expected)
		}
	}
	if q.IsFull() || q.IsEmpty() {
		t.Errorf("queue with 4 of 5 values reported full or empty")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New[int](101)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if err := q.Push(p*100 + i); err != nil {
					t.Errorf("push: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool)
	last := map[int]int{0: -1, 1: -1, 2: -1, 3: -1}
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		seen[v] = true
		// Each producer's values come out in its own order
		if v%100 <= last[v/100] {
			t.Errorf("producer %d out of order at %d", v/100, v)
		}
		last[v/100] = v % 100
	}
	if len(seen) != 100 {
		t.Errorf("got %d values, expected 100", len(seen))
	}
}
