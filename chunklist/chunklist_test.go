package chunklist_test

import (
	"testing"

	"tapeforge/chunklist"
)

func TestFromPreservesOrder(t *testing.T) {
	l := chunklist.From([]int{1, 2, 3, 4, 5, 6, 7}, 3)
	if l.Len() != 7 {
		t.Fatalf("expected length 7, got %d", l.Len())
	}
	if l.BucketCount() != 3 {
		t.Fatalf("expected 3 buckets of size 3, got %d", l.BucketCount())
	}
	for i, want := range []int{1, 2, 3, 4, 5, 6, 7} {
		if got := l.At(i); got != want {
			t.Errorf("At(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestRemoveShiftsOnlyOneBucket(t *testing.T) {
	l := chunklist.From([]int{1, 2, 3, 4, 5, 6}, 3)
	l.Remove(1) // remove "2" from the first bucket
	if l.Len() != 5 {
		t.Fatalf("expected length 5, got %d", l.Len())
	}
	want := []int{1, 3, 4, 5, 6}
	got := l.Values()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRemoveDropsEmptyBucket(t *testing.T) {
	l := chunklist.From([]int{1, 2}, 1)
	if l.BucketCount() != 2 {
		t.Fatalf("expected 2 buckets, got %d", l.BucketCount())
	}
	l.Remove(0)
	if l.BucketCount() != 1 {
		t.Fatalf("expected empty bucket to be dropped, bucket count %d", l.BucketCount())
	}
	if got := l.At(0); got != 2 {
		t.Errorf("At(0) = %d, want 2", got)
	}
}

func TestPtrMutatesInPlace(t *testing.T) {
	l := chunklist.From([]int{10, 20, 30}, 2)
	*l.Ptr(1) += 5
	if got := l.At(1); got != 25 {
		t.Errorf("At(1) = %d, want 25", got)
	}
}

func TestDefaultChunkSize(t *testing.T) {
	l := chunklist.New[int](0)
	for i := 0; i < chunklist.DefaultChunkSize+1; i++ {
		_ = i
	}
	source := make([]int, chunklist.DefaultChunkSize+1)
	l2 := chunklist.From(source, 0)
	if l2.BucketCount() != 2 {
		t.Fatalf("expected 2 buckets for default chunk size overflow, got %d", l2.BucketCount())
	}
	_ = l
}
