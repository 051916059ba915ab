// Package chunklist implements a bucketed, random-access sequence.
//
// The optimizer repeatedly removes short runs of adjacent elements from a
// long instruction sequence. A flat slice would shift every element past
// the removal point, which is O(N) per removal over a sequence that can be
// millions of instructions long. List instead partitions the sequence into
// fixed-size buckets; a removal only ever shuffles the tail of one bucket.
package chunklist

import "fmt"

// DefaultChunkSize is the bucket size used when none is specified.
const DefaultChunkSize = 2048

// List is an ordered sequence of T split into non-empty buckets whose
// concatenation, in order, is the logical sequence. Buckets become shorter
// than chunkSize as elements are removed from them; an empty bucket is
// dropped immediately so iteration and length never have to skip holes.
type List[T any] struct {
	chunkSize int
	buckets   [][]T
}

// New creates an empty list with the given bucket size.
func New[T any](chunkSize int) *List[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &List[T]{chunkSize: chunkSize}
}

// From partitions source into consecutive buckets of up to chunkSize
// elements, preserving order. source is copied; the caller's slice is not
// retained.
func From[T any](source []T, chunkSize int) *List[T] {
	l := New[T](chunkSize)
	for len(source) > 0 {
		n := l.chunkSize
		if n > len(source) {
			n = len(source)
		}
		bucket := make([]T, n)
		copy(bucket, source[:n])
		l.buckets = append(l.buckets, bucket)
		source = source[n:]
	}
	return l
}

// Len returns the number of elements across all buckets.
func (l *List[T]) Len() int {
	n := 0
	for _, b := range l.buckets {
		n += len(b)
	}
	return n
}

// locate finds the bucket and in-bucket offset holding logical index i.
func (l *List[T]) locate(i int) (bucket, offset int, err error) {
	if i < 0 {
		return 0, 0, fmt.Errorf("chunklist: negative index %d", i)
	}
	for bi, b := range l.buckets {
		if i < len(b) {
			return bi, i, nil
		}
		i -= len(b)
	}
	return 0, 0, fmt.Errorf("chunklist: index out of range")
}

// At returns the element at logical index i. It panics if i is out of
// range; callers that expect out-of-range access in the normal course of
// business should check Len first, as the optimizer passes do at window
// boundaries.
func (l *List[T]) At(i int) T {
	bi, off, err := l.locate(i)
	if err != nil {
		panic(err)
	}
	return l.buckets[bi][off]
}

// Ptr returns a pointer to the element at logical index i, so callers can
// mutate in place without a Set method.
func (l *List[T]) Ptr(i int) *T {
	bi, off, err := l.locate(i)
	if err != nil {
		panic(err)
	}
	return &l.buckets[bi][off]
}

// Set overwrites the element at logical index i.
func (l *List[T]) Set(i int, v T) {
	*l.Ptr(i) = v
}

// Remove deletes the element at logical index i, shifting only the tail of
// its containing bucket. If the bucket becomes empty it is dropped.
func (l *List[T]) Remove(i int) {
	bi, off, err := l.locate(i)
	if err != nil {
		panic(err)
	}
	b := l.buckets[bi]
	b = append(b[:off], b[off+1:]...)
	if len(b) == 0 {
		l.buckets = append(l.buckets[:bi], l.buckets[bi+1:]...)
		return
	}
	l.buckets[bi] = b
}

// Values returns the elements in order as a plain slice. It is the
// "iterate consuming" operation from the container's contract: the
// returned slice is a fresh copy, finite, and not tied to the list's
// internal bucket layout.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.Len())
	for _, b := range l.buckets {
		out = append(out, b...)
	}
	return out
}

// BucketCount reports how many buckets currently back the list. Exposed
// for tests that check the container's removal behavior stays bounded to
// one bucket's tail.
func (l *List[T]) BucketCount() int {
	return len(l.buckets)
}
