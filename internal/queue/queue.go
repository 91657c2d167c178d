// Package queue implements ResourceQueue: the per-resource ordered set of
// pending requests and the sliding grant window described by the protocol.
package queue

import (
	"fmt"
	"sort"
)

// Entry is a single pending request: the requesting rank and the Lamport
// timestamp its REQUEST carried.
type Entry struct {
	Rank int
	TS   uint64
}

// Less implements the strict total order over entries: (ts, rank) ascending.
func (e Entry) Less(o Entry) bool {
	if e.TS != o.TS {
		return e.TS < o.TS
	}
	return e.Rank < o.Rank
}

// ResourceQueue tracks one resource's believed available capacity and the
// ordered set of ranks waiting on it.
type ResourceQueue struct {
	available int
	entries   []Entry
	ackSent   map[int]bool
}

// New creates a ResourceQueue seeded with the locally-believed capacity.
func New(initialAvailable int) *ResourceQueue {
	return &ResourceQueue{
		available: initialAvailable,
		ackSent:   make(map[int]bool),
	}
}

// Available returns the current believed free capacity.
func (q *ResourceQueue) Available() int {
	return q.available
}

// Len returns the number of pending entries.
func (q *ResourceQueue) Len() int {
	return len(q.entries)
}

// indexOf returns the position of rank in the ordered entry slice, or -1.
func (q *ResourceQueue) indexOf(rank int) int {
	for i, e := range q.entries {
		if e.Rank == rank {
			return i
		}
	}
	return -1
}

// AckSent reports whether this process has already granted its permission
// for rank's current request.
func (q *ResourceQueue) AckSent(rank int) bool {
	return q.ackSent[rank]
}

// AddRequest inserts (rank, ts) into the ordered entry set and reports
// whether the insertion position falls inside the current grant window
// (the first Available() positions). It panics if rank already has a
// pending entry, since a same-peer duplicate REQUEST is a protocol
// violation the caller must never let through undetected.
func (q *ResourceQueue) AddRequest(rank int, ts uint64) (inWindow bool) {
	if q.indexOf(rank) >= 0 {
		panic(fmt.Sprintf("queue: duplicate REQUEST from rank %d", rank))
	}

	e := Entry{Rank: rank, TS: ts}
	pos := sort.Search(len(q.entries), func(i int) bool {
		return e.Less(q.entries[i])
	})
	q.entries = append(q.entries, Entry{})
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = e

	return pos < q.available
}

// Consume removes rank's entry, clears its ack-sent flag and decrements the
// believed available capacity. Pre: rank holds an entry inside the grant
// window and has already been ack'd — violations panic rather than silently
// corrupting the queue, per the spec's "unrecoverable programming error"
// failure semantics.
func (q *ResourceQueue) Consume(rank int) {
	idx := q.indexOf(rank)
	if idx < 0 {
		panic(fmt.Sprintf("queue: CONSUME from rank %d with no pending entry", rank))
	}
	if idx >= q.available {
		panic(fmt.Sprintf("queue: CONSUME from rank %d outside the grant window (idx=%d available=%d)", rank, idx, q.available))
	}
	if !q.ackSent[rank] {
		panic(fmt.Sprintf("queue: CONSUME from rank %d without a prior ACK", rank))
	}

	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	delete(q.ackSent, rank)
	q.available--
}

// Produce increments the believed available capacity and, if the window now
// reaches a not-yet-ack'd entry, returns that entry's rank so the caller can
// grant it. It never returns a rank whose ACK was already sent.
func (q *ResourceQueue) Produce() (candidate int, ok bool) {
	q.available++

	idx := q.available - 1
	if idx < 0 || idx >= len(q.entries) {
		return 0, false
	}
	e := q.entries[idx]
	if q.ackSent[e.Rank] {
		return 0, false
	}
	return e.Rank, true
}

// MarkAckSent records that this process has granted its permission to rank.
// Pre: the flag was not already set — re-acking a peer is a protocol
// violation.
func (q *ResourceQueue) MarkAckSent(rank int) {
	if q.ackSent[rank] {
		panic(fmt.Sprintf("queue: rank %d already ack'd", rank))
	}
	q.ackSent[rank] = true
}

// Snapshot returns a defensive copy of the pending entries in queue order,
// for introspection and tests.
func (q *ResourceQueue) Snapshot() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}
