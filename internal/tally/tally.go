// Package tally implements AckTally: bookkeeping of which same-class peers
// have acknowledged this process's own in-flight request.
package tally

import "fmt"

// AckTally tracks acknowledgements for one in-flight own request.
type AckTally struct {
	received    map[int]bool
	count       int
	total       int
	selfGranted bool
}

// New builds an AckTally for a peer set (same-class peers, excluding self).
func New(peers []int) *AckTally {
	received := make(map[int]bool, len(peers))
	for _, p := range peers {
		received[p] = false
	}
	return &AckTally{
		received: received,
		total:    len(peers),
	}
}

// Record registers peer's ACK. Pre: peer has not already ACK'd.
func (t *AckTally) Record(peer int) {
	if _, known := t.received[peer]; !known {
		panic(fmt.Sprintf("tally: ACK from unknown peer %d", peer))
	}
	if t.received[peer] {
		panic(fmt.Sprintf("tally: duplicate ACK from peer %d", peer))
	}
	t.received[peer] = true
	t.count++
}

// RecordSelf marks the owner's own grant as received. Pre: not already set.
func (t *AckTally) RecordSelf() {
	if t.selfGranted {
		panic("tally: self already granted")
	}
	t.selfGranted = true
}

// Complete reports whether every same-class peer has ACK'd and the owner has
// self-granted.
func (t *AckTally) Complete() bool {
	return t.selfGranted && t.count == t.total
}

// Reset zeroes out the tally so it can be reused for the next request.
func (t *AckTally) Reset() {
	for p := range t.received {
		t.received[p] = false
	}
	t.count = 0
	t.selfGranted = false
}
