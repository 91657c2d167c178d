// Package trace provides the JSONL execution trace used for debugging and
// post-hoc invariant checking, grounded in the retrieved transport
// library's dsnet.Node.logEvent / testing.TraceEvent pattern: every send and
// receive is tagged with a fresh UUID and appended as one JSON line.
package trace

import (
	"bufio"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// EvtType distinguishes a send from a receive in the trace.
type EvtType string

const (
	EvtSend EvtType = "send"
	EvtRecv EvtType = "recv"
)

// Event is one line of the trace.
type Event struct {
	ID        string  `json:"id"`
	MessageID string  `json:"message_id"`
	EvtType   EvtType `json:"evt_type"`
	Kind      int32   `json:"kind"`
	Resource  int32   `json:"resource"`
	TS        uint64  `json:"ts"`
	From      int     `json:"from"`
	To        int     `json:"to"`
}

// Writer appends Events to an underlying io.Writer as JSON lines. It is
// safe for concurrent use; nil Writers are not created by NewWriter, but a
// nil *Writer receiver is safe to call methods on and is a silent no-op,
// so callers that don't care about tracing can simply leave the field zero.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

// NewWriter wraps w for append-only JSONL trace output.
func NewWriter(w interface {
	Write([]byte) (int, error)
}) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{w: bw, enc: json.NewEncoder(bw)}
}

// Emit writes one trace event, generating a fresh event ID. messageID
// should be shared between the send-side and receive-side events for the
// same logical message, e.g. derived once per REQUEST/ACK/CONSUME/PRODUCE
// with uuid.NewString().
func (tw *Writer) Emit(evtType EvtType, messageID string, kind, resource int32, ts uint64, from, to int) {
	if tw == nil {
		return
	}
	tw.mu.Lock()
	defer tw.mu.Unlock()
	_ = tw.enc.Encode(Event{
		ID:        uuid.NewString(),
		MessageID: messageID,
		EvtType:   evtType,
		Kind:      kind,
		Resource:  resource,
		TS:        ts,
		From:      from,
		To:        to,
	})
	tw.w.Flush()
}

// NewMessageID returns a fresh UUID to correlate a send with its eventual
// receive(s) across the trace.
func NewMessageID() string {
	return uuid.NewString()
}
