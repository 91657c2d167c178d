package grpcnet

import (
	"encoding/json"

	structpb "google.golang.org/protobuf/types/known/structpb"

	"github.com/desecnd/gnomes-rat-killers/transport"
)

// clientMsg and serverMsg are the two directions of the control stream.
// They are carried as *structpb.Struct on the wire, encoded/decoded via a
// JSON round-trip exactly the way the retrieved transport library's
// dsnet/encoding.go does for its generic Envelope payload; this lets the
// stream use a real, already-compiled protobuf message type (structpb.Struct
// implements proto.Message) without hand-authoring generated .pb.go bindings
// for a bespoke message schema.
type clientMsg struct {
	Type string            `json:"type"` // "register" | "send"
	Rank int                `json:"rank"`
	Dest int                `json:"dest,omitempty"`
	Kind int32              `json:"kind,omitempty"`
	Res  int32              `json:"resource,omitempty"`
	TS   uint64             `json:"ts,omitempty"`
}

type serverMsg struct {
	Type string `json:"type"` // "registered" | "forward"
	From int    `json:"from,omitempty"`
	Kind int32  `json:"kind,omitempty"`
	Res  int32  `json:"resource,omitempty"`
	TS   uint64 `json:"ts,omitempty"`
}

func encodeStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func decodeStruct(s *structpb.Struct, v interface{}) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func registerMsg(rank int) (*structpb.Struct, error) {
	return encodeStruct(clientMsg{Type: "register", Rank: rank})
}

func sendMsg(rank, dest int, p transport.Payload) (*structpb.Struct, error) {
	return encodeStruct(clientMsg{
		Type: "send",
		Rank: rank,
		Dest: dest,
		Kind: p.Kind,
		Res:  p.Resource,
		TS:   p.TS,
	})
}

func registeredReply() (*structpb.Struct, error) {
	return encodeStruct(serverMsg{Type: "registered"})
}

func forwardReply(from int, p transport.Payload) (*structpb.Struct, error) {
	return encodeStruct(serverMsg{
		Type: "forward",
		From: from,
		Kind: p.Kind,
		Res:  p.Resource,
		TS:   p.TS,
	})
}
