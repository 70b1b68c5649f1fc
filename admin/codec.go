package admin

import (
	"encoding/json"
	"fmt"
)

// jsonCodec is a grpc.Codec/encoding.Codec implementation that marshals
// messages as JSON instead of protobuf. It lets the admin gRPC service
// use plain Go structs as its wire messages, avoiding a dependency on
// protoc-generated stubs while still running over real gRPC framing,
// flow control, and transport security.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("admin: json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return "json" }
