// Package rpc implements the pluggable outbound-channel transport: a
// gRPC service and client pair that ships envelopes queued on a remote
// node's outbound channel (internal/delivery.Engine.RegisterOutbound)
// across the wire to that node's inbound router.
//
// Grounded on the teacher's internal/grpc package (NewServer/Start/Stop
// lifecycle, logging.Op() on every lifecycle event) but carrying a single
// RPC — Deliver — instead of the teacher's full function-invocation
// surface. Message envelopes travel as JSON rather than a
// protoc-generated message type: a custom grpc codec keeps the transport
// on google.golang.org/grpc (the teacher's own choice for inter-service
// calls) without requiring a protobuf compiler run, which this workspace
// cannot perform.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec by
// delegating straight to encoding/json, so both server and client must
// register it (done in init) before any RPC using it can succeed.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
