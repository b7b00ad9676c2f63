// Package orderpb defines the storefront.v1.OrderService gRPC contract. The
// messages are plain Go structs carried by a JSON codec registered under the
// "json" content subtype.
//
// The wire format is not protobuf. Only clients that send
// "application/grpc+json" can call the service, such as grpc-go with
// grpc.CallContentSubtype(CodecName) or NewOrderServiceClient from this
// package. Protobuf clients such as grpcurl or protoc-generated stubs cannot
// call it: their payloads fail to decode and the server answers with
// codes.Internal.
package orderpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype clients must request.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
