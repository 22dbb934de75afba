// Package rpc carries the plumbing shared by every policyd gRPC service:
// the JSON wire codec, generic handler and client helpers, interceptors
// and the mapping from store errors to gRPC and HTTP status codes.
package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype clients must select, i.e.
// "application/grpc+json".
const CodecName = "json"

// jsonCodec lets the services run on grpc-go without generated protobuf
// messages. Requests and responses are plain structs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal keeps numbers inside untyped fields as json.Number so large
// integer claims survive unchanged.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON message")
	}
	return nil
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Codec returns the registered JSON codec.
func Codec() encoding.Codec {
	return jsonCodec{}
}
