package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Session messages use canonical CBOR with integer keys. Decoding is
// lenient so that newer devices may add fields.
var (
	encMode = func() cbor.EncMode {
		m, err := cbor.EncOptions{
			Sort:          cbor.SortCanonical,
			IndefLength:   cbor.IndefLengthForbidden,
			NilContainers: cbor.NilContainerAsNull,
			Time:          cbor.TimeUnix,
		}.EncMode()
		if err != nil {
			panic(fmt.Sprintf("wire: encoder options: %v", err))
		}
		return m
	}()
	decMode = func() cbor.DecMode {
		m, err := cbor.DecOptions{
			DupMapKey:   cbor.DupMapKeyQuiet,
			IndefLength: cbor.IndefLengthAllowed,
		}.DecMode()
		if err != nil {
			panic(fmt.Sprintf("wire: decoder options: %v", err))
		}
		return m
	}()
)

// Marshal encodes v with the session encoding.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes session-encoded data into v.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// NewRequest builds a request, encoding payload when it is non-nil.
func NewRequest(id uint32, method Method, payload any) (*Request, error) {
	req := &Request{MessageID: id, Method: method}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		req.Payload = raw
	}
	return req, nil
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// DecodePayload decodes a raw payload into v.
func DecodePayload(raw cbor.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrMissingPayload
	}
	if err := Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
