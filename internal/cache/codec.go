// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Payload header byte.
const (
	encodingPlain byte = 'p'
	encodingZstd  byte = 'z'
)

// Codec turns values into cache payloads: msgpack, zstd compressed once the
// encoded form exceeds threshold. The first byte of a payload records which.
type Codec struct {
	threshold int
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewCodec creates a codec. A threshold of zero or less disables
// compression on write; compressed payloads are still readable.
func NewCodec(threshold int) (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{threshold: threshold, encoder: encoder, decoder: decoder}, nil
}

// Marshal encodes v.
func (c *Codec) Marshal(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	if c.threshold <= 0 || len(raw) <= c.threshold {
		return append([]byte{encodingPlain}, raw...), nil
	}
	out := make([]byte, 1, len(raw)/2+1)
	out[0] = encodingZstd
	return c.encoder.EncodeAll(raw, out), nil
}

// Unmarshal decodes a payload produced by Marshal into v. Integers decode
// as int64 and floats as float64 when v is an interface.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrDeserializationFailed)
	}

	body := data[1:]
	switch data[0] {
	case encodingPlain:
	case encodingZstd:
		raw, err := c.decoder.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
		}
		body = raw
	default:
		return fmt.Errorf("%w: unknown encoding %q", ErrDeserializationFailed, data[0])
	}

	dec := msgpack.NewDecoder(bytes.NewReader(body))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return nil
}

// Compressed reports whether a payload was stored compressed.
func Compressed(data []byte) bool {
	return len(data) > 0 && data[0] == encodingZstd
}

// Close releases the zstd encoder and decoder.
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
