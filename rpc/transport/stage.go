package transport

import (
	"fmt"
	"github.com/klauspost/compress/zstd"
)

// IStage is one element of the per-connection processing chain between the codec and
// the framing. Outbound runs on encoded requests before they are framed, Inbound on
// received frames before they are decoded. Both ends must use the same stages.
type IStage interface {
	Name() string
	Outbound(data []byte) ([]byte, error)
	Inbound(data []byte) ([]byte, error)
}

// Pipeline is an ordered list of stages. Outbound applies the stages in order,
// Inbound in reverse order.
type Pipeline []IStage

func (p Pipeline) Outbound(data []byte) ([]byte, error) {
	var err error
	for _, s := range p {
		if data, err = s.Outbound(data); err != nil {
			return nil, fmt.Errorf("stage %s outbound: %w", s.Name(), err)
		}
	}
	return data, nil
}

func (p Pipeline) Inbound(data []byte) ([]byte, error) {
	var err error
	for i := len(p) - 1; i >= 0; i-- {
		if data, err = p[i].Inbound(data); err != nil {
			return nil, fmt.Errorf("stage %s inbound: %w", p[i].Name(), err)
		}
	}
	return data, nil
}

// Names returns the names of all stages
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name()
	}
	return names
}

// StagesFor returns the pipeline for a compression name ("" or "none" for no stage)
func StagesFor(compression string, maxFrameLength int) (Pipeline, error) {
	switch compression {
	case "", "none":
		return nil, nil
	case "zstd":
		s, err := NewZstdStage(maxFrameLength)
		if err != nil {
			return nil, err
		}
		return Pipeline{s}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s (must be one of none, zstd)", compression)
	}
}

// --------------------------------------------------------------------------
// zstd compression stage
// --------------------------------------------------------------------------

type zstdStage struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdStage creates a compression stage. Decompressed frames larger than
// maxFrameLength are rejected (<= 0 keeps the zstd default limit).
func NewZstdStage(maxFrameLength int) (IStage, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if maxFrameLength > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(maxFrameLength)))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &zstdStage{enc: enc, dec: dec}, nil
}

func (z *zstdStage) Name() string { return "zstd" }

// EncodeAll and DecodeAll are safe for concurrent use

func (z *zstdStage) Outbound(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, make([]byte, 0, len(data)/2+16)), nil
}

func (z *zstdStage) Inbound(data []byte) ([]byte, error) {
	return z.dec.DecodeAll(data, nil)
}
