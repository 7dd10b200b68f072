package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"io"
	"math"
	"net"
)

// FrameHeaderLength is the size of the length field that precedes every frame
const FrameHeaderLength = 4

// WriteFrame writes a frame to w with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func WriteFrame(w io.Writer, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", common.ErrFrameTooLarge, len(data))
	}

	header := make([]byte, FrameHeaderLength)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	// net.Buffers combines header and payload into one write where possible
	b := net.Buffers{header}
	if len(data) > 0 {
		b = append(b, data)
	}
	_, err := b.WriteTo(w)
	return err
}

// FrameReader reads length prefixed frames from a connection
type FrameReader struct {
	r      *bufio.Reader
	max    int
	header [FrameHeaderLength]byte
}

// NewFrameReader creates a reader that rejects frames longer than maxFrameLength
// (maxFrameLength <= 0 means no limit besides the 4 byte length field)
func NewFrameReader(r io.Reader, maxFrameLength int) *FrameReader {
	if maxFrameLength <= 0 {
		maxFrameLength = math.MaxInt32
	}
	return &FrameReader{r: bufio.NewReader(r), max: maxFrameLength}
}

// ReadFrame reads the next frame. The returned slice is newly allocated and
// may be handed to another goroutine.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.r, f.header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(f.header[:])
	if uint64(length) > uint64(f.max) {
		return nil, common.NewFrameworkError("read frame", fmt.Errorf("%w: %d bytes (max %d)", common.ErrFrameTooLarge, length, f.max))
	}

	// If no data, return empty slice
	if length == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
