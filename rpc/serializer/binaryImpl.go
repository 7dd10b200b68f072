package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"sort"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Request:  ack (16) | serial (1) | flags (1) | [service] | [method] | [headers] | [payload]
// Response: ack (16) | flags (1) | [payload] | [err]
//
// Strings and byte slices are encoded as 4 byte big endian length + data, headers as
// 4 byte count followed by the key/value strings.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasService byte = 1 << 0
	hasMethod  byte = 1 << 1
	hasHeaders byte = 1 << 2
	hasPayload byte = 1 << 3
	hasErr     byte = 1 << 4
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) SerializeRequest(req *common.Request) ([]byte, error) {
	result := make([]byte, b.requestSize(req))

	copy(result[0:common.AckIDLength], req.Ack[:])
	result[common.AckIDLength] = req.Serial

	var flags byte = 0
	pos := common.AckIDLength + 2 // Start after ack, serial and flags

	if req.Service != "" {
		flags |= hasService
		pos = putBytes(result, pos, []byte(req.Service))
	}

	if req.Method != "" {
		flags |= hasMethod
		pos = putBytes(result, pos, []byte(req.Method))
	}

	if len(req.Headers) > 0 {
		flags |= hasHeaders
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(req.Headers)))
		pos += 4

		// Sort keys so equal requests serialize to equal bytes
		keys := make([]string, 0, len(req.Headers))
		for k := range req.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pos = putBytes(result, pos, []byte(k))
			pos = putBytes(result, pos, []byte(req.Headers[k]))
		}
	}

	if req.Payload != nil {
		flags |= hasPayload
		pos = putBytes(result, pos, req.Payload)
	}

	result[common.AckIDLength+1] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	// Check minimum size (ack + serial + flags)
	if len(data) < common.AckIDLength+2 {
		return fmt.Errorf("data too short for request header")
	}

	copy(req.Ack[:], data[0:common.AckIDLength])
	req.Serial = data[common.AckIDLength]
	flags := data[common.AckIDLength+1]
	pos := common.AckIDLength + 2

	var err error
	var raw []byte

	req.Service = ""
	if flags&hasService != 0 {
		if raw, pos, err = readBytes(data, pos, "service"); err != nil {
			return err
		}
		req.Service = string(raw)
	}

	req.Method = ""
	if flags&hasMethod != 0 {
		if raw, pos, err = readBytes(data, pos, "method"); err != nil {
			return err
		}
		req.Method = string(raw)
	}

	req.Headers = nil
	if flags&hasHeaders != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for header count")
		}
		count := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4

		req.Headers = make(map[string]string, min(count, 64))
		for i := 0; i < count; i++ {
			var k, v []byte
			if k, pos, err = readBytes(data, pos, "header key"); err != nil {
				return err
			}
			if v, pos, err = readBytes(data, pos, "header value"); err != nil {
				return err
			}
			req.Headers[string(k)] = string(v)
		}
	}

	req.Payload = nil
	if flags&hasPayload != 0 {
		if raw, pos, err = readBytes(data, pos, "payload"); err != nil {
			return err
		}
		// copy, data may be a reused read buffer
		req.Payload = append(make([]byte, 0, len(raw)), raw...)
	}

	return nil
}

func (b binarySerializerImpl) SerializeResponse(resp *common.Response) ([]byte, error) {
	result := make([]byte, b.responseSize(resp))

	copy(result[0:common.AckIDLength], resp.Ack[:])

	var flags byte = 0
	pos := common.AckIDLength + 1 // Start after ack and flags

	if resp.Payload != nil {
		flags |= hasPayload
		pos = putBytes(result, pos, resp.Payload)
	}

	if resp.Err != "" {
		flags |= hasErr
		pos = putBytes(result, pos, []byte(resp.Err))
	}

	result[common.AckIDLength] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	// Check minimum size (ack + flags)
	if len(data) < common.AckIDLength+1 {
		return fmt.Errorf("data too short for response header")
	}

	copy(resp.Ack[:], data[0:common.AckIDLength])
	flags := data[common.AckIDLength]
	pos := common.AckIDLength + 1

	var err error
	var raw []byte

	resp.Payload = nil
	if flags&hasPayload != 0 {
		if raw, pos, err = readBytes(data, pos, "payload"); err != nil {
			return err
		}
		resp.Payload = append(make([]byte, 0, len(raw)), raw...)
	}

	resp.Err = ""
	if flags&hasErr != 0 {
		if raw, _, err = readBytes(data, pos, "error"); err != nil {
			return err
		}
		resp.Err = string(raw)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// requestSize calculates the total size needed for serialization of a request
func (b binarySerializerImpl) requestSize(req *common.Request) int {
	// ack + 1 byte serial + 1 byte flags
	size := common.AckIDLength + 2

	if req.Service != "" {
		size += 4 + len(req.Service)
	}
	if req.Method != "" {
		size += 4 + len(req.Method)
	}
	if len(req.Headers) > 0 {
		size += 4 // count
		for k, v := range req.Headers {
			size += 8 + len(k) + len(v)
		}
	}
	if req.Payload != nil {
		size += 4 + len(req.Payload)
	}

	return size
}

// responseSize calculates the total size needed for serialization of a response
func (b binarySerializerImpl) responseSize(resp *common.Response) int {
	// ack + 1 byte flags
	size := common.AckIDLength + 1

	if resp.Payload != nil {
		size += 4 + len(resp.Payload)
	}
	if resp.Err != "" {
		size += 4 + len(resp.Err)
	}

	return size
}

// putBytes writes the length of value followed by value at pos and returns the new position
func putBytes(buf []byte, pos int, value []byte) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(value)))
	pos += 4
	copy(buf[pos:pos+len(value)], value)
	return pos + len(value)
}

// readBytes reads a length prefixed field at pos. The returned slice aliases data.
func readBytes(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", field)
	}
	return data[pos : pos+n], pos + n, nil
}
