package wire

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// HeaderSize is the fixed size of a frame header: one tag byte followed
	// by a big-endian uint32 payload length.
	HeaderSize = 5

	// DefaultMaxFrameSize is the payload size limit applied when a Reader is
	// created with no explicit limit.
	DefaultMaxFrameSize = 8 << 20
)

// Frame kinds, encoded in the tag byte as tag >> 1.
const (
	// KindProto marks a frame whose payload is a protobuf message.
	KindProto = 0x00
	// KindJSON marks a stream-control frame: an empty JSON object ends the
	// stream, any other JSON object reports an upstream error.
	KindJSON = 0x01
)

// flagCompressed is bit 0 of the tag byte and marks a gzipped payload.
const flagCompressed = 0x01

// Frame is one complete length-prefixed message read from or written to the
// upstream connection. Payload is owned by the Frame and remains valid after
// subsequent Reader operations.
type Frame struct {
	Tag     byte
	Payload []byte
}

// Kind returns the frame kind encoded in the tag byte.
func (f *Frame) Kind() byte { return f.Tag >> 1 }

// Compressed reports whether the payload is gzip-compressed.
func (f *Frame) Compressed() bool { return f.Tag&flagCompressed != 0 }

// Body returns the payload with compression undone. For uncompressed frames
// it returns the payload as-is.
func (f *Frame) Body() ([]byte, error) {
	if !f.Compressed() {
		return f.Payload, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(f.Payload))
	if err != nil {
		return nil, fmt.Errorf("frame body: %w", err)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("frame body: %w", err)
	}
	return body, nil
}

// FrameTooLargeError reports a frame whose declared payload length exceeds
// the reader's limit. The frame is never buffered; the stream is unusable
// afterwards.
type FrameTooLargeError struct {
	Declared uint32
	Limit    uint32
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame payload of %d bytes exceeds limit of %d", e.Declared, e.Limit)
}

// TruncatedFrameError reports a byte feed that ended in the middle of a
// frame header or payload.
type TruncatedFrameError struct {
	Have int
	Need int
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("stream ended mid-frame: have %d of %d bytes", e.Have, e.Need)
}

// Reader reassembles frames from an append-only byte feed delivered in
// arbitrary-sized chunks. Feed appends transport bytes; Next drains complete
// frames. A frame is never returned until its entire payload has arrived.
//
// Reader is not safe for concurrent use; one Reader serves one stream.
type Reader struct {
	buf []byte
	off int
	max uint32
	err error
}

// NewReader returns a Reader enforcing the given payload size limit.
// A limit of 0 selects DefaultMaxFrameSize.
func NewReader(maxFrameSize uint32) *Reader {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Reader{max: maxFrameSize}
}

// Feed appends transport bytes to the reassembly buffer.
func (r *Reader) Feed(p []byte) {
	if r.err != nil || len(p) == 0 {
		return
	}
	// Compact consumed prefix before growing.
	if r.off > 0 && r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	} else if r.off > 4096 {
		r.buf = append(r.buf[:0], r.buf[r.off:]...)
		r.off = 0
	}
	r.buf = append(r.buf, p...)
}

// Next returns the next complete frame, or nil when more bytes are needed.
// Once Next returns an error the Reader is poisoned and every subsequent
// call returns the same error.
func (r *Reader) Next() (*Frame, error) {
	if r.err != nil {
		return nil, r.err
	}
	pending := r.buf[r.off:]
	if len(pending) < HeaderSize {
		return nil, nil
	}
	length := binary.BigEndian.Uint32(pending[1:HeaderSize])
	if length > r.max {
		r.err = &FrameTooLargeError{Declared: length, Limit: r.max}
		return nil, r.err
	}
	total := HeaderSize + int(length)
	if len(pending) < total {
		return nil, nil
	}
	payload := make([]byte, length)
	copy(payload, pending[HeaderSize:total])
	frame := &Frame{Tag: pending[0], Payload: payload}
	r.off += total
	return frame, nil
}

// Buffered returns the number of unconsumed bytes held by the reader.
func (r *Reader) Buffered() int { return len(r.buf) - r.off }

// Finish marks the end of the byte feed. It returns a TruncatedFrameError
// when a partial frame remains buffered, and nil on a clean frame boundary.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	pending := r.buf[r.off:]
	if len(pending) == 0 {
		return nil
	}
	need := HeaderSize
	if len(pending) >= HeaderSize {
		need = HeaderSize + int(binary.BigEndian.Uint32(pending[1:HeaderSize]))
	}
	r.err = &TruncatedFrameError{Have: len(pending), Need: need}
	return r.err
}

// StreamReader drains frames from an io.Reader, typically a streaming HTTP
// response body. It owns an internal Reader and a chunk buffer.
type StreamReader struct {
	src   io.Reader
	fr    *Reader
	chunk []byte
	done  bool
}

// NewStreamReader returns a StreamReader applying the given payload size
// limit (0 selects DefaultMaxFrameSize).
func NewStreamReader(src io.Reader, maxFrameSize uint32) *StreamReader {
	return &StreamReader{
		src:   src,
		fr:    NewReader(maxFrameSize),
		chunk: make([]byte, 32*1024),
	}
}

// Next returns the next frame from the underlying reader. It returns io.EOF
// after the source is exhausted on a clean frame boundary, and a
// TruncatedFrameError when the source ends mid-frame.
func (s *StreamReader) Next() (*Frame, error) {
	for {
		frame, err := s.fr.Next()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}
		if s.done {
			if err := s.fr.Finish(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		n, err := s.src.Read(s.chunk)
		if n > 0 {
			s.fr.Feed(s.chunk[:n])
		}
		if err == io.EOF {
			s.done = true
		} else if err != nil {
			return nil, err
		}
	}
}

// AppendFrame appends one encoded frame to dst and returns the extended
// slice. The payload is written uncompressed.
func AppendFrame(dst []byte, tag byte, payload []byte) []byte {
	dst = append(dst, tag&^flagCompressed)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// compressThreshold is the payload size above which EncodeFrame gzips.
const compressThreshold = 4096

// EncodeFrame returns one encoded frame, gzipping the payload and setting
// the compression flag when that shrinks a large payload.
func EncodeFrame(tag byte, payload []byte) []byte {
	if len(payload) > compressThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err == nil && zw.Close() == nil && buf.Len() < len(payload) {
			out := make([]byte, 0, HeaderSize+buf.Len())
			out = append(out, tag|flagCompressed)
			out = binary.BigEndian.AppendUint32(out, uint32(buf.Len()))
			return append(out, buf.Bytes()...)
		}
	}
	return AppendFrame(make([]byte, 0, HeaderSize+len(payload)), tag, payload)
}
