package binio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Order selects how multi-byte values in a stream are reassembled.
type Order int

const (
	// BigEndian is the non-intel layout, most significant byte first
	BigEndian Order = iota
	// LittleEndian is the intel layout, least significant byte first
	LittleEndian
)

func OrderFromIntel(intel bool) Order {
	if intel {
		return LittleEndian
	}
	return BigEndian
}

func (o Order) String() string {
	if o == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

func (o Order) byteOrder() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// StreamReadError is returned when the stream holds fewer bytes than the
// value being decoded needs.
type StreamReadError struct {
	Offset int64
	Width  int
	Read   int
	Err    error
}

func (e *StreamReadError) Error() string {
	return fmt.Sprintf("reading %d byte value at offset %d: got %d bytes: %v", e.Width, e.Offset, e.Read, e.Err)
}

func (e *StreamReadError) Unwrap() error {
	return e.Err
}

// Reader decodes fixed width values from a byte stream and keeps track of
// the absolute cursor position.
type Reader struct {
	source io.Reader
	r      *bufio.Reader
	order  binary.ByteOrder
	offset int64
	buf    [8]byte
}

// NewReader buffers r. The cursor starts at zero, so r should be positioned
// at the beginning of the stream.
func NewReader(r io.Reader, order Order) *Reader {
	return &Reader{
		source: r,
		r:      bufio.NewReader(r),
		order:  order.byteOrder(),
	}
}

// Offset is the absolute position of the next byte to be read.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Seek moves the cursor to an absolute position. The underlying reader must
// implement io.Seeker.
func (r *Reader) Seek(offset int64) error {
	seeker, ok := r.source.(io.Seeker)
	if !ok {
		return errors.New("binio: underlying stream does not support seeking")
	}

	position, err := seeker.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}
	r.r.Reset(r.source)
	r.offset = position

	return nil
}

func (r *Reader) fill(width int) ([]byte, error) {
	b := r.buf[:width]
	n, err := io.ReadFull(r.r, b)
	r.offset += int64(n)

	if err != nil {
		return nil, &StreamReadError{
			Offset: r.offset - int64(n),
			Width:  width,
			Read:   n,
			Err:    err,
		}
	}

	return b, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}

	return int32(r.order.Uint32(b)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(r.order.Uint64(b)), nil
}
