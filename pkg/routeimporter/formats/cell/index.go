package cell

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// RouteIndex maps a route number to the byte offset of its line in the
// .rinfo file. Route n is the n-th entry.
type RouteIndex struct {
	offsets []uint64
	scanned bool
}

// ScanIndex walks a route-definition store and records where every line
// starts. The first route always starts at offset 0.
func ScanIndex(r io.Reader) (*RouteIndex, error) {
	index := &RouteIndex{
		offsets: []uint64{0},
		scanned: true,
	}

	reader := bufio.NewReaderSize(r, 64*1024)

	var position uint64
	atLineStart := false

	for {
		chunk, err := reader.ReadSlice('\n')

		if len(chunk) > 0 {
			if atLineStart {
				index.offsets = append(index.offsets, position)
			}
			position += uint64(len(chunk))
			atLineStart = chunk[len(chunk)-1] == '\n'
		}

		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return index, nil
}

// ParseIndex reads a persisted index, one decimal offset per line. Blank
// lines are ignored. Offsets must fit a file position.
func ParseIndex(r io.Reader, name string) (*RouteIndex, error) {
	index := &RouteIndex{}

	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		offset, err := strconv.ParseUint(line, 10, 64)
		if err != nil || offset > math.MaxInt64 {
			return nil, &IndexFormatError{
				Path:    name,
				Line:    lineNumber,
				Content: line,
			}
		}

		index.offsets = append(index.offsets, offset)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return index, nil
}

func (i *RouteIndex) OffsetFor(routeNumber int32) (uint64, bool) {
	if routeNumber < 0 || int(routeNumber) >= len(i.offsets) {
		return 0, false
	}

	return i.offsets[routeNumber], true
}

func (i *RouteIndex) Len() int {
	return len(i.offsets)
}

func (i *RouteIndex) Offsets() []uint64 {
	return slices.Clone(i.offsets)
}

// Scanned reports whether the index was built from the route file itself
// rather than loaded from a store.
func (i *RouteIndex) Scanned() bool {
	return i.scanned
}

// WriteTo writes the index in the persisted format
func (i *RouteIndex) WriteTo(w io.Writer) (int64, error) {
	writer := bufio.NewWriter(w)

	var written int64
	line := make([]byte, 0, 24)

	for _, offset := range i.offsets {
		line = strconv.AppendUint(line[:0], offset, 10)
		line = append(line, '\n')

		n, err := writer.Write(line)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	return written, writer.Flush()
}

func (i *RouteIndex) String() string {
	var builder strings.Builder
	i.WriteTo(&builder)
	return builder.String()
}
