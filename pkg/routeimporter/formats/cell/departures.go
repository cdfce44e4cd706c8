package cell

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/travigo/cellroutes/pkg/binio"
)

// The demand generator marks both a present header and the end of the
// departures with the largest int32.
const streamSentinel = math.MaxInt32

const AlternativeSlots = 3

// RecordSize is the encoded size of one departure record in bytes
const RecordSize = 4 + 4 + AlternativeSlots*(8+8+4)

type AlternativeSlot struct {
	Cost        float64
	Probability float64
	RouteNumber int32
}

type DepartureRecord struct {
	Timestamp    int32
	RouteNumber  int32
	Alternatives [AlternativeSlots]AlternativeSlot
}

type Header struct {
	Present       bool
	RecordOffset  int64
	MakeRouteTime int32
}

// DepartureDecoder reads the binary .driver stream
type DepartureDecoder struct {
	reader     *binio.Reader
	header     Header
	headerRead bool
}

func NewDepartureDecoder(r io.Reader, order binio.Order) *DepartureDecoder {
	return &DepartureDecoder{
		reader: binio.NewReader(r, order),
	}
}

// ReadHeader probes the first three integers of the stream. They are consumed
// whether or not they turn out to be a header.
func (d *DepartureDecoder) ReadHeader() (Header, error) {
	if d.headerRead {
		return d.header, nil
	}

	mark, err := d.reader.ReadInt32()
	if err != nil {
		return Header{}, err
	}
	offset, err := d.reader.ReadInt32()
	if err != nil {
		return Header{}, err
	}
	makeRouteTime, err := d.reader.ReadInt32()
	if err != nil {
		return Header{}, err
	}

	header := Header{
		RecordOffset:  d.reader.Offset(),
		MakeRouteTime: makeRouteTime,
	}

	if mark == streamSentinel {
		if offset < 0 {
			return Header{}, fmt.Errorf("header points to negative record offset %d", offset)
		}
		if err := d.reader.Seek(int64(offset)); err != nil {
			return Header{}, err
		}

		header.Present = true
		header.RecordOffset = int64(offset)
	}

	d.header = header
	d.headerRead = true

	return header, nil
}

// Next decodes one departure. It returns io.EOF at the end marker or when
// the stream ends on a record boundary.
func (d *DepartureDecoder) Next() (DepartureRecord, error) {
	var record DepartureRecord

	start := d.reader.Offset()

	timestamp, err := d.reader.ReadInt32()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return record, io.EOF
		}
		return record, d.truncated(start, err)
	}
	if timestamp == streamSentinel {
		return record, io.EOF
	}
	record.Timestamp = timestamp

	if record.RouteNumber, err = d.reader.ReadInt32(); err != nil {
		return record, d.truncated(start, err)
	}

	for i := range record.Alternatives {
		slot := &record.Alternatives[i]

		if slot.Cost, err = d.reader.ReadFloat64(); err != nil {
			return record, d.truncated(start, err)
		}
		if slot.Probability, err = d.reader.ReadFloat64(); err != nil {
			return record, d.truncated(start, err)
		}
		if slot.RouteNumber, err = d.reader.ReadInt32(); err != nil {
			return record, d.truncated(start, err)
		}
	}

	return record, nil
}

func (d *DepartureDecoder) truncated(start int64, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w at offset %d: %v", ErrTruncatedRecord, start, err)
	}
	return err
}

func (d *DepartureDecoder) Offset() int64 {
	return d.reader.Offset()
}
