package network

import (
	"strconv"
	"sync"
)

// IDSupplier hands out identifiers made of a fixed prefix and a counter that
// only ever goes up.
type IDSupplier struct {
	mutex  sync.Mutex
	prefix string
	start  uint64
	next   uint64
}

func NewIDSupplier(prefix string, start uint64) *IDSupplier {
	return &IDSupplier{
		prefix: prefix,
		start:  start,
		next:   start,
	}
}

func (s *IDSupplier) Next() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.prefix + strconv.FormatUint(s.next, 10)
	s.next++

	return id
}

func (s *IDSupplier) Prefix() string {
	return s.prefix
}

// Issued is the amount of identifiers handed out so far
func (s *IDSupplier) Issued() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.next - s.start
}
