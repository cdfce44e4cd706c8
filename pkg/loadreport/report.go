// Package loadreport collects the recoverable problems found while importing
// route files. Loaders keep going after adding an entry; callers inspect the
// report once the import has finished.
package loadreport

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Kind string

const (
	KindMissingRoute        Kind = "missing-route"
	KindUnknownEdge         Kind = "unknown-edge"
	KindEmptyAlternativeSet Kind = "empty-alternative-set"
	KindTruncatedStream     Kind = "truncated-stream"
)

type Entry struct {
	Kind     Kind
	Scenario string
	File     string
	Message  string
	Time     time.Time
}

// Report is safe for use by several loaders at once
type Report struct {
	mutex   sync.Mutex
	entries []Entry
	counts  map[Kind]int

	hooks []func(Entry)
}

func New() *Report {
	return &Report{
		counts: map[Kind]int{},
	}
}

// OnAdd registers a callback run for every new entry
func (r *Report) OnAdd(hook func(Entry)) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.hooks = append(r.hooks, hook)
}

func (r *Report) Add(entry Entry) {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	r.mutex.Lock()
	r.entries = append(r.entries, entry)
	r.counts[entry.Kind]++
	hooks := r.hooks
	r.mutex.Unlock()

	log.Warn().
		Str("kind", string(entry.Kind)).
		Str("scenario", entry.Scenario).
		Msg(entry.Message)

	for _, hook := range hooks {
		hook(entry)
	}
}

func (r *Report) Addf(kind Kind, scenario string, file string, format string, args ...interface{}) {
	r.Add(Entry{
		Kind:     kind,
		Scenario: scenario,
		File:     file,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) Entries() []Entry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return slices.Clone(r.entries)
}

func (r *Report) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.entries)
}

func (r *Report) Count(kind Kind) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.counts[kind]
}

// ForScenario returns only the entries reported by one scenario
func (r *Report) ForScenario(scenario string) []Entry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var entries []Entry
	for _, entry := range r.entries {
		if entry.Scenario == scenario {
			entries = append(entries, entry)
		}
	}

	return entries
}

// Summary maps each kind seen so far to its count, kinds sorted by name
func (r *Report) Summary() ([]Kind, map[Kind]int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	kinds := make([]Kind, 0, len(r.counts))
	for kind := range r.counts {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	return kinds, maps.Clone(r.counts)
}
