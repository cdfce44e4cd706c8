package routes

import (
	"sync"

	"github.com/travigo/cellroutes/pkg/loadreport"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
)

// Store holds the imported scenarios the API serves
type Store struct {
	mutex sync.RWMutex

	results map[string]*manager.Result
	order   []string
	report  *loadreport.Report
}

func NewStore(results []*manager.Result, report *loadreport.Report) *Store {
	if report == nil {
		report = loadreport.New()
	}

	store := &Store{
		results: map[string]*manager.Result{},
		report:  report,
	}
	for _, result := range results {
		store.Put(result)
	}

	return store
}

// Put adds or replaces the result of a scenario import
func (s *Store) Put(result *manager.Result) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	identifier := result.Scenario.Identifier
	if _, exists := s.results[identifier]; !exists {
		s.order = append(s.order, identifier)
	}
	s.results[identifier] = result
}

func (s *Store) Get(identifier string) (*manager.Result, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result, exists := s.results[identifier]
	return result, exists
}

func (s *Store) All() []*manager.Result {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	results := make([]*manager.Result, 0, len(s.order))
	for _, identifier := range s.order {
		results = append(results, s.results[identifier])
	}
	return results
}

func (s *Store) Report() *loadreport.Report {
	return s.report
}
