package scenarios

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats/cell"
)

type FilterAlternative struct {
	Cost        float64
	Probability float64
	RouteNumber int
}

// FilterEnv is what a filter expression sees of a departure
type FilterEnv struct {
	Timestamp    int
	RouteNumber  int
	Alternatives []FilterAlternative
}

func newFilterEnv(record cell.DepartureRecord) FilterEnv {
	env := FilterEnv{
		Timestamp:    int(record.Timestamp),
		RouteNumber:  int(record.RouteNumber),
		Alternatives: make([]FilterAlternative, 0, len(record.Alternatives)),
	}

	for _, slot := range record.Alternatives {
		env.Alternatives = append(env.Alternatives, FilterAlternative{
			Cost:        slot.Cost,
			Probability: slot.Probability,
			RouteNumber: int(slot.RouteNumber),
		})
	}

	return env
}

// CompileFilter turns a boolean expression like
// "Timestamp >= 3600 && RouteNumber % 2 == 0" into a departure filter
func CompileFilter(expression string) (cell.FilterFunc, error) {
	program, err := expr.Compile(expression, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	return func(record cell.DepartureRecord) (bool, error) {
		return runFilter(program, record)
	}, nil
}

func runFilter(program *vm.Program, record cell.DepartureRecord) (bool, error) {
	output, err := expr.Run(program, newFilterEnv(record))
	if err != nil {
		return false, err
	}

	accepted, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T instead of bool", output)
	}

	return accepted, nil
}
