package scenarios

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	iso8601 "github.com/senseyeio/duration"
	"github.com/travigo/cellroutes/pkg/network"
	"github.com/travigo/cellroutes/pkg/routeimporter/formats/cell"
)

type Format string

const (
	FormatCell Format = "cell"
)

type IndexStoreKind string

const (
	IndexStoreFile  IndexStoreKind = "file"
	IndexStoreCache IndexStoreKind = "cache"
)

// File is one YAML document. The defaults are merged into every scenario
// listed in the same document.
type File struct {
	Defaults  Scenario   `yaml:"defaults"`
	Scenarios []Scenario `yaml:"scenarios"`
}

type Scenario struct {
	Identifier string `yaml:"identifier" validate:"required"`
	Format     Format `yaml:"format" validate:"required,oneof=cell"`

	Prefix string `yaml:"prefix" validate:"required"`
	Edges  string `yaml:"edges" validate:"required"`

	Intel     *bool `yaml:"intel"`
	UseLast   *bool `yaml:"useLast"`
	SaveIndex *bool `yaml:"saveIndex"`

	// Begin and End take either seconds or an ISO-8601 duration like PT6H
	Begin string `yaml:"begin"`
	End   string `yaml:"end"`

	GawronBeta float64 `yaml:"gawronBeta" validate:"gte=0"`
	GawronA    float64 `yaml:"gawronA" validate:"gte=0"`

	IndexStore IndexStoreKind `yaml:"indexStore" validate:"omitempty,oneof=file cache"`

	Filter string `yaml:"filter"`

	// Source is the file the scenario was read from
	Source string `yaml:"-"`
}

var validate = validator.New()

// Merge returns the scenario with every unset field taken from defaults
func Merge(defaults Scenario, scenario Scenario) (Scenario, error) {
	var merged Scenario

	if err := copier.CopyWithOption(&merged, defaults, copier.Option{DeepCopy: true}); err != nil {
		return Scenario{}, err
	}
	if err := copier.CopyWithOption(&merged, scenario, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return Scenario{}, err
	}

	return merged, nil
}

func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Identifier, err)
	}

	begin, err := ParseTime(s.Begin)
	if err != nil {
		return fmt.Errorf("scenario %q begin: %w", s.Identifier, err)
	}
	end, err := ParseTime(s.End)
	if err != nil {
		return fmt.Errorf("scenario %q end: %w", s.Identifier, err)
	}
	if end != 0 && end < begin {
		return fmt.Errorf("scenario %q ends at %d before it begins at %d", s.Identifier, end, begin)
	}

	if s.Filter != "" {
		if _, err := CompileFilter(s.Filter); err != nil {
			return fmt.Errorf("scenario %q filter: %w", s.Identifier, err)
		}
	}

	return nil
}

// resolvePaths makes relative file references relative to the directory of
// the scenario file
func (s *Scenario) resolvePaths() {
	if s.Source == "" {
		return
	}

	directory := filepath.Dir(s.Source)
	if s.Prefix != "" && !filepath.IsAbs(s.Prefix) {
		s.Prefix = filepath.Join(directory, s.Prefix)
	}
	if s.Edges != "" && !filepath.IsAbs(s.Edges) {
		s.Edges = filepath.Join(directory, s.Edges)
	}
}

func flag(value *bool) bool {
	return value != nil && *value
}

// LoaderConfig converts the scenario into a cell loader configuration. The
// index store is left for the caller to choose.
func (s *Scenario) LoaderConfig() (cell.Config, error) {
	begin, err := ParseTime(s.Begin)
	if err != nil {
		return cell.Config{}, err
	}
	end, err := ParseTime(s.End)
	if err != nil {
		return cell.Config{}, err
	}

	config := cell.Config{
		Scenario:   s.Identifier,
		Prefix:     s.Prefix,
		Intel:      flag(s.Intel),
		UseLast:    flag(s.UseLast),
		SaveIndex:  flag(s.SaveIndex),
		Begin:      begin,
		End:        end,
		GawronBeta: s.GawronBeta,
		GawronA:    s.GawronA,
		DataSource: &network.DataSource{
			OriginalFormat: string(s.Format),
			Dataset:        s.Identifier,
			Identifier:     fmt.Sprint(time.Now().Unix()),
		},
	}

	if s.Filter != "" {
		config.Filter, err = CompileFilter(s.Filter)
		if err != nil {
			return cell.Config{}, err
		}
	}

	return config, nil
}

// ParseTime reads a simulation time step. Plain integers are seconds, anything
// else is parsed as an ISO-8601 duration counted from the simulation start.
// An empty value is zero.
func ParseTime(value string) (int32, error) {
	if value == "" {
		return 0, nil
	}

	if seconds, err := strconv.ParseInt(value, 10, 32); err == nil {
		return int32(seconds), nil
	}

	duration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", value, err)
	}

	epoch := time.Unix(0, 0).UTC()
	seconds := duration.Shift(epoch).Sub(epoch).Seconds()

	if seconds > float64(1<<31-1) {
		return 0, fmt.Errorf("time %q is out of range", value)
	}

	return int32(seconds), nil
}
