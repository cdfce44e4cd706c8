package scenarios

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Load reads scenarios from a YAML file or from every .yaml/.yml file below a
// directory. Each scenario has its document defaults merged in and is
// validated.
func Load(path string) ([]Scenario, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !fileInfo.IsDir() {
		return loadFile(path)
	}

	var loaded []Scenario
	seen := map[string]string{}

	err = filepath.Walk(path,
		func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if fileInfo.IsDir() {
				return nil
			}

			extension := filepath.Ext(path)
			if extension != ".yaml" && extension != ".yml" {
				return nil
			}

			log.Debug().Str("path", path).Msg("Loading scenario file")

			fileScenarios, err := loadFile(path)
			if err != nil {
				return err
			}

			for _, scenario := range fileScenarios {
				if previous, exists := seen[scenario.Identifier]; exists {
					return fmt.Errorf("scenario %q defined in both %s and %s", scenario.Identifier, previous, path)
				}
				seen[scenario.Identifier] = path
			}

			loaded = append(loaded, fileScenarios...)

			return nil
		})
	if err != nil {
		return nil, err
	}

	return loaded, nil
}

func loadFile(path string) ([]Scenario, error) {
	scenarioYaml, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Decode(bytes.NewReader(scenarioYaml), path)
}

// Decode reads every YAML document of r. source is used to resolve relative
// file paths and may be empty.
func Decode(r io.Reader, source string) ([]Scenario, error) {
	var decoded []Scenario
	seen := map[string]bool{}

	decoder := yaml.NewDecoder(r)

	for {
		var file File
		err := decoder.Decode(&file)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", source, err)
		}

		for _, scenario := range file.Scenarios {
			merged, err := Merge(file.Defaults, scenario)
			if err != nil {
				return nil, err
			}

			merged.Source = source
			merged.resolvePaths()

			if err := merged.Validate(); err != nil {
				return nil, err
			}

			if seen[merged.Identifier] {
				return nil, fmt.Errorf("scenario %q defined twice in %s", merged.Identifier, source)
			}
			seen[merged.Identifier] = true

			decoded = append(decoded, merged)
		}
	}

	return decoded, nil
}

func Find(scenarios []Scenario, identifier string) (Scenario, error) {
	for _, scenario := range scenarios {
		if scenario.Identifier == identifier {
			return scenario, nil
		}
	}

	return Scenario{}, fmt.Errorf("scenario %q could not be found", identifier)
}
