package projectfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/id"
	"github.com/jackhale98/tessera/internal/tolerance"
)

// MonteCarloDefaults fill stackups that leave their Monte Carlo settings out.
type MonteCarloDefaults struct {
	Samples    int
	Confidence float64
}

var builtinDefaults = MonteCarloDefaults{
	Samples:    tolerance.DefaultSamples,
	Confidence: tolerance.DefaultConfidence,
}

// LoadStackups reads a feature and stackup library.
func LoadStackups(path string) (*tolerance.Library, error) {
	return LoadStackupsWithDefaults(path, builtinDefaults)
}

// LoadStackupsWithDefaults is LoadStackups with configured Monte Carlo
// defaults.
func LoadStackupsWithDefaults(path string, def MonteCarloDefaults) (*tolerance.Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stackup file: %w", err)
	}
	lib, err := parseStackups(data, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// ParseStackups decodes a library and fills defaults: normal distribution,
// direction +1, DefaultSamples and DefaultConfidence.
func ParseStackups(data []byte) (*tolerance.Library, error) {
	return parseStackups(data, builtinDefaults)
}

func parseStackups(data []byte, def MonteCarloDefaults) (*tolerance.Library, error) {
	const op = "projectfile.ParseStackups"
	var lib tolerance.Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}

	seen := make(map[string]bool)
	for i := range lib.Features {
		f := &lib.Features[i]
		if !id.Valid(f.ID) {
			return nil, errs.New(errs.Validation, op, "feature %d has no id", i)
		}
		if seen[f.ID] {
			return nil, errs.New(errs.Validation, op, "duplicate feature %q", f.ID)
		}
		seen[f.ID] = true
		f.Distribution = tolerance.Distribution(strings.ToLower(string(f.Distribution)))
		if f.Distribution == "" {
			f.Distribution = tolerance.Normal
		}
	}

	ids := make(map[string]bool)
	for i, st := range lib.Stackups {
		if !id.Valid(st.ID) {
			return nil, errs.New(errs.Validation, op, "stackup %d has no id", i)
		}
		if ids[st.ID] {
			return nil, errs.New(errs.Validation, op, "duplicate stackup %q", st.ID)
		}
		ids[st.ID] = true
		for i := range st.Contributions {
			if st.Contributions[i].Direction == 0 {
				st.Contributions[i].Direction = 1
			}
		}
		if st.MonteCarlo.Samples == 0 {
			st.MonteCarlo.Samples = def.Samples
		}
		if st.MonteCarlo.Confidence == 0 {
			st.MonteCarlo.Confidence = def.Confidence
		}
	}
	return &lib, nil
}

// SaveStackups writes a library as YAML.
func SaveStackups(path string, lib *tolerance.Library) error {
	data, err := yaml.Marshal(lib)
	if err != nil {
		return fmt.Errorf("encode stackups: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write stackup file: %w", err)
	}
	return nil
}
