package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/entsync/internal/ir"
)

// Scenario defines a reconciliation conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the directory holding the CUE or YAML entity schema.
	// Relative paths are resolved against the scenario file's directory,
	// or the base path given to LoadScenarioWithBasePath.
	Schema string `yaml:"schema"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is either a sync or a clock advance.
type Step struct {
	// Sync names the entity the payloads are reconciled into.
	Sync string `yaml:"sync,omitempty"`

	// Key and Value select the entity explicitly. When empty, the
	// identity property is read from each payload.
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Payload is a single payload; Payloads a batch committed together.
	Payload  map[string]any   `yaml:"payload,omitempty"`
	Payloads []map[string]any `yaml:"payloads,omitempty"`

	// Advance moves the clock forward by a Go duration, e.g. "1h".
	Advance string `yaml:"advance,omitempty"`

	// Expect checks the commit produced by a sync step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a sync step.
type ExpectClause struct {
	// Inserted and Updated are the expected object counts of the commit.
	Inserted *int `yaml:"inserted,omitempty"`
	Updated  *int `yaml:"updated,omitempty"`

	// Error is the expected reconcile error code. The step's changes are
	// rolled back.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is AssertCount or AssertEntity.
	Type string `yaml:"type"`

	// Entity is the entity name the assertion queries.
	Entity string `yaml:"entity"`

	// Where selects entities by field equality. All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected number of matches (count).
	Count int `yaml:"count,omitempty"`

	// Expect contains expected field values (entity). A null value means
	// the field must be absent.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Relations maps relationship names to the identity values of the
	// expected targets, in order (entity).
	Relations map[string][]any `yaml:"relations,omitempty"`
}

// Assertion type constants.
const (
	AssertCount  = "count"
	AssertEntity = "entity"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// schema path against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative schema path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}
	if info, err := os.Stat(scenario.Schema); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("invalid scenario: schema directory not found: %s", scenario.Schema)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
// Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if s.Schema == "" {
		return errors.New("schema is required")
	}
	if len(s.Steps) == 0 {
		return errors.New("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch {
	case step.Sync != "" && step.Advance != "":
		return errors.New("sync and advance are mutually exclusive")
	case step.Advance != "":
		if _, err := time.ParseDuration(step.Advance); err != nil {
			return fmt.Errorf("invalid advance: %w", err)
		}
		if step.Expect != nil {
			return errors.New("expect is not allowed on advance steps")
		}
		return nil
	case step.Sync == "":
		return errors.New("sync or advance is required")
	}

	if step.Payload == nil && step.Payloads == nil {
		return errors.New("payload or payloads is required")
	}
	if step.Payload != nil && step.Payloads != nil {
		return errors.New("payload and payloads are mutually exclusive")
	}
	if (step.Key == "") != (step.Value == nil) {
		return errors.New("key and value must be given together")
	}
	if step.Key != "" && len(step.Payloads) > 0 {
		return errors.New("key is not allowed with payloads")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if a.Type == "" {
		return errors.New("type is required")
	}
	if a.Entity == "" {
		return fmt.Errorf("entity is required for %s", a.Type)
	}

	switch a.Type {
	case AssertCount:
		if a.Count < 0 {
			return errors.New("count must be non-negative")
		}
	case AssertEntity:
		if len(a.Where) == 0 {
			return errors.New("where is required for entity")
		}
		if len(a.Expect) == 0 && len(a.Relations) == 0 {
			return errors.New("expect or relations is required for entity")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// payloads returns the step's payloads as IR objects.
func (s Step) payloads() ([]ir.IRObject, error) {
	raw := s.Payloads
	if s.Payload != nil {
		raw = []map[string]any{s.Payload}
	}

	out := make([]ir.IRObject, 0, len(raw))
	for i, p := range raw {
		obj, err := toIRObject(p)
		if err != nil {
			return nil, fmt.Errorf("payload[%d]: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// toIRObject converts a YAML mapping to an IR object. Explicit nulls are
// kept, since they clear fields.
func toIRObject(m map[string]any) (ir.IRObject, error) {
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRObject), nil
}
