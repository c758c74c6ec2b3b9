package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of store operations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order against one store.
	Steps []Step `yaml:"steps"`
}

// Step is one operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// As names the inserted record so later steps can refer to it.
	As string `yaml:"as,omitempty"`

	// Args are the insert arguments.
	Args *InsertArgs `yaml:"args,omitempty"`

	// Repeat inserts the record this many times. Requires As.
	Repeat int `yaml:"repeat,omitempty"`

	// Interval is added to created_at for each repeated insert.
	Interval string `yaml:"interval,omitempty"`

	// Ref names a previously inserted record to delete.
	Ref string `yaml:"ref,omitempty"`

	// ID is a literal id to delete.
	ID string `yaml:"id,omitempty"`

	// Expect is checked against the step outcome when present.
	Expect *Expect `yaml:"expect,omitempty"`
}

// InsertArgs mirrors history.Draft.
type InsertArgs struct {
	Host      string `yaml:"host"`
	Topic     string `yaml:"topic"`
	Message   string `yaml:"message"`
	CreatedAt string `yaml:"created_at"`
}

// Expect describes the expected outcome of a step. Unset fields are not checked.
type Expect struct {
	// Error is the expected history.ErrorCode, e.g. VALIDATION_ERROR.
	Error string `yaml:"error,omitempty"`

	// Deleted is the expected delete count.
	Deleted *int64 `yaml:"deleted,omitempty"`

	// Count is the expected listing length (list) or record count (count).
	Count *int64 `yaml:"count,omitempty"`

	// Refs is the expected listing order, as aliases.
	Refs []string `yaml:"refs,omitempty"`
}

// Operation names.
const (
	OpInsert = "insert"
	OpDelete = "delete"
	OpList   = "list"
	OpCount  = "count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields, or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "step:" vs "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// aliases returns the names an insert step binds.
func (s Step) aliases() []string {
	if s.As == "" {
		return nil
	}
	if s.Repeat == 0 {
		return []string{s.As}
	}
	names := make([]string, s.Repeat)
	for i := range names {
		names[i] = s.As + strconv.Itoa(i+1)
	}
	return names
}

func (s Step) interval() time.Duration {
	if s.Interval == "" {
		return 0
	}
	d, _ := time.ParseDuration(s.Interval)
	return d
}

// validateScenario checks required fields and that every ref names a
// record bound by an earlier step.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := map[string]bool{}
	for i, step := range s.Steps {
		if err := validateStep(step, bound); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		for _, name := range step.aliases() {
			if bound[name] {
				return fmt.Errorf("steps[%d]: alias %q already bound", i, name)
			}
			bound[name] = true
		}
	}
	return nil
}

func validateStep(step Step, bound map[string]bool) error {
	switch step.Op {
	case OpInsert:
		if step.Args == nil {
			return fmt.Errorf("insert: args is required")
		}
		if step.Repeat < 0 {
			return fmt.Errorf("insert: repeat must not be negative")
		}
		if step.Repeat > 0 && step.As == "" {
			return fmt.Errorf("insert: repeat requires as")
		}
		if step.Interval != "" {
			if step.Repeat == 0 {
				return fmt.Errorf("insert: interval requires repeat")
			}
			if _, err := time.ParseDuration(step.Interval); err != nil {
				return fmt.Errorf("insert: interval: %w", err)
			}
		}
		if step.Ref != "" || step.ID != "" {
			return fmt.Errorf("insert: ref and id are not allowed")
		}
	case OpDelete:
		if (step.Ref == "") == (step.ID == "") {
			return fmt.Errorf("delete: exactly one of ref or id is required")
		}
		if step.Ref != "" && !bound[step.Ref] {
			return fmt.Errorf("delete: unknown ref %q", step.Ref)
		}
		if step.Args != nil || step.As != "" || step.Repeat != 0 {
			return fmt.Errorf("delete: only ref, id and expect are allowed")
		}
	case OpList, OpCount:
		if step.Args != nil || step.As != "" || step.Ref != "" || step.ID != "" || step.Repeat != 0 {
			return fmt.Errorf("%s: only expect is allowed", step.Op)
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if step.Expect != nil {
		for _, ref := range step.Expect.Refs {
			if !bound[ref] {
				return fmt.Errorf("expect: unknown ref %q", ref)
			}
		}
		if len(step.Expect.Refs) > 0 && step.Op != OpList {
			return fmt.Errorf("expect: refs only applies to list")
		}
		if step.Expect.Deleted != nil && step.Op != OpDelete {
			return fmt.Errorf("expect: deleted only applies to delete")
		}
	}
	return nil
}
