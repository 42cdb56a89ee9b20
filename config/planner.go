package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeu5/gridverse-planning/planners"
)

var (
	ErrMalformedOverwrite = errors.New("malformed overwrite, expected key=value")
	ErrUnknownKey         = errors.New("unknown configuration key")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// PlannerConfig is the flat planner configuration file, shared by the
// fully and partially observable modes.
type PlannerConfig struct {
	planners.UCTConfig `yaml:",inline"`

	NumParticles  int `yaml:"num_particles" json:"num_particles"`
	MaxAttempts   int `yaml:"max_attempts" json:"max_attempts"`
	BeliefWorkers int `yaml:"belief_workers" json:"belief_workers"`
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		UCTConfig:     planners.DefaultUCTConfig(),
		NumParticles:  64,
		MaxAttempts:   0,
		BeliefWorkers: 1,
	}
}

// LoadPlannerConfig reads path on top of the defaults, then applies the
// key=value overwrites in order and validates the result.
func LoadPlannerConfig(path string, overwrites []string) (PlannerConfig, error) {
	config := DefaultPlannerConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("reading planner config: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("parsing planner config %s: %w", path, err)
		}
	}
	if err := config.Overwrite(overwrites...); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Overwrite sets the keys named in key=value pairs. Values are parsed as the
// type of the existing key.
func (c *PlannerConfig) Overwrite(overwrites ...string) error {
	fields := yamlFields(reflect.ValueOf(c).Elem())
	for _, o := range overwrites {
		parts := strings.Split(o, "=")
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("%w: %q", ErrMalformedOverwrite, o)
		}
		key, value := parts[0], parts[1]
		field, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		target, err := parseValue(value, field.Type())
		if err != nil {
			return fmt.Errorf("%w: %s=%s is not a valid %s", ErrMalformedOverwrite, key, value, field.Type())
		}
		field.Set(target)
	}
	return nil
}

// parseValue decodes value as a yaml scalar of type t. Integer fields only
// take scalars tagged !!int, so 1.5 is rejected instead of truncated.
func parseValue(value string, t reflect.Type) (reflect.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
		return reflect.Value{}, err
	}
	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.ScalarNode {
		return reflect.Value{}, errors.New("not a scalar")
	}
	node := doc.Content[0]
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if node.ShortTag() != "!!int" {
			return reflect.Value{}, fmt.Errorf("%s is not an integer", node.Value)
		}
	}
	// decode into a copy so a failed overwrite leaves the field untouched
	target := reflect.New(t)
	if err := node.Decode(target.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return target.Elem(), nil
}

// yamlFields maps yaml keys to the settable fields of v, descending into inline structs
func yamlFields(v reflect.Value) map[string]reflect.Value {
	out := make(map[string]reflect.Value)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		name, opts, _ := strings.Cut(tag, ",")
		if opts == "inline" {
			for k, f := range yamlFields(v.Field(i)) {
				out[k] = f
			}
			continue
		}
		if name == "" || name == "-" {
			continue
		}
		out[name] = v.Field(i)
	}
	return out
}

func (c PlannerConfig) Validate() error {
	if err := c.UCTConfig.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.NumParticles < 1 {
		return fmt.Errorf("%w: num_particles must be positive, got %d", ErrInvalidConfig, c.NumParticles)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must not be negative", ErrInvalidConfig)
	}
	if c.BeliefWorkers < 1 {
		return fmt.Errorf("%w: belief_workers must be positive", ErrInvalidConfig)
	}
	return nil
}
