package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FeatureSync is the syncfeatures setting. It is either a bool, where true
// means every feature file, or a glob of the feature files to count.
type FeatureSync struct {
	Enabled bool
	Glob    string
}

// Pattern returns the glob of feature files to count, or "" when counting
// is off
func (f FeatureSync) Pattern() string {
	switch {
	case f.Glob != "":
		return f.Glob
	case f.Enabled:
		return DefaultFeatureGlob
	default:
		return ""
	}
}

func (f *FeatureSync) set(v any) error {
	switch v := v.(type) {
	case bool:
		*f = FeatureSync{Enabled: v}
	case string:
		*f = FeatureSync{Enabled: v != "", Glob: v}
	case nil:
		*f = FeatureSync{}
	default:
		return fmt.Errorf("syncfeatures: expected bool or glob, got %T", v)
	}
	return nil
}

func (f *FeatureSync) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return f.set(v)
}

func (f FeatureSync) MarshalJSON() ([]byte, error) {
	if f.Glob != "" {
		return json.Marshal(f.Glob)
	}
	return json.Marshal(f.Enabled)
}

// UnmarshalTOML implements toml.Unmarshaler
func (f *FeatureSync) UnmarshalTOML(v any) error {
	return f.set(v)
}

func (f *FeatureSync) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return f.set(v)
}
