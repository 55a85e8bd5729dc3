// Package config loads the workspace settings: which files hold step
// definitions, which feature files are counted, and how patterns are read.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
	"github.com/jarredhawkins/gherkin-lsp/internal/query"
)

// Section is the settings namespace editors send and store settings under
const Section = "cucumberautocomplete"

// DefaultFeatureGlob is counted when syncfeatures is true
const DefaultFeatureGlob = "**/*.feature"

// ErrNoSteps is returned by Validate when no step globs are configured
var ErrNoSteps = errors.New("no step definition globs configured")

// Candidate settings files, in lookup order, relative to the workspace root
var settingsFiles = []string{
	".gherkin-lsp.toml",
	".gherkin-lsp.yaml",
	".gherkin-lsp.yml",
	".gherkin-lsp.json",
	filepath.Join(".vscode", "settings.json"),
}

// CustomParameter is a textual alias applied to step patterns before
// anything else
type CustomParameter struct {
	Parameter string `json:"parameter" toml:"parameter" yaml:"parameter"`
	Value     string `json:"value" toml:"value" yaml:"value"`
}

// Settings is the full set of user settings
type Settings struct {
	// Steps are globs, relative to the root, of step definition files
	Steps []string `json:"steps" toml:"steps" yaml:"steps"`
	// SyncFeatures selects the feature files usage counts come from
	SyncFeatures FeatureSync `json:"syncfeatures" toml:"syncfeatures" yaml:"syncfeatures"`

	StrictGherkinCompletion bool `json:"strictGherkinCompletion" toml:"strictGherkinCompletion" yaml:"strictGherkinCompletion"`
	StrictGherkinValidation bool `json:"strictGherkinValidation" toml:"strictGherkinValidation" yaml:"strictGherkinValidation"`
	SmartSnippets           bool `json:"smartSnippets" toml:"smartSnippets" yaml:"smartSnippets"`
	StepsInvariants         bool `json:"stepsInvariants" toml:"stepsInvariants" yaml:"stepsInvariants"`
	PureTextSteps           bool `json:"pureTextSteps" toml:"pureTextSteps" yaml:"pureTextSteps"`

	CustomParameters []CustomParameter `json:"customParameters" toml:"customParameters" yaml:"customParameters"`

	// GherkinDefinitionPart overrides the regex for step definition call names
	GherkinDefinitionPart string `json:"gherkinDefinitionPart" toml:"gherkinDefinitionPart" yaml:"gherkinDefinitionPart"`
	// StepRegExSymbol overrides the characters that delimit a step pattern
	StepRegExSymbol string `json:"stepRegExSymbol" toml:"stepRegExSymbol" yaml:"stepRegExSymbol"`
}

// Defaults returns the settings used when nothing is configured
func Defaults() *Settings {
	return &Settings{
		Steps:        []string{"features/step_definitions/**/*"},
		SyncFeatures: FeatureSync{Enabled: true},
	}
}

// Validate checks that the settings can be used to build an index
func (s *Settings) Validate() error {
	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	for _, glob := range s.Steps {
		if !doublestar.ValidatePattern(filepath.ToSlash(glob)) {
			return fmt.Errorf("invalid steps glob %q", glob)
		}
	}
	if p := s.SyncFeatures.Pattern(); p != "" && !doublestar.ValidatePattern(filepath.ToSlash(p)) {
		return fmt.Errorf("invalid syncfeatures glob %q", p)
	}
	if s.GherkinDefinitionPart != "" {
		if _, err := regexp.Compile("(" + s.GherkinDefinitionPart + ")"); err != nil {
			return fmt.Errorf("invalid gherkinDefinitionPart: %w", err)
		}
	}
	return nil
}

// Mode returns the pattern mode selected by pureTextSteps
func (s *Settings) Mode() pattern.Mode {
	if s.PureTextSteps {
		return pattern.ModeLiteral
	}
	return pattern.ModePattern
}

// IndexOptions returns the index options these settings describe
func (s *Settings) IndexOptions() index.Options {
	aliases := make([]pattern.Alias, 0, len(s.CustomParameters))
	for _, p := range s.CustomParameters {
		aliases = append(aliases, pattern.Alias{Parameter: p.Parameter, Value: p.Value})
	}
	return index.Options{
		Mode:       s.Mode(),
		Aliases:    aliases,
		Invariants: s.StepsInvariants,
		Parser: parser.Options{
			KeywordPart: s.GherkinDefinitionPart,
			Delimiters:  s.StepRegExSymbol,
		},
	}
}

// QueryOptions returns the query options these settings describe
func (s *Settings) QueryOptions() query.Options {
	return query.Options{
		StrictValidation: s.StrictGherkinValidation,
		StrictCompletion: s.StrictGherkinCompletion,
		SmartSnippets:    s.SmartSnippets,
	}
}

// Find returns the first settings file present under root, or "" if none
func Find(root string) string {
	for _, name := range settingsFiles {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// IsSettingsFile reports whether path names one of the files Find looks for
func IsSettingsFile(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, name := range settingsFiles {
		if rel == name {
			return true
		}
	}
	return false
}

// Load reads a settings file over the defaults. The format follows the
// extension. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		cfg, err = FromLSP(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// FromLSP decodes JSON settings over a copy of base. It accepts the
// settings object itself, an object with a "cucumberautocomplete" member,
// or flat "cucumberautocomplete.<key>" members as found in editor settings
// files.
func FromLSP(raw json.RawMessage, base *Settings) (*Settings, error) {
	cfg := Defaults()
	if base != nil {
		copied := *base
		copied.Steps = slices.Clone(base.Steps)
		copied.CustomParameters = slices.Clone(base.CustomParameters)
		cfg = &copied
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cfg, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	if section, ok := members[Section]; ok {
		raw = section
	} else {
		flat := make(map[string]json.RawMessage)
		for key, value := range members {
			if name, ok := strings.CutPrefix(key, Section+"."); ok {
				flat[name] = value
			}
		}
		if len(flat) > 0 {
			var err error
			if raw, err = json.Marshal(flat); err != nil {
				return nil, err
			}
		}
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return cfg, nil
}
