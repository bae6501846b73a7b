package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the immutable configuration of one collection run, read once
// from a JSON config file before any collection starts.
type Profile struct {
	ContextName  string   `mapstructure:"context_name"`
	Namespaces   []string `mapstructure:"context_namespace"`
	OutputDir    string   `mapstructure:"output_directory_path"`
	CurrentLogs  bool     `mapstructure:"current_logs"`
	PreviousLogs bool     `mapstructure:"previous_logs"`

	// Services optionally narrows where a service's pods are looked for and
	// which label selector identifies them, keyed by service name.
	Services map[string]ServiceHint `mapstructure:"services"`
}

// ServiceHint overrides resolution defaults for one service diagnostics block.
type ServiceHint struct {
	Namespaces    []string `mapstructure:"namespaces"`
	LabelSelector string   `mapstructure:"label_selector"`
}

// Load reads and validates the profile from path.
func Load(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	profile := &Profile{}
	if err := v.Unmarshal(profile); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if profile.ContextName == "" {
		return nil, errors.New("config is missing context_name")
	}
	if len(profile.Namespaces) == 0 {
		return nil, errors.New("config is missing context_namespace")
	}
	profile.Namespaces = dedupe(profile.Namespaces)

	if profile.OutputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get working directory")
		}
		profile.OutputDir = cwd
	}

	return profile, nil
}

// NamespacesFor returns the namespaces a service's pods are resolved in,
// falling back to the run's namespaces when no hint is configured.
func (p *Profile) NamespacesFor(service string) []string {
	if hint, ok := p.Services[service]; ok && len(hint.Namespaces) > 0 {
		return hint.Namespaces
	}
	return p.Namespaces
}

// SelectorFor returns the label selector identifying a service's pods,
// falling back to the built-in default when no hint is configured.
func (p *Profile) SelectorFor(service string, defaultSelector string) string {
	if hint, ok := p.Services[service]; ok && hint.LabelSelector != "" {
		return hint.LabelSelector
	}
	return defaultSelector
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
