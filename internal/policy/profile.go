package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the YAML shape of a capability profile. Absent fields keep
// their defaults; present fields replace the default list wholesale.
type Profile struct {
	AllowedModules  []string `yaml:"allowed_modules"`
	ModuleRoots     []string `yaml:"module_roots"`
	AllowedBuiltins []string `yaml:"allowed_builtins"`
	DeniedGlobals   []string `yaml:"denied_globals"`
	DeniedFields    []string `yaml:"denied_fields"`
	MaxTimeout      string   `yaml:"max_timeout"`
	MaxOutput       int      `yaml:"max_output"`
}

// LoadProfile reads a capability profile from a YAML file and overlays it
// on the default policy.
func LoadProfile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var prof Profile
	if err := yaml.Unmarshal(data, &prof); err != nil {
		return Policy{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	p := Default()
	if prof.AllowedModules != nil {
		p.AllowedModules = prof.AllowedModules
	}
	if prof.ModuleRoots != nil {
		p.ModuleRoots = prof.ModuleRoots
	}
	if prof.AllowedBuiltins != nil {
		p.AllowedBuiltins = prof.AllowedBuiltins
	}
	if prof.DeniedGlobals != nil {
		p.DeniedGlobals = prof.DeniedGlobals
	}
	if prof.DeniedFields != nil {
		p.DeniedFields = prof.DeniedFields
	}
	if prof.MaxTimeout != "" {
		d, err := time.ParseDuration(prof.MaxTimeout)
		if err != nil {
			return Policy{}, fmt.Errorf("parsing profile %s: max_timeout: %w", path, err)
		}
		p.MaxTimeout = d
	}
	if prof.MaxOutput > 0 {
		p.MaxOutput = prof.MaxOutput
	}

	return p, nil
}
