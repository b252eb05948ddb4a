package scan

import (
	_ "embed"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/probelab/redscan/internal/types"
)

//go:embed tiers.yaml
var tiersYAML []byte

// Tier is a preset scan configuration: which plugins to generate for,
// which strategies a downstream executor should apply, and how many
// test cases to generate per plugin.
type Tier struct {
	Name        string   `yaml:"-"`
	Description string   `yaml:"description"`
	Purpose     string   `yaml:"purpose"`
	NumTests    int      `yaml:"num_tests"`
	Plugins     []string `yaml:"plugins"`
	Strategies  []string `yaml:"strategies"`
}

type tierFile struct {
	Tiers map[string]Tier `yaml:"tiers"`
}

var tiers = mustLoadTiers()

func mustLoadTiers() map[string]Tier {
	var f tierFile
	if err := yaml.Unmarshal(tiersYAML, &f); err != nil {
		panic("scan: invalid embedded tier templates: " + err.Error())
	}
	for name, t := range f.Tiers {
		t.Name = name
		f.Tiers[name] = t
	}
	return f.Tiers
}

// LoadTier returns the named tier template.
func LoadTier(name string) (Tier, error) {
	t, ok := tiers[name]
	if !ok {
		return Tier{}, types.NewError(types.CONFIG_VALIDATION_FAILED, "unknown scan tier: "+name)
	}
	return t, nil
}

// TierNames returns all tier names, sorted.
func TierNames() []string {
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
