package strategy

import (
	"github.com/kbukum/traverse/config"
	"github.com/kbukum/traverse/traversal"
)

// FromConfig builds the strategy set described by cfg. Without a profile
// the set is Standard(). Disabled strategies are removed last.
func FromConfig(cfg config.StrategiesConfig, reg *Registry, loader ProfileLoader) (*traversal.Strategies, error) {
	if reg == nil {
		reg = DefaultRegistry
	}
	set := Standard()
	if cfg.Profile != "" {
		if loader == nil {
			loader = NewFileProfileLoader(cfg.Dirs...)
		}
		names, err := ResolveProfile(cfg.Profile, loader)
		if err != nil {
			return nil, err
		}
		if set, err = reg.Build(names...); err != nil {
			return nil, err
		}
	}
	if len(cfg.Disable) > 0 {
		set = set.Without(cfg.Disable...)
	}
	if _, err := set.Order(); err != nil {
		return nil, err
	}
	return set, nil
}
