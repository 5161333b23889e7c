package eligibility

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/AnuragDani/gateway-decider/internal/config"
)

// Static serves eligibility data loaded from the decider YAML file. It can
// be swapped atomically on config reload.
type Static struct {
	mu      sync.RWMutex
	configs map[string]string
	flags   map[string]map[string]bool
}

func NewStatic(cfg config.EligibilityConfig) *Static {
	s := &Static{}
	s.Replace(cfg)
	return s
}

// Replace swaps in a new configuration
func (s *Static) Replace(cfg config.EligibilityConfig) {
	configs := make(map[string]string, len(cfg.Configs)+len(cfg.GatewayLists))
	for name, gws := range cfg.GatewayLists {
		data, err := json.Marshal(gws)
		if err != nil {
			continue
		}
		configs[name] = string(data)
	}
	// raw configs win over lists of the same name
	for name, raw := range cfg.Configs {
		configs[name] = raw
	}

	flags := make(map[string]map[string]bool, len(cfg.FeatureFlags))
	for flag, merchants := range cfg.FeatureFlags {
		set := make(map[string]bool, len(merchants))
		for _, m := range merchants {
			set[m] = true
		}
		flags[flag] = set
	}

	s.mu.Lock()
	s.configs = configs
	s.flags = flags
	s.mu.Unlock()
}

func (s *Static) FindByName(_ context.Context, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.configs[name]
	return v, ok
}

func (s *Static) IsFeatureEnabled(_ context.Context, flag, merchantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.flags[flag]
	return set["*"] || set[merchantID]
}
