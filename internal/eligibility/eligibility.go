package eligibility

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/AnuragDani/gateway-decider/internal/logger"
	"github.com/AnuragDani/gateway-decider/internal/models"
)

// Source resolves named configuration values (gateway lists, thresholds,
// JSON-encoded config structs). A failed lookup reports false.
type Source interface {
	FindByName(ctx context.Context, name string) (string, bool)
}

// FeatureGate answers per-merchant boolean feature flags
type FeatureGate interface {
	IsFeatureEnabled(ctx context.Context, flag, merchantID string) bool
}

// Status reports how a named lookup resolved
type Status int

const (
	Found Status = iota
	Absent
	Malformed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Absent:
		return "absent"
	default:
		return "malformed"
	}
}

// Lookup is the typed view of a Source and FeatureGate used by the decider
type Lookup struct {
	source Source
	gate   FeatureGate
	log    *logger.Logger
}

func NewLookup(source Source, gate FeatureGate, log *logger.Logger) *Lookup {
	if log == nil {
		log = logger.Discard()
	}
	return &Lookup{source: source, gate: gate, log: log}
}

// GatewayList reads a JSON array of gateway names
func (l *Lookup) GatewayList(ctx context.Context, name string) ([]models.Gateway, Status) {
	var names []string
	status := l.Decode(ctx, name, &names)
	if status != Found {
		return nil, status
	}
	gws := make([]models.Gateway, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			gws = append(gws, models.Gateway(n))
		}
	}
	return gws, Found
}

// Decode unmarshals the named JSON value into dest
func (l *Lookup) Decode(ctx context.Context, name string, dest interface{}) Status {
	raw, ok := l.source.FindByName(ctx, name)
	if !ok || strings.TrimSpace(raw) == "" {
		return Absent
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		l.log.Warn("config_decode_failed", "name", name, "error", err)
		return Malformed
	}
	return Found
}

// Enabled reports whether flag is on for the merchant
func (l *Lookup) Enabled(ctx context.Context, flag, merchantID string) bool {
	if l.gate == nil {
		return false
	}
	return l.gate.IsFeatureEnabled(ctx, flag, merchantID)
}
