package location

import (
	"context"

	"github.com/nerrad567/hud-informer/internal/template"
)

// Home is the resolved site location used for the web-search user location
// hint and the prompt context.
type Home struct {
	Name      string
	Latitude  float64
	Longitude float64
	Timezone  string
}

// StateSource supplies the zone entity. Satisfied by the supervisor client.
type StateSource interface {
	State(ctx context.Context, id string) (template.EntityState, bool, error)
}

// Logger is the minimal logging surface discovery needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Discover resolves the home location from a zone entity, falling back to
// the supplied defaults for any attribute the entity does not carry. A
// missing or unreachable entity degrades to the fallback wholesale; it
// never fails a run.
//
// Parameters:
//   - ctx: Cancels the state lookup
//   - source: Zone entity supplier; nil skips the lookup entirely
//   - zoneID: Zone entity id, typically zone.home; empty skips the lookup
//   - fallback: Site defaults from configuration
//   - logger: Destination for degradation notes; nil for none
//
// Returns:
//   - Home: Resolved location, never zero-valued when fallback is populated
func Discover(ctx context.Context, source StateSource, zoneID string, fallback Home, logger Logger) Home {
	if logger == nil {
		logger = noopLogger{}
	}
	if source == nil || zoneID == "" {
		return fallback
	}

	entity, ok, err := source.State(ctx, zoneID)
	if err != nil {
		logger.Warn("zone lookup failed, using configured site", "zone", zoneID, "error", err)
		return fallback
	}
	if !ok {
		logger.Warn("zone entity not found, using configured site", "zone", zoneID)
		return fallback
	}

	home := fallback
	if name, ok := entity.Attributes["friendly_name"].(string); ok && name != "" {
		home.Name = name
	}
	if lat, ok := attrFloat(entity.Attributes, "latitude"); ok {
		home.Latitude = lat
	}
	if lon, ok := attrFloat(entity.Attributes, "longitude"); ok {
		home.Longitude = lon
	}
	if tz, ok := entity.Attributes["time_zone"].(string); ok && tz != "" {
		home.Timezone = tz
	}

	logger.Debug("resolved home location", "zone", zoneID, "name", home.Name)
	return home
}

// attrFloat reads a numeric attribute. JSON decoding produces float64, but
// hand-built snapshots in tests may carry int.
func attrFloat(attrs map[string]any, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
