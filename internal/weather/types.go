package weather

import (
	"encoding/json"
	"math"
)

// Condition is the normalized weather condition shown on the weather card.
type Condition string

const (
	ConditionSunny        Condition = "sunny"
	ConditionCloudy       Condition = "cloudy"
	ConditionRainy        Condition = "rainy"
	ConditionSnowy        Condition = "snowy"
	ConditionThunderstorm Condition = "thunderstorm"
	ConditionFoggy        Condition = "foggy"
	ConditionWindy        Condition = "windy"
)

// DefaultLabel is used when no city is known for the coordinates.
const DefaultLabel = "Current location"

var codeConditions = map[int]Condition{
	0: ConditionSunny,
	1: ConditionCloudy, 2: ConditionCloudy, 3: ConditionCloudy,
	45: ConditionFoggy, 48: ConditionFoggy,
	51: ConditionRainy, 53: ConditionRainy, 55: ConditionRainy,
	56: ConditionRainy, 57: ConditionRainy,
	61: ConditionRainy, 63: ConditionRainy, 65: ConditionRainy,
	66: ConditionRainy, 67: ConditionRainy,
	80: ConditionRainy, 81: ConditionRainy, 82: ConditionRainy,
	71: ConditionSnowy, 73: ConditionSnowy, 75: ConditionSnowy,
	77: ConditionSnowy, 85: ConditionSnowy, 86: ConditionSnowy,
	95: ConditionThunderstorm, 96: ConditionThunderstorm, 99: ConditionThunderstorm,
}

// ConditionFromCode maps a WMO weather code to a Condition.
// Unlisted codes map to cloudy.
func ConditionFromCode(code int) Condition {
	if c, ok := codeConditions[code]; ok {
		return c
	}
	return ConditionCloudy
}

// Reading is a decoded provider response before normalization.
type Reading struct {
	Temperature float64
	WeatherCode int
	WindSpeed   float64
	Raw         json.RawMessage
}

// Snapshot is the normalized current weather.
type Snapshot struct {
	Temperature   int             `json:"temperature"`
	Condition     Condition       `json:"condition"`
	LocationLabel string          `json:"location_label"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Snapshot normalizes the reading. An empty label falls back to DefaultLabel.
func (r *Reading) Snapshot(label string) *Snapshot {
	if label == "" {
		label = DefaultLabel
	}
	return &Snapshot{
		Temperature:   roundHalfUp(r.Temperature),
		Condition:     ConditionFromCode(r.WeatherCode),
		LocationLabel: label,
		Raw:           r.Raw,
	}
}
