package locweather

import (
	"encoding/json"
	"errors"

	"github.com/neexbeast/locweather/internal/location"
	"github.com/neexbeast/locweather/internal/weather"
)

// PermissionDeniedMessage is published in State.Error when location access is refused.
const PermissionDeniedMessage = "Location permission denied"

const genericFailureMessage = "Unable to load weather"

// Failure taxonomy. State.Err wraps exactly one of these.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrGeocode             = errors.New("reverse geocode failed")
	ErrWeatherProvider     = errors.New("weather provider failed")
)

// Pipeline outcomes, used as metric labels.
const (
	OutcomeOK                  = "ok"
	OutcomePermissionDenied    = "permission_denied"
	OutcomeLocationUnavailable = "location_unavailable"
	OutcomeWeatherFailed       = "weather_failed"
	OutcomePanic               = "panic"
)

// State is the value every consumer reads. Location and Weather are
// replaced wholesale and never mutated after publication.
type State struct {
	Location *location.Snapshot `json:"location"`
	Weather  *weather.Snapshot  `json:"weather"`
	Loading  bool               `json:"loading"`
	Error    string             `json:"error"`

	// Err is the failure behind Error, for errors.Is checks.
	Err error `json:"-"`
}

func errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return PermissionDeniedMessage
	case err.Error() == "":
		return genericFailureMessage
	default:
		return err.Error()
	}
}

// MarshalJSON writes an empty Error as null.
func (s State) MarshalJSON() ([]byte, error) {
	type wire struct {
		Location *location.Snapshot `json:"location"`
		Weather  *weather.Snapshot  `json:"weather"`
		Loading  bool               `json:"loading"`
		Error    *string            `json:"error"`
	}
	w := wire{Location: s.Location, Weather: s.Weather, Loading: s.Loading}
	if s.Error != "" {
		w.Error = &s.Error
	}
	return json.Marshal(w)
}
