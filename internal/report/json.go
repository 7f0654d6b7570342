package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sweeney/wx-receiver/internal/logic"
)

// ReadingJSON is the JSON form of a reading shared by MQTT, the status page
// and the websocket stream. Floats are rounded to one decimal place.
type ReadingJSON struct {
	Timestamp    string   `json:"timestamp"`
	SensorID     string   `json:"sensor_id"`
	TemperatureC float64  `json:"temperature_c"`
	DewpointC    float64  `json:"dewpoint_c"`
	Humidity     uint8    `json:"humidity"`
	WindChillC   float64  `json:"wind_chill_c"`
	Wind         WindJSON `json:"wind"`
	Rain         RainJSON `json:"rain"`
}

// WindJSON holds wind speed and direction.
type WindJSON struct {
	SpeedKmh     float64 `json:"speed_kmh"`
	DirectionDeg float64 `json:"direction_deg"`
	Direction    string  `json:"direction"`
}

// RainJSON holds the raw tip counts and their rainfall in millimetres.
type RainJSON struct {
	Total    uint16  `json:"total"`
	LastHour uint16  `json:"last_hour"`
	LastDay  uint16  `json:"last_day"`
	TotalMM  float64 `json:"total_mm"`
	HourMM   float64 `json:"last_hour_mm"`
	DayMM    float64 `json:"last_day_mm"`
}

// NewReadingJSON converts r.
func NewReadingJSON(r logic.Reading) ReadingJSON {
	return ReadingJSON{
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		SensorID:     fmt.Sprintf("%02x", r.SensorID),
		TemperatureC: round1(r.TemperatureC),
		DewpointC:    round1(r.DewpointC),
		Humidity:     r.Humidity,
		WindChillC:   round1(r.WindChillC),
		Wind: WindJSON{
			SpeedKmh:     round1(r.WindSpeedKmh),
			DirectionDeg: r.DirectionDegrees(),
			Direction:    strings.TrimSpace(r.Compass()),
		},
		Rain: RainJSON{
			Total:    r.RainTotal,
			LastHour: r.Rain1h,
			LastDay:  r.Rain24h,
			TotalMM:  round1(logic.RainMM(r.RainTotal)),
			HourMM:   round1(logic.RainMM(r.Rain1h)),
			DayMM:    round1(logic.RainMM(r.Rain24h)),
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
