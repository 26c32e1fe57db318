package weather

import (
	"time"
)

const (
	// DateLayout and ClockLayout are the formats used for the date and time
	// columns of the history table.
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// Reading is one weather observation for a city.
// Readings are immutable once persisted.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"` // local wall clock
	City        string    `json:"city"`
	Condition   string    `json:"condition"`
	Temperature float64   `json:"temperatureC"`
}

// Date returns the calendar day of the reading.
func (r Reading) Date() string {
	return r.Timestamp.Format(DateLayout)
}

// Clock returns the wall-clock time of the reading.
func (r Reading) Clock() string {
	return r.Timestamp.Format(ClockLayout)
}

// Observation is what a provider returns for a city, before it is stamped
// and persisted as a Reading.
type Observation struct {
	ProviderName string
	Condition    string
	TemperatureC float64
}

// Status is the last outcome of a fetch, as shown to the user.
// Provider names the source that produced the outcome. UpdatedAt is nil until
// the first fetch completes.
type Status struct {
	City      string     `json:"city,omitempty"`
	Provider  string     `json:"provider,omitempty"`
	Reading   *Reading   `json:"reading,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Message renders the status the way the status label displays it.
func (s Status) Message() string {
	switch {
	case s.Error != "":
		return "Error retrieving weather data"
	case s.Reading != nil:
		return formatReading(*s.Reading)
	default:
		return ""
	}
}
