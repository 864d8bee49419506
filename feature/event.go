package feature

import (
	"strings"
)

// Event feature describing the city events active during an hour
type Event struct {
	Name string `json:"name"`
}

var (
	EventCount    = NewEvent("event_count")
	HasEvent      = NewEvent("has_event")
	LogEventCount = NewEvent("log_event_count")
	HeavyEvent    = NewEvent("heavy_event")
)

func init() {
	register(EventCount, HasEvent, LogEventCount, HeavyEvent)
}

// NewEvent creates a new event instance given a name
func NewEvent(name string) *Event {
	return &Event{name}
}

// String returns the string representation of the event feature
func (e Event) String() string {
	return e.Name
}

// Get returns the value of an arbitrary label annd returns the value along with whether
// the label exists
func (e Event) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return e.Name, true
	}
	return "", false
}

// Type returns the type of this feature
func (e Event) Type() FeatureType {
	return FeatureTypeEvent
}

// Decode converts the feature into a map of label values
func (e Event) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = e.Name
	return res
}
