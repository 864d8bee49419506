package feature

import (
	"strings"
)

// Calendar is a feature computed from the local date and hour of a row.
type Calendar struct {
	Name string `json:"name"`
}

var (
	Year      = NewCalendar("year")
	Month     = NewCalendar("month")
	Day       = NewCalendar("day")
	Hour      = NewCalendar("hour")
	DayOfWeek = NewCalendar("dayofweek")
	IsWeekend = NewCalendar("is_weekend")
	IsHoliday = NewCalendar("is_holiday")
)

func init() {
	register(Year, Month, Day, Hour, DayOfWeek, IsWeekend, IsHoliday)
}

func NewCalendar(name string) *Calendar {
	return &Calendar{name}
}

func (c Calendar) String() string {
	return c.Name
}

func (c Calendar) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	}
	return "", false
}

func (c Calendar) Type() FeatureType {
	return FeatureTypeCalendar
}

func (c Calendar) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = c.Name
	return res
}
