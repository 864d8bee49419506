// Package calendar computes the calendar features of an hour: local hour of day, day of week,
// weekend and regional holiday flags.
package calendar

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

var ErrNoLocation = errors.New("no calendar location")

// USFederal is the US federal holiday set, matching the regional calendar the demand model was
// trained against.
var USFederal = []*cal.Holiday{
	us.NewYear,
	us.MlkDay,
	us.PresidentsDay,
	us.MemorialDay,
	us.Juneteenth,
	us.IndependenceDay,
	us.LaborDay,
	us.ColumbusDay,
	us.VeteransDay,
	us.ThanksgivingDay,
	us.ChristmasDay,
}

type date struct {
	year  int
	month time.Month
	day   int
}

func dateOf(t time.Time) date {
	y, m, d := t.Date()
	return date{y, m, d}
}

// Calendar resolves calendar features for absolute instants in a fixed location. Both the actual
// and the observed date of a holiday count as a holiday.
type Calendar struct {
	loc      *time.Location
	holidays []*cal.Holiday

	mu    sync.RWMutex
	dates map[date]string
	years map[int]bool
}

// New creates a calendar for the given location with holidays precomputed for the inclusive
// year range and the year on either side. Other years are computed once on first lookup.
func New(loc *time.Location, holidays []*cal.Holiday, startYear, endYear int) (*Calendar, error) {
	if loc == nil {
		return nil, ErrNoLocation
	}
	c := &Calendar{
		loc:      loc,
		holidays: holidays,
		dates:    make(map[date]string),
		years:    make(map[int]bool),
	}
	for year := startYear - 1; year <= endYear+1; year++ {
		c.addYear(year, c.yearHolidays(year))
	}
	return c, nil
}

// addYear merges the holidays of a year. Callers other than New hold mu.
func (c *Calendar) addYear(year int, holidays map[date]string) {
	for d, name := range holidays {
		c.dates[d] = name
	}
	c.years[year] = true
}

func (c *Calendar) ensureYear(year int) {
	c.mu.RLock()
	done := c.years[year]
	c.mu.RUnlock()
	if done {
		return
	}

	holidays := c.yearHolidays(year)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.years[year] {
		c.addYear(year, holidays)
	}
}

func (c *Calendar) yearHolidays(year int) map[date]string {
	res := make(map[date]string)
	for _, hol := range c.holidays {
		actual, observed := hol.Calc(year)
		name := strings.ReplaceAll(hol.Name, " ", "_")
		if !actual.IsZero() {
			res[dateOf(actual)] = name
		}
		if !observed.IsZero() {
			if _, exists := res[dateOf(observed)]; !exists {
				res[dateOf(observed)] = name + "_observed"
			}
		}
	}
	return res
}

// Location returns the location calendar features are evaluated in
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Local converts an instant to the calendar's location
func (c *Calendar) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// Holiday returns the holiday name for the local date of t, if any
func (c *Calendar) Holiday(t time.Time) (string, bool) {
	d := dateOf(c.Local(t))
	// a holiday observed on Dec 31 belongs to the next year's New Year
	c.ensureYear(d.year)
	c.ensureYear(d.year + 1)

	c.mu.RLock()
	defer c.mu.RUnlock()
	name, exists := c.dates[d]
	return name, exists
}

// IsHoliday reports whether the local date of t is a holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	_, ok := c.Holiday(t)
	return ok
}

// IsWeekend reports whether the local date of t is a Saturday or Sunday
func (c *Calendar) IsWeekend(t time.Time) bool {
	switch c.Local(t).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// DayOfWeek returns the local day of week with Monday as 0 and Sunday as 6.
func (c *Calendar) DayOfWeek(t time.Time) int {
	return (int(c.Local(t).Weekday()) + 6) % 7
}

// Hour returns the local hour of day
func (c *Calendar) Hour(t time.Time) int {
	return c.Local(t).Hour()
}
