// Package datetime parses the loosely formatted dates and durations stored on
// games and statistics, and renders the edit stamps written on questions.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// EditStampLayout is the layout of Question.LastEditDate.
const EditStampLayout = "1/2/2006 3:04:05 PM"

// DefaultZone is the zone edit stamps are written in when none is configured.
const DefaultZone = "Asia/Yekaterinburg"

var dateLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"January 2, 2006 3:04:05 PM",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses s the way an en-US client writes dates. Values without a
// zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("datetime: empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	t, err := cast.StringToDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("datetime: parse date %q: %w", s, err)
	}
	return t, nil
}

// [-][d.]hh:mm[:ss[.fffffff]]
var timeSpanRe = regexp.MustCompile(`^(-)?(?:(\d+)\.)?(\d{1,2}):(\d{1,2})(?::(\d{1,2})(?:\.(\d{1,7}))?)?$`)

var daysRe = regexp.MustCompile(`^(-)?(\d+)$`)

// ParseDuration parses a time span such as "01:30:00", "2.04:00:00" or
// "00:45". A bare integer is a number of days. Go duration strings ("1h30m")
// are accepted as well.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("datetime: empty duration")
	}

	if m := daysRe.FindStringSubmatch(s); m != nil {
		days, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
		}
		d := time.Duration(days) * 24 * time.Hour
		if m[1] != "" {
			d = -d
		}
		return d, nil
	}

	if m := timeSpanRe.FindStringSubmatch(s); m != nil {
		return timeSpan(s, m)
	}

	d, err := cast.ToDurationE(s)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
	}
	return d, nil
}

func timeSpan(s string, m []string) (time.Duration, error) {
	num := func(v string, max int64) (int64, error) {
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		if max > 0 && n > max {
			return 0, fmt.Errorf("component %s out of range", v)
		}
		return n, nil
	}

	days, err := num(m[2], 0)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
	}
	hours, err := num(m[3], 23)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
	}
	minutes, err := num(m[4], 59)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
	}
	seconds, err := num(m[5], 59)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
	}

	var frac time.Duration
	if m[6] != "" {
		// seven digits of ticks, 100ns each
		ticks, err := strconv.ParseInt((m[6] + "000000")[:7], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("datetime: parse duration %q: %w", s, err)
		}
		frac = time.Duration(ticks) * 100 * time.Nanosecond
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac
	if m[1] != "" {
		d = -d
	}
	return d, nil
}

// LoadZone resolves a zone name, falling back to DefaultZone when name is empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("datetime: load zone %q: %w", name, err)
	}
	return loc, nil
}

// FormatEditStamp renders t in loc using EditStampLayout.
func FormatEditStamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(EditStampLayout)
}
