package rss

import (
	"strings"
	"time"
)

// Now is the clock used for the unparseable-date fallback.
var Now = time.Now

// DateLayouts are tried in order; the first full match wins.
var DateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
	time.RFC3339Nano,
}

// rfc822Zones are the named zones RFC 822 defines, in hours east of UTC.
// time.Parse only knows an abbreviation's offset when it names the local
// zone, so these are resolved here.
var rfc822Zones = map[string]int{
	"UT": 0, "UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
}

var zonelessLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
}

// ParseDate converts a feed date string into a timestamp. A nil or
// unparseable value yields the current time, so such articles sort as newest.
func ParseDate(value *string) time.Time {
	if value == nil {
		return Now()
	}
	s := strings.TrimSpace(*value)
	if t, ok := parseNamedZone(s); ok {
		return t
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return Now()
}

func parseNamedZone(s string) (time.Time, bool) {
	i := strings.LastIndexByte(s, ' ')
	if i < 0 {
		return time.Time{}, false
	}
	zone := strings.ToUpper(s[i+1:])
	hours, ok := rfc822Zones[zone]
	if !ok {
		return time.Time{}, false
	}
	loc := time.FixedZone(zone, hours*3600)
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s[:i], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
