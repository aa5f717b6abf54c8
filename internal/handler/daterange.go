package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const dateLayout = "2006-01-02"

// ParseUTCOffset turns "+05:30" / "-04:00" / "Z" into a fixed zone.
func ParseUTCOffset(offset string) (*time.Location, error) {
	if offset == "" || offset == "Z" || offset == "+00:00" {
		return time.UTC, nil
	}
	sign := 1
	switch offset[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("invalid utc offset %q", offset)
	}
	parts := strings.SplitN(offset[1:], ":", 2)
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return nil, fmt.Errorf("invalid utc offset %q", offset)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours > 14 {
		return nil, fmt.Errorf("invalid utc offset %q", offset)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes >= 60 {
		return nil, fmt.Errorf("invalid utc offset %q", offset)
	}
	return time.FixedZone("UTC"+offset, sign*(hours*3600+minutes*60)), nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// dayRange is a half-open [Start, End) interval of whole calendar days in a
// business's local offset. A zero bound means unbounded.
type dayRange struct {
	Start time.Time
	End   time.Time
}

func (d dayRange) startParam() pgtype.Timestamptz {
	if d.Start.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: d.Start.UTC(), Valid: true}
}

func (d dayRange) endParam() pgtype.Timestamptz {
	if d.End.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: d.End.UTC(), Valid: true}
}

// parseDayRange reads optional start_date / end_date (YYYY-MM-DD, inclusive)
// and interprets them as local midnights in loc.
func parseDayRange(r *http.Request, loc *time.Location) (dayRange, error) {
	var dr dayRange
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return dayRange{}, fmt.Errorf("invalid start_date format")
		}
		dr.Start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return dayRange{}, fmt.Errorf("invalid end_date format")
		}
		// Make end_date exclusive by adding 1 day
		dr.End = t.AddDate(0, 0, 1)
	}
	if !dr.Start.IsZero() && !dr.End.IsZero() && !dr.Start.Before(dr.End) {
		return dayRange{}, fmt.Errorf("start_date must not be after end_date")
	}
	return dr, nil
}

// parseReportRange is parseDayRange with a default of the last 30 days
// (today included) for missing bounds.
func parseReportRange(r *http.Request, loc *time.Location, now time.Time) (dayRange, error) {
	dr, err := parseDayRange(r, loc)
	if err != nil {
		return dayRange{}, err
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if dr.End.IsZero() {
		dr.End = today.AddDate(0, 0, 1)
	}
	if dr.Start.IsZero() {
		dr.Start = dr.End.AddDate(0, 0, -30)
	}
	if !dr.Start.Before(dr.End) {
		return dayRange{}, fmt.Errorf("start_date must not be after end_date")
	}
	return dr, nil
}
