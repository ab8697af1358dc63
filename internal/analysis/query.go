package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/robert-malhotra/floodsync-api/internal/model"
)

// Accepted request date formats.
var dateFormats = []string{
	model.DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseDate parses a request date in YYYY-MM-DD or RFC 3339 form.
// Returns time in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, lastErr)
}

// Query is a validated flood map request.
type Query struct {
	Country string
	Start   time.Time
	End     time.Time
	Mode    Mode
}

// NewQuery validates req and fills in defaults. Missing dates default to the
// windowDays days ending at now.
func NewQuery(req model.FloodMapRequest, now time.Time, windowDays int) (Query, error) {
	country := req.CountryName
	if strings.TrimSpace(country) == "" {
		return Query{}, model.NewValidationError("country_name", "Country name is required")
	}

	mode, err := ParseMode(req.LayerType)
	if err != nil {
		return Query{}, err
	}

	end := now.UTC()
	if req.EndDate != "" {
		if end, err = ParseDate(req.EndDate); err != nil {
			return Query{}, model.NewValidationError("end_date", "Invalid end_date %q: expected YYYY-MM-DD", req.EndDate)
		}
	}

	start := now.UTC().AddDate(0, 0, -windowDays)
	if req.StartDate != "" {
		if start, err = ParseDate(req.StartDate); err != nil {
			return Query{}, model.NewValidationError("start_date", "Invalid start_date %q: expected YYYY-MM-DD", req.StartDate)
		}
	}

	if start.After(end) {
		return Query{}, model.NewValidationError("start_date", "start_date %s is after end_date %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	}

	return Query{
		Country: country,
		Start:   start,
		End:     end,
		Mode:    mode,
	}, nil
}

// StartDate returns the window start as YYYY-MM-DD.
func (q Query) StartDate() string {
	return q.Start.Format(model.DateLayout)
}

// EndDate returns the window end as YYYY-MM-DD.
func (q Query) EndDate() string {
	return q.End.Format(model.DateLayout)
}
