package lark

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
	"github.com/shopspring/decimal"
)

// Column codes of the daily statistics report.
const (
	codeDate          = "51201"
	codeExpectedHours = "51302"
	codeWorkingHours  = "51303"
	codeOvertime      = "51307"
	codeLeave         = "51401"
	codeLeaveType     = "51402"
	codeTimeIn        = "51502-1-1"
	codeTimeOut       = "51502-1-2"
	codeInResult      = "51503-1-1"
	codeOutResult     = "51503-1-2"

	featureStatus    = "StatusMsg"
	featureShiftTime = "ShiftTime"
)

type Feature struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Field struct {
	Code     string    `json:"code"`
	Title    string    `json:"title"`
	Value    string    `json:"value"`
	Features []Feature `json:"features"`
}

// Day is one user's row of the daily statistics report.
type Day struct {
	Name   string  `json:"name"`
	UserID string  `json:"user_id"`
	Datas  []Field `json:"datas"`
}

// Record implements stats.RawDay.
func (d Day) Record() (stats.DailyRecord, error) {
	var (
		rec   stats.DailyRecord
		leave string
	)

	for _, f := range d.Datas {
		value := strings.TrimSpace(f.Value)
		if value == "-" {
			value = ""
		}

		var err error
		switch f.Code {
		case codeDate:
			rec.Date, err = parseDate(value)
		case codeWorkingHours:
			rec.WorkingHours, err = parseHours(value)
		case codeExpectedHours:
			rec.ExpectedHours, err = parseHours(value)
		case codeOvertime:
			rec.OvertimeHours, err = parseHours(value)
		case codeLeave:
			leave = value
		case codeLeaveType:
			rec.LeaveType = value
		case codeTimeIn:
			rec.TimeIn, err = parseClock(value)
		case codeTimeOut:
			rec.TimeOut, err = parseClock(value)
		case codeInResult:
			if value != "" {
				rec.InResult, rec.ShiftIn, err = parsePunch(f.Features)
			}
		case codeOutResult:
			if value != "" {
				rec.OutResult, rec.ShiftOut, err = parsePunch(f.Features)
			}
		}
		if err != nil {
			return stats.DailyRecord{}, fmt.Errorf("%w: %s %q: %w", stats.ErrMalformedRecord, f.Code, f.Value, err)
		}
	}

	if rec.Date.IsZero() {
		return stats.DailyRecord{}, stats.ErrMissingDate
	}

	if leave != "" {
		hours, err := parseLeave(leave, rec.ExpectedHours)
		if err != nil {
			return stats.DailyRecord{}, fmt.Errorf("%w: %s %q: %w", stats.ErrMalformedRecord, codeLeave, leave, err)
		}
		rec.LeaveHours = hours
	}

	rec.TimeOut = wrapAfter(rec.TimeIn, rec.TimeOut)
	rec.ShiftOut = wrapAfter(rec.ShiftIn, rec.ShiftOut)

	return rec, nil
}

func parseDate(value string) (time.Time, error) {
	switch len(value) {
	case 0:
		return time.Time{}, nil
	case len("2006-01-02"):
		return time.Parse("2006-01-02", value)
	default:
		return time.Parse("20060102", value)
	}
}

// parseHours reads the leading number of values like "8.5 hours".
func parseHours(value string) (float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, nil
	}
	d, err := decimal.NewFromString(fields[0])
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// parseLeave converts "N days" into hours through the expected hours of the
// day. Any other unit is taken as hours.
func parseLeave(value string, expectedHours float64) (float64, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, nil
	}
	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return 0, err
	}
	if len(fields) > 1 && strings.HasPrefix(strings.ToLower(fields[1]), "day") {
		amount = amount.Mul(decimal.NewFromFloat(expectedHours))
	}
	return amount.InexactFloat64(), nil
}

func parseClock(value string) (*time.Duration, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return nil, err
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return &d, nil
}

func parsePunch(features []Feature) (stats.PunchResult, *time.Duration, error) {
	var (
		result stats.PunchResult
		shift  *time.Duration
	)
	for _, f := range features {
		switch f.Key {
		case featureStatus:
			result = stats.PunchResult(f.Value)
		case featureShiftTime:
			if f.Value == "-" {
				continue
			}
			var err error
			if shift, err = parseClock(f.Value); err != nil {
				return "", nil, err
			}
		}
	}
	return result, shift, nil
}

// wrapAfter moves end to the next day when it does not come after start.
func wrapAfter(start, end *time.Duration) *time.Duration {
	if start == nil || end == nil || *end > *start {
		return end
	}
	wrapped := *end + 24*time.Hour
	return &wrapped
}
