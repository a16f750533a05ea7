// Package calendar: включительные диапазоны календарных дат.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidRange = errors.New("invalid date range")

// Range: [Start, End] включительно; однодневный диапазон имеет Start == End.
type Range struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

func NewRange(start, end civil.Date) (Range, error) {
	if !start.IsValid() || !end.IsValid() {
		return Range{}, ErrInvalidRange
	}
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, end, start)
	}
	return Range{Start: start, End: end}, nil
}

func Single(d civil.Date) Range { return Range{Start: d, End: d} }

// Days: длина диапазона в днях, включая оба конца.
func (r Range) Days() int { return r.End.DaysSince(r.Start) + 1 }

func (r Range) Contains(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) Overlaps(o Range) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

func (r Range) Shift(days int) Range {
	return Range{Start: r.Start.AddDays(days), End: r.End.AddDays(days)}
}

func (r Range) Dates() []civil.Date {
	out := make([]civil.Date, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string { return r.Start.String() + ".." + r.End.String() }

// Window: [today, today+days) в виде включительного диапазона.
func Window(today civil.Date, days int) Range {
	if days < 1 {
		days = 1
	}
	return Range{Start: today, End: today.AddDays(days - 1)}
}

// Today: текущая дата в указанном часовом поясе.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

// ToTime переводит дату в полночь UTC (так дата хранится в колонке date).
func ToTime(d civil.Date) time.Time { return d.In(time.UTC) }

func FromTime(t time.Time) civil.Date { return civil.DateOf(t.UTC()) }

func Parse(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return d, nil
}
