package expressions

import (
	"time"
)

// DateBase is the starting point of a date expression
type DateBase int

const (
	DateNow DateBase = iota
	DateToday
	DateYesterday
	DateTomorrow
)

// DateUnit is the unit of a date adjustment
type DateUnit int

const (
	Day DateUnit = iota
	Week
	Fortnight
	Month
	Year
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
	January
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

var dateBases = map[string]DateBase{
	"now":       DateNow,
	"today":     DateToday,
	"yesterday": DateYesterday,
	"tomorrow":  DateTomorrow,
}

var dateUnits = map[string]DateUnit{
	"day": Day, "days": Day,
	"week": Week, "weeks": Week,
	"fortnight": Fortnight, "fortnights": Fortnight,
	"month": Month, "months": Month,
	"year": Year, "years": Year,
	"monday": Monday, "mon": Monday,
	"tuesday": Tuesday, "tue": Tuesday,
	"wednesday": Wednesday, "wed": Wednesday,
	"thursday": Thursday, "thu": Thursday,
	"friday": Friday, "fri": Friday,
	"saturday": Saturday, "sat": Saturday,
	"sunday": Sunday, "sun": Sunday,
	"january": January, "jan": January,
	"february": February, "feb": February,
	"march": March, "mar": March,
	"april": April, "apr": April,
	"may": May,
	"june": June, "jun": June,
	"july": July, "jul": July,
	"august": August, "aug": August,
	"september": September, "sep": September,
	"october": October, "oct": October,
	"november": November, "nov": November,
	"december": December, "dec": December,
}

// DateExpression is a parsed date expression
type DateExpression struct {
	Base        DateBase
	Adjustments []Adjustment[DateUnit]
}

// ParseDateExpression parses a date expression. An empty expression is valid
// and evaluates to its base.
func ParseDateExpression(expression string) (*DateExpression, error) {
	expr, perr := parseDate(newParser(expression))
	if perr != nil {
		return nil, perr
	}
	return expr, nil
}

func parseDate(p *parser) (*DateExpression, *ParseError) {
	expr := &DateExpression{Base: DateNow}

	if tok := p.peek(); tok.kind == tokIdent {
		base, ok := dateBases[tok.text]
		if !ok {
			return nil, p.errorAt(tok, "Invalid date base '%s', expected one of now, today, yesterday, tomorrow", tok.text)
		}
		expr.Base = base
		p.advance()
	}

	adjustments, perr := parseAdjustments(p, dateUnits, "date unit")
	if perr != nil {
		return nil, perr
	}
	expr.Adjustments = adjustments

	if perr := p.expectEOF(); perr != nil {
		return nil, perr
	}
	return expr, nil
}

// Apply evaluates the expression against base
func (e *DateExpression) Apply(base time.Time) time.Time {
	result := base
	switch e.Base {
	case DateYesterday:
		result = result.AddDate(0, 0, -1)
	case DateTomorrow:
		result = result.AddDate(0, 0, 1)
	}

	for _, adj := range e.Adjustments {
		result = applyDateAdjustment(result, adj)
	}
	return result
}

// ExecuteDateExpression parses expression and applies it to base
func ExecuteDateExpression(base time.Time, expression string) (time.Time, error) {
	expr, err := ParseDateExpression(expression)
	if err != nil {
		return base, err
	}
	return expr.Apply(base), nil
}

func applyDateAdjustment(t time.Time, adj Adjustment[DateUnit]) time.Time {
	n := adj.Value * adj.Operation.sign()

	switch {
	case adj.Unit == Day:
		return t.AddDate(0, 0, n)
	case adj.Unit == Week:
		return t.AddDate(0, 0, 7*n)
	case adj.Unit == Fortnight:
		return t.AddDate(0, 0, 14*n)
	case adj.Unit == Month:
		return addMonths(t, n)
	case adj.Unit == Year:
		return addMonths(t, 12*n)
	case adj.Unit >= Monday && adj.Unit <= Sunday:
		if adj.Value == 0 {
			return t
		}
		target := time.Weekday((int(adj.Unit-Monday) + 1) % 7)
		dir := adj.Operation.sign()
		// after the first seek every further occurrence is exactly a week away
		return seekWeekday(t, target, dir).AddDate(0, 0, 7*dir*(adj.Value-1))
	default:
		if adj.Value == 0 {
			return t
		}
		target := time.Month(int(adj.Unit-January) + 1)
		dir := adj.Operation.sign()
		return addMonths(seekMonth(t, target, dir), 12*dir*(adj.Value-1))
	}
}

// addMonths moves t by n calendar months, clamping the day to the length of
// the target month (Jan 31 + 1 month = Feb 28/29)
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// seekWeekday steps one day at a time in direction dir until the weekday
// matches. The first step is always taken so the current day never matches.
func seekWeekday(t time.Time, target time.Weekday, dir int) time.Time {
	t = t.AddDate(0, 0, dir)
	for t.Weekday() != target {
		t = t.AddDate(0, 0, dir)
	}
	return t
}

// seekMonth steps one month at a time in direction dir until the month
// matches, always taking at least one step. The day of month is clamped
// against the original day rather than accumulated.
func seekMonth(t time.Time, target time.Month, dir int) time.Time {
	steps := 1
	for addMonths(t, steps*dir).Month() != target {
		steps++
	}
	return addMonths(t, steps*dir)
}
