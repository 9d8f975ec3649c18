package expressions

import (
	"time"
)

// TimeBaseKind identifies the starting point of a time expression
type TimeBaseKind int

const (
	TimeNow TimeBaseKind = iota
	Midnight
	Noon
	AM
	PM
	Next
)

// TimeBase is the starting point of a time expression. Hour is the 24 hour
// clock hour for AM, PM and Next bases.
type TimeBase struct {
	Kind TimeBaseKind
	Hour int
}

// TimeUnit is the unit of a time adjustment
type TimeUnit int

const (
	Hour TimeUnit = iota
	Minute
	Second
	Millisecond
)

var timeUnits = map[string]TimeUnit{
	"hour": Hour, "hours": Hour,
	"minute": Minute, "minutes": Minute,
	"second": Second, "seconds": Second,
	"millisecond": Millisecond, "milliseconds": Millisecond,
}

// TimeExpression is a parsed time expression
type TimeExpression struct {
	Base        TimeBase
	Adjustments []Adjustment[TimeUnit]
}

// ParseTimeExpression parses a time expression. An empty expression is valid
// and evaluates to its base.
func ParseTimeExpression(expression string) (*TimeExpression, error) {
	expr, perr := parseTime(newParser(expression))
	if perr != nil {
		return nil, perr
	}
	return expr, nil
}

func parseTime(p *parser) (*TimeExpression, *ParseError) {
	expr := &TimeExpression{Base: TimeBase{Kind: TimeNow}}

	tok := p.peek()
	switch tok.kind {
	case tokIdent:
		switch tok.text {
		case "now":
			p.advance()
		case "midnight":
			expr.Base = TimeBase{Kind: Midnight}
			p.advance()
		case "noon":
			expr.Base = TimeBase{Kind: Noon}
			p.advance()
		case "next":
			p.advance()
			hour, perr := parseClockHour(p)
			if perr != nil {
				return nil, perr
			}
			expr.Base = TimeBase{Kind: Next, Hour: hour}
		default:
			return nil, p.errorAt(tok, "Invalid time base '%s', expected one of now, midnight, noon, next or an hour", tok.text)
		}
	case tokInt:
		hour, perr := parseClockHour(p)
		if perr != nil {
			return nil, perr
		}
		kind := AM
		if hour >= 12 {
			kind = PM
		}
		expr.Base = TimeBase{Kind: kind, Hour: hour}
	}

	adjustments, perr := parseAdjustments(p, timeUnits, "time unit")
	if perr != nil {
		return nil, perr
	}
	expr.Adjustments = adjustments

	if perr := p.expectEOF(); perr != nil {
		return nil, perr
	}
	return expr, nil
}

// parseClockHour parses "INT [o'clock] (am|pm)" and returns the hour on a
// 24 hour clock
func parseClockHour(p *parser) (int, *ParseError) {
	hourTok := p.peek()
	hour, perr := p.expectInt()
	if perr != nil {
		return 0, perr
	}
	if hour < 1 || hour > 12 {
		return 0, p.errorAt(hourTok, "Hour must be between 1 and 12, got %d", hour)
	}

	if tok := p.peek(); tok.kind == tokIdent && tok.text == "o'clock" {
		p.advance()
	}

	tok := p.peek()
	if tok.kind != tokIdent || (tok.text != "am" && tok.text != "pm") {
		return 0, p.unexpected(tok, "am or pm")
	}
	p.advance()

	hour %= 12
	if tok.text == "pm" {
		hour += 12
	}
	return hour, nil
}

// Apply evaluates the expression against base
func (e *TimeExpression) Apply(base time.Time) time.Time {
	result := base
	switch e.Base.Kind {
	case Midnight:
		result = atHour(base, 0)
	case Noon:
		result = atHour(base, 12)
	case AM, PM:
		result = atHour(base, e.Base.Hour)
	case Next:
		result = atHour(base, e.Base.Hour)
		if !result.After(base) {
			result = result.AddDate(0, 0, 1)
		}
	}

	for _, adj := range e.Adjustments {
		n := time.Duration(adj.Value * adj.Operation.sign())
		switch adj.Unit {
		case Hour:
			result = result.Add(n * time.Hour)
		case Minute:
			result = result.Add(n * time.Minute)
		case Second:
			result = result.Add(n * time.Second)
		case Millisecond:
			result = result.Add(n * time.Millisecond)
		}
	}
	return result
}

// ExecuteTimeExpression parses expression and applies it to base
func ExecuteTimeExpression(base time.Time, expression string) (time.Time, error) {
	expr, err := ParseTimeExpression(expression)
	if err != nil {
		return base, err
	}
	return expr.Apply(base), nil
}

func atHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}
