package expressions

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ExecuteDateTimeExpression evaluates a combined datetime expression.
//
// The expression is split on the first '@' that is not escaped with a
// backslash. The left half is a date expression and the right half a time
// expression evaluated against the date produced by the left half (or
// against base when the left half is empty). Without an '@' the expression is
// tried as a date expression and then as a time expression.
func ExecuteDateTimeExpression(base time.Time, expression string) (time.Time, error) {
	at := splitIndex(expression)
	if at < 0 {
		result, dateErr := ExecuteDateExpression(base, expression)
		if dateErr == nil {
			return result, nil
		}
		if result, err := ExecuteTimeExpression(base, expression); err == nil {
			return result, nil
		}
		return base, dateErr
	}

	datePart := expression[:at]
	timePart := expression[at+1:]

	var errs ParseErrors
	date := base
	var dateExpr *DateExpression
	if strings.TrimSpace(datePart) != "" {
		expr, perr := parseDate(newParser(datePart))
		if perr != nil {
			errs = append(errs, perr)
		} else {
			dateExpr = expr
		}
	}

	timeExpr, perr := parseTime(newParser(timePart))
	if perr != nil {
		// parser positions count runes, at counts bytes
		offset := utf8.RuneCountInString(expression[:at]) + 1
		errs = append(errs, &ParseError{Message: perr.Message, Index: perr.Index + offset})
	}

	switch len(errs) {
	case 0:
	case 1:
		return base, errs[0]
	default:
		return base, errs
	}

	if dateExpr != nil {
		date = dateExpr.Apply(base)
	}
	return timeExpr.Apply(date), nil
}

// splitIndex returns the byte offset of the first unescaped '@', or -1
func splitIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}
	return -1
}
