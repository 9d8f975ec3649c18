// Package expressions implements the relative date and time expressions used
// by the date, time and datetime generators.
//
// A date expression is an optional base followed by any number of
// adjustments:
//
//	today + 1 day
//	tomorrow - 2 weeks
//	+1 monday
//	now + 3 months
//
// A time expression has the same shape with time bases and units:
//
//	midnight + 2 hours
//	3 o'clock pm - 15 minutes
//	next 9 am
//
// A datetime expression joins the two with '@', for example
// "tomorrow @ noon + 30 minutes". The time half is evaluated against the date
// produced by the date half.
//
// Both grammars share one lexer and one recursive-descent parser skeleton.
// Parse failures are reported as *ParseError values carrying the character
// offset of the offending token; evaluation never panics and has no side
// effects.
package expressions
