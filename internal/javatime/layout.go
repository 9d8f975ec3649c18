// Package javatime converts the date/time patterns used in pact files
// (java.time DateTimeFormatter syntax such as "yyyy-MM-dd'T'HH:mm:ss") into
// Go reference layouts.
package javatime

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Default patterns used when a rule or generator does not name one
const (
	DefaultDate     = "yyyy-MM-dd"
	DefaultTime     = "HH:mm:ss"
	DefaultDateTime = "yyyy-MM-dd'T'HH:mm:ssXXX"
)

// pattern letter -> run length -> layout. A run longer than the longest
// entry uses the longest entry.
var letters = map[rune][]string{
	'y': {"2006", "06", "2006", "2006"},
	'u': {"2006", "06", "2006", "2006"},
	'M': {"1", "01", "Jan", "January"},
	'L': {"1", "01", "Jan", "January"},
	'd': {"2", "02"},
	'D': {"002", "002", "002"},
	'E': {"Mon", "Mon", "Mon", "Monday"},
	'a': {"PM"},
	'H': {"15", "15"},
	'k': {"15", "15"},
	'h': {"3", "03"},
	'K': {"3", "03"},
	'm': {"4", "04"},
	's': {"5", "05"},
	'z': {"MST", "MST", "MST", "MST"},
	'Z': {"-0700", "-0700", "-0700", "-0700", "-07:00"},
	'X': {"Z07", "Z0700", "Z07:00"},
	'x': {"-07", "-0700", "-07:00"},
	'V': {"MST", "MST"},
}

var cache sync.Map

// segment is either a Go layout or literal text that a layout cannot hold
type segment struct {
	text    string
	literal bool
}

type compiled struct {
	segments []segment
	// set when the pattern has literal segments
	re     *regexp.Regexp
	joined string
}

// separator joins the layout segments of a pattern for parsing. It is not
// part of any layout element.
const separator = "|"

func compile(pattern string) (*compiled, error) {
	if v, ok := cache.Load(pattern); ok {
		return v.(*compiled), nil
	}
	segments, err := convert(pattern)
	if err != nil {
		return nil, err
	}

	c := &compiled{segments: segments}
	if hasLiteral(segments) {
		var expr strings.Builder
		var layouts []string
		expr.WriteString("^")
		for _, seg := range segments {
			if seg.literal {
				expr.WriteString(regexp.QuoteMeta(seg.text))
				continue
			}
			expr.WriteString("(.*?)")
			layouts = append(layouts, seg.text)
		}
		expr.WriteString("$")
		c.re = regexp.MustCompile(expr.String())
		c.joined = strings.Join(layouts, separator)
	}
	cache.Store(pattern, c)
	return c, nil
}

func hasLiteral(segments []segment) bool {
	for _, seg := range segments {
		if seg.literal {
			return true
		}
	}
	return false
}

// Layout converts a java.time pattern into a Go layout. Patterns whose
// literal text contains Go layout elements (digits, "Mon", "Jan", "PM") have
// no single layout and return an error; Format and Parse still accept them.
func Layout(pattern string) (string, error) {
	c, err := compile(pattern)
	if err != nil {
		return "", err
	}
	if c.re != nil {
		return "", fmt.Errorf("pattern %q has literal text that a Go layout cannot hold", pattern)
	}
	if len(c.segments) == 0 {
		return "", nil
	}
	return c.segments[0].text, nil
}

func convert(pattern string) ([]segment, error) {
	var segments []segment
	var layout, lit strings.Builder
	runes := []rune(pattern)

	flushLayout := func() {
		if layout.Len() > 0 {
			segments = append(segments, segment{text: layout.String()})
			layout.Reset()
		}
	}
	flushLiteral := func() {
		if lit.Len() == 0 {
			return
		}
		text := lit.String()
		lit.Reset()
		if safeLiteral(text) {
			layout.WriteString(text)
			return
		}
		flushLayout()
		segments = append(segments, segment{text: text, literal: true})
	}

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			// '' is a literal quote, otherwise copy until the closing quote
			if i+1 < len(runes) && runes[i+1] == '\'' {
				lit.WriteRune('\'')
				i += 2
				continue
			}
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\'' {
					if j+1 < len(runes) && runes[j+1] == '\'' {
						lit.WriteRune('\'')
						j += 2
						continue
					}
					break
				}
				lit.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated quote in pattern %q", pattern)
			}
			i = j + 1
			continue
		}

		if !isLetter(r) {
			lit.WriteRune(r)
			i++
			continue
		}

		flushLiteral()
		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}

		if r == 'S' || r == 'n' {
			// fraction of second; Go needs the separator to precede it
			s := layout.String()
			if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, ",") {
				layout.WriteRune('.')
			}
			layout.WriteString(strings.Repeat("0", n))
			i += n
			continue
		}

		forms, ok := letters[r]
		if !ok {
			return nil, fmt.Errorf("unsupported pattern letter %q in %q", r, pattern)
		}
		idx := n - 1
		if idx >= len(forms) {
			idx = len(forms) - 1
		}
		layout.WriteString(forms[idx])
		i += n
	}

	flushLiteral()
	flushLayout()
	return segments, nil
}

// safeLiteral reports whether text can be copied into a Go layout as is.
// Every layout element starts with a digit or one of J, M, P, p, _,
// apart from Z07 which no pattern letter can complete.
func safeLiteral(text string) bool {
	return !strings.ContainsAny(text, "0123456789JMPp_")
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Format formats t with a java.time pattern
func Format(t time.Time, pattern string) (string, error) {
	c, err := compile(pattern)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, seg := range c.segments {
		if seg.literal {
			b.WriteString(seg.text)
			continue
		}
		b.WriteString(t.Format(seg.text))
	}
	return b.String(), nil
}

// Parse parses value with a java.time pattern
func Parse(pattern, value string) (time.Time, error) {
	c, err := compile(pattern)
	if err != nil {
		return time.Time{}, err
	}
	if c.re == nil {
		layout := ""
		if len(c.segments) > 0 {
			layout = c.segments[0].text
		}
		return time.Parse(layout, value)
	}

	m := c.re.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("%q does not match pattern %q", value, pattern)
	}
	return time.Parse(c.joined, strings.Join(m[1:], separator))
}
