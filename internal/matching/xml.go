package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/models"
)

// XML nodes are addressed like $.root.child.0['@attr'] and
// $.root.child.0['#text'], mirroring the JSON walker.

func matchXMLBody(expected, actual models.Body, rules *matchers.MatchingRuleCategory, allowUnexpectedKeys bool) []Mismatch {
	ed := etree.NewDocument()
	if err := ed.ReadFromBytes(expected.Content); err != nil || ed.Root() == nil {
		return []Mismatch{{Kind: BodyMismatch, Path: "$", Message: fmt.Sprintf("Failed to parse the expected body: %v", err)}}
	}
	ad := etree.NewDocument()
	if err := ad.ReadFromBytes(actual.Content); err != nil || ad.Root() == nil {
		return []Mismatch{{Kind: BodyMismatch, Path: "$", Actual: actual.String(), Message: fmt.Sprintf("Failed to parse the actual body: %v", err)}}
	}

	x := &xmlMatcher{bodyMatcher{rules: rules, allowUnexpectedKeys: allowUnexpectedKeys}}
	er, ar := ed.Root(), ad.Root()
	if er.Tag != ar.Tag {
		return []Mismatch{BodyMismatches(er.Tag, ar.Tag,
			fmt.Sprintf("Expected the root element '%s' but received '%s'", er.Tag, ar.Tag), []string{"$"})}
	}
	return x.compareElement([]string{"$", er.Tag}, er, ar)
}

type xmlMatcher struct {
	bodyMatcher
}

func (x *xmlMatcher) compareElement(path []string, expected, actual *etree.Element) []Mismatch {
	var result []Mismatch

	for _, attr := range expected.Attr {
		p := child(path, "@"+attr.Key)
		got := actual.SelectAttr(attr.Key)
		if got == nil {
			result = append(result, BodyMismatches(attr.Value, nil, fmt.Sprintf("Expected an attribute '%s' but it was missing", attr.Key), p))
			continue
		}
		result = append(result, x.compareLeaf(p, attr.Value, got.Value)...)
	}
	if !x.allowUnexpectedKeys {
		for _, attr := range actual.Attr {
			if expected.SelectAttr(attr.Key) == nil && attr.Space != "xmlns" && attr.Key != "xmlns" {
				result = append(result, BodyMismatches(nil, attr.Value,
					fmt.Sprintf("Unexpected attribute '%s' with value '%s'", attr.Key, attr.Value), child(path, "@"+attr.Key)))
			}
		}
	}

	textPath := child(path, "#text")
	et := strings.TrimSpace(expected.Text())
	at := strings.TrimSpace(actual.Text())
	if et != "" || x.rules.MatcherDefined(textPath) {
		result = append(result, x.compareLeaf(textPath, et, at)...)
	}

	expectedChildren := groupByTag(expected.ChildElements())
	actualChildren := groupByTag(actual.ChildElements())
	for _, tag := range expectedChildren.order {
		result = append(result, x.compareSiblings(child(path, tag), expectedChildren.byTag[tag], actualChildren.byTag[tag])...)
	}
	if !x.allowUnexpectedKeys {
		for _, tag := range actualChildren.order {
			if _, ok := expectedChildren.byTag[tag]; !ok {
				result = append(result, BodyMismatches(nil, tag,
					fmt.Sprintf("Unexpected child element '%s'", tag), child(path, tag)))
			}
		}
	}
	return result
}

func (x *xmlMatcher) compareSiblings(path []string, expected, actual []*etree.Element) []Mismatch {
	group := x.containerRules(path)
	if group == nil || !group.Has(matchers.IsTypeMatcher) {
		var result []Mismatch
		if len(expected) != len(actual) {
			result = append(result, BodyMismatches(len(expected), len(actual),
				fmt.Sprintf("Expected %d <%s> element(s) but received %d", len(expected), lastOf(path), len(actual)), path))
		}
		for i := 0; i < len(expected) && i < len(actual); i++ {
			result = append(result, x.compareElement(child(path, strconv.Itoa(i)), expected[i], actual[i])...)
		}
		return result
	}

	result := sizeBounds(path, len(actual), group)
	for i, el := range actual {
		ev := expected[0]
		if i < len(expected) {
			ev = expected[i]
		}
		result = append(result, x.compareElement(child(path, strconv.Itoa(i)), ev, el)...)
	}
	return result
}

func sizeBounds(path []string, n int, group *matchers.MatchingRuleGroup) []Mismatch {
	var result []Mismatch
	check := func(min, max int) {
		if min >= 0 && n < min {
			result = append(result, BodyMismatches(min, n, fmt.Sprintf("Expected at least %d element(s) but received %d", min, n), path))
		}
		if max >= 0 && n > max {
			result = append(result, BodyMismatches(max, n, fmt.Sprintf("Expected at most %d element(s) but received %d", max, n), path))
		}
	}
	for _, rule := range group.Rules {
		switch r := rule.(type) {
		case matchers.MinTypeMatcher:
			check(r.Min, -1)
		case matchers.MaxTypeMatcher:
			check(-1, r.Max)
		case matchers.MinMaxTypeMatcher:
			check(r.Min, r.Max)
		}
	}
	return result
}

type tagGroups struct {
	order []string
	byTag map[string][]*etree.Element
}

func groupByTag(elements []*etree.Element) tagGroups {
	g := tagGroups{byTag: map[string][]*etree.Element{}}
	for _, el := range elements {
		if _, ok := g.byTag[el.Tag]; !ok {
			g.order = append(g.order, el.Tag)
		}
		g.byTag[el.Tag] = append(g.byTag[el.Tag], el)
	}
	return g
}
