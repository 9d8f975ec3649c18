package generators

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"
)

// ContentTypeHandler applies body generators to a document of one content
// type. Keys are path expressions rooted at "$".
type ContentTypeHandler interface {
	ApplyGenerators(body []byte, gens map[string]Generator, ctx *Context) ([]byte, error)
}

// HandlerTable maps media types to handlers
type HandlerTable map[string]ContentTypeHandler

// DefaultHandlers returns a table with the JSON and XML handlers
func DefaultHandlers() HandlerTable {
	return HandlerTable{
		"application/json": JSONHandler{},
		"application/xml":  XMLHandler{},
		"text/xml":         XMLHandler{},
	}
}

// Lookup finds the handler for contentType. Parameters are ignored and
// structured syntax suffixes (+json, +xml) fall back to the base type.
func (t HandlerTable) Lookup(contentType string) (ContentTypeHandler, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if h, ok := t[mediaType]; ok {
		return h, true
	}
	switch {
	case strings.HasSuffix(mediaType, "+json"):
		h, ok := t["application/json"]
		return h, ok
	case strings.HasSuffix(mediaType, "+xml"):
		h, ok := t["application/xml"]
		return h, ok
	}
	return nil, false
}

// ApplyBodyGenerators runs gens over body using the handler registered for
// contentType. Bodies without a handler can only be replaced as a whole by a
// generator at the root key. Failing generators leave their value untouched
// and are reported in the returned error alongside the rewritten body.
func ApplyBodyGenerators(body []byte, contentType string, gens map[string]Generator, ctx *Context, handlers HandlerTable) ([]byte, error) {
	if len(gens) == 0 {
		return body, nil
	}
	if h, ok := handlers.Lookup(contentType); ok {
		return h.ApplyGenerators(body, gens, ctx)
	}

	for _, key := range []string{"", "$"} {
		if gen, ok := gens[key]; ok {
			v, err := gen.Generate(ctx, string(body))
			if err != nil {
				return body, err
			}
			return []byte(fmt.Sprint(v)), nil
		}
	}
	return body, nil
}

func sortedGeneratorKeys(gens map[string]Generator) []string {
	keys := make([]string, 0, len(gens))
	for k := range gens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// JSONHandler applies generators to JSON documents
type JSONHandler struct{}

func (JSONHandler) ApplyGenerators(body []byte, gens map[string]Generator, ctx *Context) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return body, fmt.Errorf("body is not valid JSON: %w", err)
	}

	var errs []error
	for _, key := range sortedGeneratorKeys(gens) {
		gen := gens[key]
		expr, err := parseKey(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		doc = applyJSON(doc, expr, func(current any) any {
			v, err := gen.Generate(ctx, current)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return current
			}
			return v
		})
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return body, err
	}
	return bytes.TrimSuffix(out.Bytes(), []byte("\n")), errors.Join(errs...)
}

func parseKey(key string) ([]jp.Frag, error) {
	if key == "" {
		key = "$"
	}
	if !strings.HasPrefix(key, "$") {
		key = "$." + key
	}
	expr, err := jp.ParseString(key)
	if err != nil {
		return nil, err
	}
	return []jp.Frag(expr), nil
}

// applyJSON replaces every node addressed by frags with fn(node)
func applyJSON(node any, frags []jp.Frag, fn func(any) any) any {
	if len(frags) == 0 {
		return fn(node)
	}
	rest := frags[1:]

	switch f := frags[0].(type) {
	case jp.Root, jp.Bracket:
		return applyJSON(node, rest, fn)
	case jp.Child:
		if m, ok := node.(map[string]any); ok {
			if v, ok := m[string(f)]; ok {
				m[string(f)] = applyJSON(v, rest, fn)
			}
		}
	case jp.Nth:
		if list, ok := node.([]any); ok {
			i := int(f)
			if i < 0 {
				i += len(list)
			}
			if i >= 0 && i < len(list) {
				list[i] = applyJSON(list[i], rest, fn)
			}
		}
	case jp.Wildcard:
		switch n := node.(type) {
		case map[string]any:
			for k, v := range n {
				n[k] = applyJSON(v, rest, fn)
			}
		case []any:
			for i, v := range n {
				n[i] = applyJSON(v, rest, fn)
			}
		}
	case jp.Union:
		for _, key := range f {
			switch k := key.(type) {
			case string:
				node = applyJSON(node, append([]jp.Frag{jp.Child(k)}, rest...), fn)
			case int64:
				node = applyJSON(node, append([]jp.Frag{jp.Nth(int(k))}, rest...), fn)
			}
		}
	case jp.Slice:
		if list, ok := node.([]any); ok {
			for i := range list {
				if inSlice(f, i) {
					list[i] = applyJSON(list[i], rest, fn)
				}
			}
		}
	}
	return node
}

func inSlice(s jp.Slice, i int) bool {
	start, end := 0, -1
	if len(s) > 0 {
		start = s[0]
	}
	if len(s) > 1 {
		end = s[1]
	}
	return i >= start && (end < 0 || i < end)
}

// XMLHandler applies generators to XML documents. Keys address elements by
// tag name starting at the root element; a final ['@name'] addresses an
// attribute and ['#text'] the element text.
type XMLHandler struct{}

func (XMLHandler) ApplyGenerators(body []byte, gens map[string]Generator, ctx *Context) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return body, fmt.Errorf("body is not valid XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return body, fmt.Errorf("XML body has no root element")
	}

	var errs []error
	for _, key := range sortedGeneratorKeys(gens) {
		frags, err := parseKey(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := applyXML(root, frags, gens[key], ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return body, err
	}
	return out, errors.Join(errs...)
}

func applyXML(root *etree.Element, frags []jp.Frag, gen Generator, ctx *Context) error {
	var elems []*etree.Element
	started := false

	for i, frag := range frags {
		switch f := frag.(type) {
		case jp.Root, jp.Bracket:
			continue
		case jp.Child:
			name := string(f)
			if strings.HasPrefix(name, "@") || name == "#text" {
				if i != len(frags)-1 {
					return fmt.Errorf("%s must be the last path element", name)
				}
				return setXML(elems, name, gen, ctx)
			}
			if !started {
				started = true
				if root.Tag == name || root.FullTag() == name {
					elems = []*etree.Element{root}
				}
				continue
			}
			elems = childElements(elems, func(e *etree.Element) bool {
				return e.Tag == name || e.FullTag() == name
			})
		case jp.Wildcard:
			if !started {
				started = true
				elems = []*etree.Element{root}
				continue
			}
			elems = childElements(elems, func(*etree.Element) bool { return true })
		case jp.Nth:
			idx := int(f)
			if idx < 0 || idx >= len(elems) {
				elems = nil
			} else {
				elems = []*etree.Element{elems[idx]}
			}
		default:
			return fmt.Errorf("unsupported path element %v", frag)
		}
	}
	return setXML(elems, "#text", gen, ctx)
}

func childElements(elems []*etree.Element, keep func(*etree.Element) bool) []*etree.Element {
	var out []*etree.Element
	for _, e := range elems {
		for _, c := range e.ChildElements() {
			if keep(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

func setXML(elems []*etree.Element, target string, gen Generator, ctx *Context) error {
	for _, e := range elems {
		if strings.HasPrefix(target, "@") {
			name := strings.TrimPrefix(target, "@")
			attr := e.SelectAttr(name)
			if attr == nil {
				continue
			}
			v, err := gen.Generate(ctx, attr.Value)
			if err != nil {
				return err
			}
			e.CreateAttr(name, xmlString(v))
			continue
		}
		v, err := gen.Generate(ctx, e.Text())
		if err != nil {
			return err
		}
		e.SetText(xmlString(v))
	}
	return nil
}

func xmlString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
