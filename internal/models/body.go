package models

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"

	"github.com/tidwall/gjson"
)

// BodyState distinguishes an absent body from an empty or null one
type BodyState int

const (
	BodyMissing BodyState = iota
	BodyEmpty
	BodyNull
	BodyPresent
)

// Body is the payload of a request or response
type Body struct {
	State       BodyState
	Content     []byte
	ContentType string
}

// NewBody returns a present body, or an empty one when content is empty
func NewBody(content []byte, contentType string) Body {
	if len(content) == 0 {
		return Body{State: BodyEmpty, ContentType: contentType}
	}
	return Body{State: BodyPresent, Content: content, ContentType: contentType}
}

// IsPresent reports whether the body has content
func (b Body) IsPresent() bool {
	return b.State == BodyPresent
}

// String returns the content as text
func (b Body) String() string {
	return string(b.Content)
}

// JSONValue decodes a JSON body, keeping numbers as json.Number
func (b Body) JSONValue() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b.Content))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// MediaType strips parameters from a Content-Type value
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// IsJSON reports whether contentType denotes a JSON document
func IsJSON(contentType string) bool {
	mt := MediaType(contentType)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// IsXML reports whether contentType denotes an XML document
func IsXML(contentType string) bool {
	mt := MediaType(contentType)
	return mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml")
}

// DetectContentType guesses the content type of an untyped body
func DetectContentType(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	switch {
	case len(trimmed) == 0:
		return ""
	case gjson.ValidBytes(trimmed) && (trimmed[0] == '{' || trimmed[0] == '['):
		return "application/json"
	case trimmed[0] == '<' && bytes.Contains(trimmed, []byte(">")):
		if bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html")) {
			return "text/html"
		}
		return "application/xml"
	}
	return "text/plain"
}

func headerValue(headers map[string][]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return strings.Join(v, ", "), true
		}
	}
	return "", false
}
