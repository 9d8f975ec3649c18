package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// V4 interaction type handled by this package
const interactionTypeHTTP = "Synchronous/HTTP"

// DecodePact parses a pact file. Interactions of other kinds (messages) are
// skipped and reported as warnings. registry resolves generator types; nil
// uses the built-in set.
func DecodePact(data []byte, registry *generators.Registry) (*Pact, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse pact file: %w", err)
	}
	if registry == nil {
		registry = generators.DefaultRegistry()
	}

	pact := &Pact{
		Consumer: nameOf(raw["consumer"]),
		Provider: nameOf(raw["provider"]),
		Metadata: map[string]any{},
	}
	if md, ok := raw["metadata"].(map[string]any); ok {
		pact.Metadata = md
	}
	pact.Version = pactspec.FromMetadata(pact.Metadata)

	// A second pass keeps the encoded matching rules so that their key order
	// survives. Type errors are reported by the first pass.
	var encoded encodedPact
	_ = json.Unmarshal(data, &encoded)

	var warnings []string
	list, _ := raw["interactions"].([]any)
	for idx, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, warnings, fmt.Errorf("interaction %d must be an object", idx)
		}
		if typ, ok := m["type"].(string); ok && typ != interactionTypeHTTP {
			warnings = append(warnings, fmt.Sprintf("interaction %d (%s): %s interactions are not supported, skipped", idx, m["description"], typ))
			continue
		}
		var rules encodedInteraction
		if idx < len(encoded.Interactions) {
			rules = encoded.Interactions[idx]
		}
		interaction, err := decodeInteraction(m, rules, registry)
		if err != nil {
			return nil, warnings, fmt.Errorf("interaction %d (%v): %w", idx, m["description"], err)
		}
		pact.Interactions = append(pact.Interactions, interaction)
	}

	return pact, warnings, nil
}

type encodedRules struct {
	MatchingRules json.RawMessage `json:"matchingRules"`
}

type encodedInteraction struct {
	Request  encodedRules `json:"request"`
	Response encodedRules `json:"response"`
}

type encodedPact struct {
	Interactions []encodedInteraction `json:"interactions"`
}

func nameOf(v any) string {
	if m, ok := v.(map[string]any); ok {
		s, _ := m["name"].(string)
		return s
	}
	return ""
}

func decodeInteraction(m map[string]any, encoded encodedInteraction, registry *generators.Registry) (*Interaction, error) {
	i := &Interaction{}
	i.Description, _ = m["description"].(string)
	i.Key, _ = m["key"].(string)
	i.Pending, _ = m["pending"].(bool)

	if name, ok := m["providerState"].(string); ok && name != "" {
		i.ProviderStates = append(i.ProviderStates, ProviderState{Name: name})
	}
	if states, ok := m["providerStates"].([]any); ok {
		for _, s := range states {
			sm, ok := s.(map[string]any)
			if !ok {
				continue
			}
			state := ProviderState{}
			state.Name, _ = sm["name"].(string)
			state.Params, _ = sm["params"].(map[string]any)
			i.ProviderStates = append(i.ProviderStates, state)
		}
	}

	reqMap, ok := m["request"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing request")
	}
	req, err := decodeRequest(reqMap, encoded.Request.MatchingRules, registry)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	i.Request = req

	respMap, ok := m["response"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing response")
	}
	resp, err := decodeResponse(respMap, encoded.Response.MatchingRules, registry)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}
	i.Response = resp

	return i, nil
}

func decodeRequest(m map[string]any, rawRules json.RawMessage, registry *generators.Registry) (*Request, error) {
	method, _ := m["method"].(string)
	if method == "" {
		method = "GET"
	}
	path, _ := m["path"].(string)
	if path == "" {
		path = "/"
	}
	req := NewRequest(method, path)

	query, err := decodeQuery(m["query"])
	if err != nil {
		return nil, err
	}
	req.Query = query
	req.Headers = decodeHeaders(m["headers"])

	body, err := decodeBody(m, req.Headers)
	if err != nil {
		return nil, err
	}
	req.Body = body

	if req.MatchingRules, req.Generators, err = decodeRulesAndGenerators(m, rawRules, registry); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeResponse(m map[string]any, rawRules json.RawMessage, registry *generators.Registry) (*Response, error) {
	status := 200
	if s, ok := m["status"]; ok {
		n, err := strconv.Atoi(fmt.Sprint(s))
		if err != nil {
			return nil, fmt.Errorf("invalid status %v", s)
		}
		status = n
	}
	resp := NewResponse(status)
	resp.Headers = decodeHeaders(m["headers"])

	body, err := decodeBody(m, resp.Headers)
	if err != nil {
		return nil, err
	}
	resp.Body = body

	if resp.MatchingRules, resp.Generators, err = decodeRulesAndGenerators(m, rawRules, registry); err != nil {
		return nil, err
	}
	return resp, nil
}

func decodeRulesAndGenerators(m map[string]any, rawRules json.RawMessage, registry *generators.Registry) (*matchers.MatchingRules, *generators.Generators, error) {
	rules := matchers.NewMatchingRules()
	if raw, ok := m["matchingRules"].(map[string]any); ok {
		var r *matchers.MatchingRules
		var err error
		if len(rawRules) > 0 {
			r, err = matchers.FromRawJSON(rawRules)
		} else {
			r, err = matchers.FromJSON(raw)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("matchingRules: %w", err)
		}
		rules = r
	}
	gens := generators.New()
	if raw, ok := m["generators"].(map[string]any); ok {
		g, err := generators.FromJSON(raw, registry)
		if err != nil {
			return nil, nil, fmt.Errorf("generators: %w", err)
		}
		gens = g
	}
	return rules, gens, nil
}

func decodeQuery(v any) (map[string][]string, error) {
	query := map[string][]string{}
	switch q := v.(type) {
	case nil:
	case string:
		values, err := url.ParseQuery(q)
		if err != nil {
			return nil, fmt.Errorf("invalid query string %q: %w", q, err)
		}
		query = values
	case map[string]any:
		for k, val := range q {
			query[k] = stringList(val)
		}
	default:
		return nil, fmt.Errorf("query must be a string or an object")
	}
	return query, nil
}

func decodeHeaders(v any) map[string][]string {
	headers := map[string][]string{}
	m, ok := v.(map[string]any)
	if !ok {
		return headers
	}
	for k, val := range m {
		headers[k] = stringList(val)
	}
	return headers
}

func stringList(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case nil:
		return []string{""}
	}
	return []string{fmt.Sprint(v)}
}

func decodeBody(m map[string]any, headers map[string][]string) (Body, error) {
	raw, present := m["body"]
	if !present {
		return Body{State: BodyMissing}, nil
	}
	if raw == nil {
		return Body{State: BodyNull}, nil
	}

	contentType, _ := headerValue(headers, "Content-Type")

	// V4 bodies carry their content type and encoding explicitly
	if bm, ok := raw.(map[string]any); ok {
		if content, hasContent := bm["content"]; hasContent {
			if _, hasType := bm["contentType"]; hasType {
				return decodeV4Body(content, bm, contentType)
			}
		}
	}

	if s, ok := raw.(string); ok {
		if s == "" {
			return Body{State: BodyEmpty, ContentType: contentType}, nil
		}
		if contentType == "" {
			contentType = DetectContentType([]byte(s))
		}
		if IsJSON(contentType) && !json.Valid([]byte(s)) {
			data, _ := json.Marshal(s)
			return NewBody(data, contentType), nil
		}
		return NewBody([]byte(s), contentType), nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return Body{}, fmt.Errorf("invalid body: %w", err)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	return NewBody(data, contentType), nil
}

func decodeV4Body(content any, bm map[string]any, headerType string) (Body, error) {
	contentType, _ := bm["contentType"].(string)
	if contentType == "" {
		contentType = headerType
	}

	encoded := ""
	switch e := bm["encoded"].(type) {
	case bool:
		if e {
			encoded = "base64"
		}
	case string:
		encoded = strings.ToLower(e)
	}

	switch encoded {
	case "base64":
		s, _ := content.(string)
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Body{}, fmt.Errorf("invalid base64 body: %w", err)
		}
		return NewBody(data, contentType), nil
	case "json":
		s, _ := content.(string)
		return NewBody([]byte(s), contentType), nil
	}

	if s, ok := content.(string); ok {
		return NewBody([]byte(s), contentType), nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return Body{}, fmt.Errorf("invalid body: %w", err)
	}
	return NewBody(data, contentType), nil
}

// EncodePact writes p as a pact file for version
func EncodePact(p *Pact, version pactspec.Version) ([]byte, error) {
	interactions := make([]any, 0, len(p.Interactions))
	for _, i := range p.Interactions {
		m, err := encodeInteraction(i, version)
		if err != nil {
			return nil, fmt.Errorf("interaction %q: %w", i.Description, err)
		}
		interactions = append(interactions, m)
	}

	metadata := make(map[string]any, len(p.Metadata)+1)
	for k, v := range p.Metadata {
		if k == "pact-specification" || k == "pactSpecificationVersion" {
			continue
		}
		metadata[k] = v
	}
	metadata["pactSpecification"] = map[string]any{"version": version.String()}

	doc := map[string]any{
		"consumer":     map[string]any{"name": p.Consumer},
		"provider":     map[string]any{"name": p.Provider},
		"interactions": interactions,
		"metadata":     metadata,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func encodeInteraction(i *Interaction, version pactspec.Version) (map[string]any, error) {
	m := map[string]any{"description": i.Description}

	if version.AtLeast(pactspec.V3) {
		if len(i.ProviderStates) > 0 {
			states := make([]any, len(i.ProviderStates))
			for idx, s := range i.ProviderStates {
				sm := map[string]any{"name": s.Name}
				if len(s.Params) > 0 {
					sm["params"] = s.Params
				}
				states[idx] = sm
			}
			m["providerStates"] = states
		}
	} else if len(i.ProviderStates) > 0 {
		m["providerState"] = i.ProviderStates[0].Name
	}

	if version.AtLeast(pactspec.V4) {
		m["type"] = interactionTypeHTTP
		m["key"] = i.UniqueKey()
		m["pending"] = i.Pending
	}

	req := map[string]any{"method": i.Request.Method, "path": i.Request.Path}
	if len(i.Request.Query) > 0 {
		if version.AtLeast(pactspec.V3) {
			req["query"] = i.Request.Query
		} else {
			req["query"] = i.Request.QueryString()
		}
	}
	if err := encodeCommon(req, i.Request.Headers, i.Request.Body, i.Request.ContentType(),
		i.Request.MatchingRules, i.Request.Generators, version); err != nil {
		return nil, err
	}
	m["request"] = req

	resp := map[string]any{"status": i.Response.Status}
	if err := encodeCommon(resp, i.Response.Headers, i.Response.Body, i.Response.ContentType(),
		i.Response.MatchingRules, i.Response.Generators, version); err != nil {
		return nil, err
	}
	m["response"] = resp

	return m, nil
}

func encodeCommon(m map[string]any, headers map[string][]string, body Body, contentType string,
	rules *matchers.MatchingRules, gens *generators.Generators, version pactspec.Version) error {
	if len(headers) > 0 {
		if version.AtLeast(pactspec.V4) {
			m["headers"] = headers
		} else {
			flat := make(map[string]any, len(headers))
			for _, k := range sortedNames(headers) {
				flat[k] = strings.Join(headers[k], ", ")
			}
			m["headers"] = flat
		}
	}

	switch body.State {
	case BodyNull:
		m["body"] = nil
	case BodyEmpty:
		m["body"] = ""
	case BodyPresent:
		v, err := encodeBody(body, contentType, version)
		if err != nil {
			return err
		}
		m["body"] = v
	}

	if !rules.IsEmpty() {
		m["matchingRules"] = rules.ToMap(version)
	}
	if version.AtLeast(pactspec.V3) && !gens.IsEmpty() {
		m["generators"] = gens.ToMap(version)
	}
	return nil
}

func encodeBody(body Body, contentType string, version pactspec.Version) (any, error) {
	var content any = string(body.Content)
	if IsJSON(contentType) {
		v, err := body.JSONValue()
		if err != nil {
			return nil, fmt.Errorf("body declared as %s is not valid JSON: %w", contentType, err)
		}
		content = v
	}
	if !version.AtLeast(pactspec.V4) {
		return content, nil
	}
	return map[string]any{
		"content":     content,
		"contentType": contentType,
		"encoded":     false,
	}, nil
}

// SortInteractions orders interactions by description then key so written
// pact files are stable
func SortInteractions(list []*Interaction) {
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].Description != list[b].Description {
			return list[a].Description < list[b].Description
		}
		return list[a].UniqueKey() < list[b].UniqueKey()
	})
}
