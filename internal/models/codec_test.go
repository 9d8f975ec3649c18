package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/matchers"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

const v3Pact = `{
  "consumer": {"name": "web"},
  "provider": {"name": "users"},
  "interactions": [
    {
      "description": "get a user",
      "providerStates": [{"name": "user exists", "params": {"id": 7}}],
      "request": {
        "method": "get",
        "path": "/users/7",
        "query": {"fields": ["name", "email"]},
        "headers": {"Accept": "application/json"},
        "matchingRules": {
          "path": {"matchers": [{"match": "regex", "regex": "/users/\\d+"}], "combine": "AND"}
        },
        "generators": {"path": {"type": "ProviderState", "expression": "/users/${id}", "dataType": "STRING"}}
      },
      "response": {
        "status": 200,
        "headers": {"Content-Type": "application/json"},
        "body": {"id": 7, "name": "alice", "score": 1.50},
        "matchingRules": {
          "body": {"$.id": {"matchers": [{"match": "integer"}]}}
        },
        "generators": {"body": {"$.id": {"type": "RandomInt", "min": 1, "max": 100}}}
      }
    }
  ],
  "metadata": {"pactSpecification": {"version": "3.0.0"}}
}`

func TestDecodePactV3(t *testing.T) {
	pact, warnings, err := DecodePact([]byte(v3Pact), nil)
	if err != nil {
		t.Fatalf("DecodePact failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	if pact.Consumer != "web" || pact.Provider != "users" {
		t.Errorf("Unexpected participants %q/%q", pact.Consumer, pact.Provider)
	}
	if pact.Version != pactspec.V3 {
		t.Errorf("Expected V3, got %v", pact.Version)
	}
	if len(pact.Interactions) != 1 {
		t.Fatalf("Expected 1 interaction, got %d", len(pact.Interactions))
	}

	i := pact.Interactions[0]
	if i.Request.Method != "GET" {
		t.Errorf("Expected method to be upper-cased, got %q", i.Request.Method)
	}
	if got := i.Request.Query["fields"]; len(got) != 2 || got[1] != "email" {
		t.Errorf("Unexpected query %v", got)
	}
	if i.ProviderStateParams()["id"] == nil {
		t.Error("Expected provider state params to be decoded")
	}
	if _, ok := i.Request.MatchingRules.Category(matchers.CategoryPath).Get(""); !ok {
		t.Error("Expected path matching rule")
	}
	if _, ok := i.Request.Generators.Get(matchers.CategoryPath, ""); !ok {
		t.Error("Expected path generator")
	}
	if !i.Response.Body.IsPresent() || !IsJSON(i.Response.ContentType()) {
		t.Errorf("Expected JSON response body, got %+v", i.Response.Body)
	}
	if !strings.Contains(i.Response.Body.String(), "1.50") {
		t.Errorf("Expected number to keep its representation, got %s", i.Response.Body.String())
	}
}

func TestDecodePactV2(t *testing.T) {
	data := `{
	  "consumer": {"name": "c"}, "provider": {"name": "p"},
	  "interactions": [{
	    "description": "list",
	    "providerState": "items exist",
	    "request": {"method": "GET", "path": "/items", "query": "page=2&size=10"},
	    "response": {"status": 200, "body": [1, 2],
	      "matchingRules": {"$.body": {"min": 1}}}
	  }],
	  "metadata": {"pact-specification": {"version": "2.0.0"}}
	}`
	pact, _, err := DecodePact([]byte(data), nil)
	if err != nil {
		t.Fatalf("DecodePact failed: %v", err)
	}
	if pact.Version != pactspec.V2 {
		t.Errorf("Expected V2, got %v", pact.Version)
	}
	i := pact.Interactions[0]
	if i.ProviderStates[0].Name != "items exist" {
		t.Errorf("Unexpected provider state %+v", i.ProviderStates)
	}
	if i.Request.Query["page"][0] != "2" {
		t.Errorf("Unexpected query %v", i.Request.Query)
	}
	g, ok := i.Response.MatchingRules.Category(matchers.CategoryBody).Get("$")
	if !ok || g.Rules[0] != (matchers.MinTypeMatcher{Min: 1}) {
		t.Errorf("Expected min type rule at $, got %+v", g)
	}
}

func TestDecodePactKeepsRuleOrder(t *testing.T) {
	data := `{
	  "consumer": {"name": "c"}, "provider": {"name": "p"},
	  "interactions": [
	    {"type": "Asynchronous/Messages", "description": "event"},
	    {
	      "description": "pairs",
	      "request": {"method": "GET", "path": "/pairs"},
	      "response": {"status": 200, "body": {"a": {"b": 1}},
	        "matchingRules": {"body": {
	          "$.a.*": {"matchers": [{"match": "type"}]},
	          "$.*.b": {"matchers": [{"match": "integer"}]}
	        }}}
	    }
	  ],
	  "metadata": {"pactSpecification": {"version": "3.0.0"}}
	}`
	pact, warnings, err := DecodePact([]byte(data), nil)
	if err != nil {
		t.Fatalf("DecodePact failed: %v", err)
	}
	if len(warnings) != 1 || len(pact.Interactions) != 1 {
		t.Fatalf("Expected the message to be skipped, got %d interactions and warnings %v", len(pact.Interactions), warnings)
	}

	body := pact.Interactions[0].Response.MatchingRules.Category(matchers.CategoryBody)
	keys := body.Keys()
	if len(keys) != 2 || keys[0] != "$.a.*" || keys[1] != "$.*.b" {
		t.Errorf("Expected document order, got %v", keys)
	}
	res, ok := body.ResolveMatch([]string{"$", "a", "b"})
	if !ok || res.Key != "$.a.*" {
		t.Errorf("Expected $.a.* to win the tie, got %+v", res)
	}
}

func TestDecodePactV4(t *testing.T) {
	data := `{
	  "consumer": {"name": "c"}, "provider": {"name": "p"},
	  "interactions": [
	    {"type": "Synchronous/HTTP", "key": "k1", "description": "create", "pending": true,
	     "request": {"method": "POST", "path": "/things",
	       "body": {"content": "aGVsbG8=", "contentType": "application/octet-stream", "encoded": "base64"}},
	     "response": {"status": 201,
	       "body": {"content": {"ok": true}, "contentType": "application/json", "encoded": false}}},
	    {"type": "Asynchronous/Messages", "description": "event", "contents": {}}
	  ],
	  "metadata": {"pactSpecification": {"version": "4.0"}}
	}`
	pact, warnings, err := DecodePact([]byte(data), nil)
	if err != nil {
		t.Fatalf("DecodePact failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("Expected the message interaction to be skipped with a warning, got %v", warnings)
	}
	i := pact.Interactions[0]
	if i.UniqueKey() != "k1" || !i.Pending {
		t.Errorf("Unexpected key/pending %q/%v", i.Key, i.Pending)
	}
	if i.Request.Body.String() != "hello" {
		t.Errorf("Expected decoded base64 body, got %q", i.Request.Body.String())
	}
	if i.Response.Body.String() != `{"ok":true}` {
		t.Errorf("Unexpected response body %q", i.Response.Body.String())
	}
}

func TestDecodePactErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{`},
		{"missing request", `{"interactions":[{"description":"x","response":{"status":200}}]}`},
		{"bad status", `{"interactions":[{"request":{},"response":{"status":"abc"}}]}`},
		{"bad rule", `{"interactions":[{"request":{"matchingRules":{"body":{"$.a":{"matchers":[{"match":"nope"}]}}}},"response":{}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodePact([]byte(tt.data), nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, version := range []pactspec.Version{pactspec.V2, pactspec.V3, pactspec.V4} {
		t.Run(version.String(), func(t *testing.T) {
			original, _, err := DecodePact([]byte(v3Pact), nil)
			if err != nil {
				t.Fatal(err)
			}
			data, err := EncodePact(original, version)
			if err != nil {
				t.Fatalf("EncodePact failed: %v", err)
			}
			decoded, _, err := DecodePact(data, nil)
			if err != nil {
				t.Fatalf("DecodePact of encoded pact failed: %v\n%s", err, data)
			}
			if decoded.Version != version {
				t.Errorf("Expected version %v, got %v", version, decoded.Version)
			}

			want := original.Interactions[0]
			got := decoded.Interactions[0]
			if got.Request.Method != want.Request.Method || got.Request.Path != want.Request.Path {
				t.Errorf("Request line changed: %s", got.Request.Describe())
			}
			if got.Response.Status != want.Response.Status {
				t.Errorf("Status changed: %d", got.Response.Status)
			}

			var wantBody, gotBody any
			_ = json.Unmarshal(want.Response.Body.Content, &wantBody)
			_ = json.Unmarshal(got.Response.Body.Content, &gotBody)
			if !jsonEqual(wantBody, gotBody) {
				t.Errorf("Body changed: %s", got.Response.Body.String())
			}

			if _, ok := got.Response.MatchingRules.Category(matchers.CategoryBody).Get("$.id"); !ok {
				t.Error("Body matching rule lost")
			}
			_, hasGen := got.Response.Generators.Get(matchers.CategoryBody, "$.id")
			if version >= pactspec.V3 && !hasGen {
				t.Error("Body generator lost")
			}
		})
	}
}

func jsonEqual(a, b any) bool {
	x, _ := json.Marshal(a)
	y, _ := json.Marshal(b)
	return string(x) == string(y)
}

func TestResponseGenerate(t *testing.T) {
	resp := NewResponse(200)
	resp.Headers["Content-Type"] = []string{"application/json"}
	resp.Body = NewBody([]byte(`{"id":1,"name":"x"}`), "application/json")
	resp.Generators.
		Add(matchers.CategoryBody, "$.id", generators.RandomIntGenerator{Min: 50, Max: 51}).
		Add(matchers.CategoryHeader, "X-Request-Id", generators.RegexGenerator{Regex: "abc"}).
		Add(matchers.CategoryBody, "$.name", generators.ProviderStateGenerator{Expression: "name"})

	out, err := resp.Generate(generators.NewContext(generators.Consumer), generators.DefaultHandlers())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out.Body.String() != `{"id":50,"name":"x"}` {
		t.Errorf("Unexpected body %s", out.Body.String())
	}
	if v, _ := out.Header("X-Request-Id"); v != "abc" {
		t.Errorf("Expected generated header, got %q", v)
	}
	if _, ok := resp.Header("X-Request-Id"); ok {
		t.Error("Generate must not modify the original response")
	}
}

func TestRequestGenerateProviderMode(t *testing.T) {
	req := NewRequest("GET", "/users/1")
	req.Generators.Add(matchers.CategoryPath, "", generators.ProviderStateGenerator{Expression: "/users/${id}", DataType: generators.DataTypeString})

	ctx := generators.NewContext(generators.Provider)
	ctx.ProviderState = map[string]any{"id": 99}
	out, err := req.Generate(ctx, generators.DefaultHandlers())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out.Path != "/users/99" {
		t.Errorf("Expected generated path, got %q", out.Path)
	}
}

func TestUniqueKey(t *testing.T) {
	a := &Interaction{Description: "a", Request: NewRequest("GET", "/a")}
	b := &Interaction{Description: "a", Request: NewRequest("GET", "/b")}
	if a.UniqueKey() == b.UniqueKey() {
		t.Error("Expected different keys for different requests")
	}
	if a.UniqueKey() != a.UniqueKey() {
		t.Error("Expected stable key")
	}
	c := &Interaction{Key: "explicit"}
	if c.UniqueKey() != "explicit" {
		t.Errorf("Expected explicit key, got %q", c.UniqueKey())
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"a":1}`, "application/json"},
		{`[1,2]`, "application/json"},
		{`<a/>`, "application/xml"},
		{`<html><body/></html>`, "text/html"},
		{`hello`, "text/plain"},
		{``, ""},
	}
	for _, tt := range tests {
		if got := DetectContentType([]byte(tt.body)); got != tt.want {
			t.Errorf("DetectContentType(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
