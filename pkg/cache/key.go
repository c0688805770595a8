package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Key identifies a cached response by endpoint, request parameters and HTTP
// method.
type Key struct {
	// Endpoint is the API endpoint path (e.g. "/deliveries/42").
	Endpoint string

	// Params are the request parameters. Only the top-level key order is
	// canonicalized; nested values are serialized as-is.
	Params map[string]any

	// Method is the HTTP method. Empty means GET.
	Method string
}

// String generates a deterministic cache key string.
// Format: endpoint:{"param1":v1,"param2":v2}:METHOD
//
// Top-level parameter keys are sorted ascending, so two keys built from the
// same parameter set in different insertion order are identical. Values are
// serialized, not hashed, so different values yield different keys with
// overwhelming probability.
//
// Example:
//	/deliveries:{"page":1,"status":"pending"}:GET
func (k Key) String() string {
	method := k.Method
	if method == "" {
		method = http.MethodGet
	}

	var b strings.Builder
	b.WriteString(k.Endpoint)
	b.WriteByte(':')
	b.WriteString(canonicalParams(k.Params))
	b.WriteByte(':')
	b.WriteString(method)
	return b.String()
}

// canonicalParams serializes params as a JSON object with top-level keys
// sorted ascending. Nil or empty params serialize to "{}".
func canonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:", name)
		b.WriteString(serializeValue(params[name]))
	}
	b.WriteByte('}')
	return b.String()
}

// serializeValue renders a single parameter value. Values that defeat JSON
// serialization fall back to their quoted fmt representation so the key
// stays deterministic.
func serializeValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return string(data)
}
