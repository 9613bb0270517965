package entity

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// pathToken matches :name placeholders in an endpoint template.
var pathToken = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// buildURL renders an endpoint template into a request path.
//
// Template :name tokens are substituted from params; a token with no
// matching parameter is left as literal text, so partially parameterized
// templates degrade instead of failing. Parameters consumed by substitution
// never reach the query string. Of the rest, nil and empty-string values are
// dropped and the remainder become a URL-encoded query string. extraPath is
// appended after the substituted base path, before the query string,
// normalized to exactly one leading slash.
func buildURL(template string, params map[string]any, extraPath string) string {
	consumed := make(map[string]bool)

	path := pathToken.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1:]
		v, ok := params[name]
		if !ok || v == nil {
			return match
		}
		consumed[name] = true
		return url.PathEscape(stringify(v))
	})

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if extraPath != "" {
		path += "/" + strings.TrimLeft(extraPath, "/")
	}

	query := url.Values{}
	for k, v := range params {
		if consumed[k] || v == nil {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		query.Set(k, s)
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	return path
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
