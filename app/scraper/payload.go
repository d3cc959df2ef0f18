package scraper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Embedded platform payloads are undocumented and change shape often, so they are
// decoded loosely and read through these accessors.

func decodePayload(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// findKey searches raw JSON depth-first, in document order, for the first
// object holding key and returns that key's decoded value.
func findKey(raw, key string) (any, bool) {
	if !gjson.Valid(raw) {
		return nil, false
	}
	found, ok := findKeyIn(gjson.Parse(raw), key)
	if !ok {
		return nil, false
	}
	return decodePayload(found.Raw)
}

func findKeyIn(node gjson.Result, key string) (gjson.Result, bool) {
	if !node.IsObject() && !node.IsArray() {
		return gjson.Result{}, false
	}

	var match gjson.Result
	matched := false
	if node.IsObject() {
		node.ForEach(func(k, v gjson.Result) bool {
			if k.String() == key {
				match, matched = v, true
			}
			return !matched
		})
		if matched {
			return match, true
		}
	}

	node.ForEach(func(_, child gjson.Result) bool {
		match, matched = findKeyIn(child, key)
		return !matched
	})
	return match, matched
}

// dig follows a path of object keys and array indexes ("0").
func dig(v any, path ...string) any {
	cur := v
	for _, segment := range path {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[segment]
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	return cur
}

func str(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	}
	return ""
}

func firstStr(values ...any) string {
	for _, v := range values {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func count(v any) *int64 {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return &n
		}
		if f, err := val.Float64(); err == nil {
			return int64Ptr(int64(f))
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
			return &n
		}
	}
	return nil
}

func unixTime(v any) *time.Time {
	n := count(v)
	if n == nil || *n <= 0 {
		return nil
	}
	t := time.Unix(*n, 0).UTC()
	return &t
}

func isoTime(v any) *time.Time {
	s := str(v)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}
