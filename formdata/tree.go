// ABOUTME: Form data tree with dot-path access
// ABOUTME: Provides Get, Set, and Merge over nested string-keyed maps
package formdata

import (
	"encoding/json"
	"strings"
)

// Tree is the open-ended form data accumulated across intake steps. Values
// are scalars, nested Trees (as map[string]any), or slices; the shape is
// whatever the step validators accepted.
type Tree = map[string]any

// Parse decodes a persisted JSON form-data tree. An empty input yields an
// empty tree rather than an error.
func Parse(raw string) (Tree, error) {
	if strings.TrimSpace(raw) == "" {
		return Tree{}, nil
	}
	var t Tree
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, err
	}
	if t == nil {
		t = Tree{}
	}
	return t, nil
}

// Encode serializes a tree for persistence.
func Encode(t Tree) (string, error) {
	if t == nil {
		t = Tree{}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Get walks a dot-separated path through the tree. It returns ok=false the
// moment a segment is missing or the current node is not a map. Absence is a
// normal outcome, never an error.
func Get(t Tree, path string) (any, bool) {
	if t == nil || path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = map[string]any(t)

	for _, segment := range segments {
		node, isMap := current.(map[string]any)
		if !isMap {
			return nil, false
		}
		value, present := node[segment]
		if !present {
			return nil, false
		}
		current = value
	}

	return current, true
}

// GetString is Get restricted to non-empty string leaves. Non-string and
// empty values report ok=false.
func GetString(t Tree, path string) (string, bool) {
	value, present := Get(t, path)
	if !present {
		return "", false
	}
	s, isString := value.(string)
	if !isString || s == "" {
		return "", false
	}
	return s, true
}

// Set assigns a value at a dot-separated path, creating intermediate maps as
// needed. A non-map intermediate node is replaced.
func Set(t Tree, path string, value any) {
	if t == nil || path == "" {
		return
	}

	segments := strings.Split(path, ".")
	node := map[string]any(t)

	for _, segment := range segments[:len(segments)-1] {
		child, isMap := node[segment].(map[string]any)
		if !isMap {
			child = map[string]any{}
			node[segment] = child
		}
		node = child
	}

	node[segments[len(segments)-1]] = value
}

// Merge copies src's top-level keys into dst. Later steps write distinct
// keys, so this only overwrites when a step intentionally reuses a path.
func Merge(dst Tree, src Tree) {
	for key, value := range src {
		dst[key] = value
	}
}
