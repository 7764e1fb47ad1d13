package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// node is an ordered representation of a parsed JSON value. Object keys keep
// their declaration order, which encoding/json maps would lose.
type node struct {
	keys     []string
	children map[string]*node
	leaf     any
	isObject bool
}

func (n *node) child(key string) *node {
	if n == nil || !n.isObject {
		return nil
	}
	return n.children[key]
}

func (n *node) leafString(key string) string {
	child := n.child(key)
	if child == nil || child.isObject {
		return ""
	}
	s, _ := child.leaf.(string)
	return strings.TrimSpace(s)
}

// Extract parses a profile schema document and returns its fields in
// declaration order. A schema node is a field when it carries a description,
// values, or value key; other object nodes are traversed recursively.
func Extract(data []byte) ([]Field, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	return walk(root, "")
}

// ExtractSection behaves like Extract but only descends into the given
// top-level section. Returned field paths still include the section prefix.
func ExtractSection(data []byte, section string) ([]Field, error) {
	root, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	sub := root.child(section)
	if sub == nil {
		return nil, &ValidationError{Path: section, Reason: "section not found"}
	}

	return walk(sub, section)
}

func parseDocument(data []byte) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := parseValue(dec)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("parse schema: %v", err)}
	}
	if !root.isObject {
		return nil, &ValidationError{Reason: "schema document must be a JSON object"}
	}

	return root, nil
}

func parseValue(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return &node{leaf: tok}, nil
	}

	switch delim {
	case '{':
		n := &node{isObject: true, children: make(map[string]*node)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)

			child, err := parseValue(dec)
			if err != nil {
				return nil, err
			}

			if _, exists := n.children[key]; !exists {
				n.keys = append(n.keys, key)
			}
			n.children[key] = child
		}
		// consume the closing brace
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case '[':
		items := make([]any, 0)
		for dec.More() {
			child, err := parseValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, child.value())
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return &node{leaf: items}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// value converts the node back into a plain Go value.
func (n *node) value() any {
	if n == nil {
		return nil
	}
	if !n.isObject {
		return n.leaf
	}
	m := make(map[string]any, len(n.keys))
	for _, key := range n.keys {
		m[key] = n.children[key].value()
	}
	return m
}

func walk(n *node, prefix string) ([]Field, error) {
	fields := make([]Field, 0)

	for _, key := range n.keys {
		child := n.children[key]
		if child == nil || !child.isObject {
			continue
		}

		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if isConcept(child) {
			field, err := buildField(path, key, child)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			continue
		}

		nested, err := walk(child, path)
		if err != nil {
			return nil, err
		}
		fields = append(fields, nested...)
	}

	return fields, nil
}

// isConcept reports whether the node describes an answerable field rather
// than a grouping section.
func isConcept(n *node) bool {
	return n.child("description") != nil || n.child("values") != nil || n.child("value") != nil
}

func buildField(path, key string, n *node) (Field, error) {
	if strings.TrimSpace(key) == "" {
		return Field{}, &ValidationError{Path: path, Reason: "field name is empty"}
	}

	field := Field{
		Name:        path,
		Description: n.leafString("description"),
	}

	if values := n.child("values"); values != nil {
		items, _ := values.leaf.([]any)
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				field.Values = append(field.Values, strings.TrimSpace(s))
			}
		}
	}

	fieldType, err := resolveType(path, n, field.Values)
	if err != nil {
		return Field{}, err
	}
	field.Type = fieldType

	if value := n.child("value"); value != nil && !isEmptyValue(value) {
		field.Answered = true
	}

	return field, nil
}

// resolveType prefers an explicit type key. Without one, fields restricted to
// a fixed set of values become choice fields and everything else is text.
func resolveType(path string, n *node, values []string) (FieldType, error) {
	if typeNode := n.child("type"); typeNode != nil {
		raw, _ := typeNode.leaf.(string)
		fieldType, ok := ParseFieldType(raw)
		if !ok {
			return "", &ValidationError{Path: path, Reason: fmt.Sprintf("unknown field type %q", raw)}
		}
		return fieldType, nil
	}

	if len(values) > 0 {
		return FieldChoice, nil
	}

	return FieldText, nil
}

func isEmptyValue(n *node) bool {
	if n.isObject {
		return len(n.keys) == 0
	}
	switch v := n.leaf.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
