// Package jsonapi decodes loosely shaped JSON:API documents and indexes them
// into a resource graph keyed by "type:id".
package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Ref struct {
	Type string
	ID   string
}

func (r Ref) Key() string {
	return r.Type + ":" + r.ID
}

func (r Ref) Valid() bool {
	return r.Type != "" && r.ID != ""
}

// Resource is a JSON:API resource object. Relationship entries decode into
// Resource as well since some upstream responses embed full objects there.
type Resource struct {
	Type          string
	ID            string
	Attributes    map[string]any
	Relationships map[string]Relationship
}

func (r Resource) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID}
}

// Embedded reports whether the resource carries a body beyond its identity.
func (r Resource) Embedded() bool {
	return r.Attributes != nil || r.Relationships != nil
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type          string                  `json:"type"`
		ID            json.RawMessage         `json:"id"`
		Attributes    map[string]any          `json:"attributes"`
		Relationships map[string]Relationship `json:"relationships"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	r.Type = raw.Type
	r.ID = id
	r.Attributes = raw.Attributes
	r.Relationships = raw.Relationships
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return n.String(), nil
}

// Relationship holds zero or more linked resources, whether the upstream sent
// an object, an array or null.
type Relationship struct {
	Data []Resource
	Many bool
}

func (rel *Relationship) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items, many, err := decodeOneOrMany(raw.Data)
	if err != nil {
		return fmt.Errorf("decode relationship: %w", err)
	}
	rel.Data = items
	rel.Many = many
	return nil
}

func decodeOneOrMany(raw json.RawMessage) ([]Resource, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}
	if raw[0] == '[' {
		var items []Resource
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, true, err
		}
		return items, true, nil
	}
	var one Resource
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, false, err
	}
	return []Resource{one}, false, nil
}

type Document struct {
	Data     []Resource
	Many     bool
	Included []Resource
	Links    map[string]json.RawMessage
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data     json.RawMessage            `json:"data"`
		Included []Resource                 `json:"included"`
		Links    map[string]json.RawMessage `json:"links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items, many, err := decodeOneOrMany(raw.Data)
	if err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	d.Data = items
	d.Many = many
	d.Included = raw.Included
	d.Links = raw.Links
	return nil
}

// Parse decodes a JSON:API document.
func Parse(body []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Primary returns the first top-level resource.
func (d *Document) Primary() (Resource, bool) {
	if len(d.Data) == 0 {
		return Resource{}, false
	}
	return d.Data[0], true
}

// NextLink returns links.next, which upstream sends either as a string or as {"href": ...}.
func (d *Document) NextLink() string {
	raw, ok := d.Links["next"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Href string `json:"href"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Href)
	}
	return ""
}

// String returns a non-blank string attribute.
func (r Resource) String(key string) string {
	return str(r.Attributes[key])
}

// StringPtr is String returning nil for missing values.
func (r Resource) StringPtr(key string) *string {
	if s := r.String(key); s != "" {
		return &s
	}
	return nil
}

// Nested reads a string from an attribute object, e.g. image_urls.original.
func (r Resource) Nested(key, sub string) string {
	obj, ok := r.Attributes[key].(map[string]any)
	if !ok {
		return ""
	}
	return str(obj[sub])
}

// Int returns a numeric attribute. Numeric strings are accepted.
func (r Resource) Int(key string) (int, bool) {
	switch v := r.Attributes[key].(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func (r Resource) Time(key string) *time.Time {
	s := r.String(key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Refs returns the identities linked under a relationship.
func (r Resource) Refs(rel string) []Ref {
	relationship, ok := r.Relationships[rel]
	if !ok {
		return nil
	}
	refs := make([]Ref, 0, len(relationship.Data))
	for _, item := range relationship.Data {
		if ref := item.Ref(); ref.Valid() {
			refs = append(refs, ref)
		}
	}
	return refs
}

// RelationshipNames returns the resource's relationship names sorted.
func (r Resource) RelationshipNames() []string {
	return slices.Sorted(maps.Keys(r.Relationships))
}

// HasRelated reports whether rel points at a resource with a complete identity.
func (r Resource) HasRelated(rel string) bool {
	return len(r.Refs(rel)) > 0
}

func str(v any) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
