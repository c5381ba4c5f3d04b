package history

import (
	"bytes"
	"encoding/json"
)

// Message is a change message: the native summary entries followed by the detail blocks.
// Blocks are appended fully built and never modified afterwards.
type Message []any

// JSON serializes the message for storage in a log entry.
func (m Message) JSON() (string, error) {
	if m == nil {
		m = Message{}
	}
	b, err := json.Marshal([]any(m))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Ref is a reference pair: the referenced object's key and its display string.
type Ref struct {
	PK     any    `json:"pk"`
	Object string `json:"object"`
}

// Value is one side of a field change: a scalar value, a reference, or null.
type Value struct {
	Scalar *string
	Ref    *Ref
}

func scalar(s string) *Value { return &Value{Scalar: &s} }

func null() *Value { return &Value{} }

func reference(pk any, object string) *Value { return &Value{Ref: &Ref{PK: pk, Object: object}} }

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Ref != nil {
		return json.Marshal(v.Ref)
	}
	return json.Marshal(struct {
		Value *string `json:"value"`
	}{v.Scalar})
}

// FieldChange describes one changed form field. Scalar and foreign key fields use Old/New,
// many-to-many fields use Added/Removed.
type FieldChange struct {
	Field   string
	Old     *Value
	New     *Value
	Added   []Ref
	Removed []Ref
}

func (c FieldChange) MarshalJSON() ([]byte, error) {
	body := struct {
		Old     *Value `json:"old,omitempty"`
		New     *Value `json:"new,omitempty"`
		Removed []Ref  `json:"removed,omitempty"`
		Added   []Ref  `json:"added,omitempty"`
	}{c.Old, c.New, c.Removed, c.Added}
	return json.Marshal(map[string]any{c.Field: body})
}

// RelatedField is one field of an inline object snapshot.
type RelatedField struct {
	Name string
	Old  *string
	New  *string
}

func (f RelatedField) MarshalJSON() ([]byte, error) {
	body := struct {
		Old *string `json:"old,omitempty"`
		New *string `json:"new,omitempty"`
	}{f.Old, f.New}
	return json.Marshal(map[string]any{f.Name: body})
}

// RelatedObject is a snapshot of an inline object that was added, changed or deleted.
// It encodes as {"<model>": "<display>", "fields": [...]}.
type RelatedObject struct {
	Model  string
	Repr   string
	Fields []RelatedField
}

func (o RelatedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, o.Model, o.Repr); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	fields := o.Fields
	if fields == nil {
		fields = []RelatedField{}
	}
	if err := writeMember(&buf, "fields", fields); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// Block names as they appear in a stored change message.
const (
	DetailsKey        = "details"
	AddedRelatedKey   = "added related"
	ChangedRelatedKey = "changed related"
	DeletedRelatedKey = "deleted related"
)

func block(key string, v any) map[string]any {
	return map[string]any{key: v}
}
