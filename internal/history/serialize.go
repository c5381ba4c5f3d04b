package history

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"admin-history/internal/modelmeta"
)

// Serialize renders objects in the generic serializer format used for deletion snapshots:
//
//	[{"model": "catalog.book", "pk": 1, "fields": {"title": "...", "tags": [...]}}]
//
// Field order follows column declaration order. Binary columns are base64 encoded, or null
// when unset, and many-to-many associations are listed by primary key when loaded.
func Serialize(objs ...any) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, obj := range objs {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := serializeOne(&buf, obj); err != nil {
			return "", err
		}
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func serializeOne(buf *bytes.Buffer, obj any) error {
	label, err := modelmeta.Label(obj)
	if err != nil {
		return fmt.Errorf("history: serialize: %w", err)
	}
	pk, err := modelmeta.PrimaryKey(obj)
	if err != nil {
		return fmt.Errorf("history: serialize: %w", err)
	}
	cols, err := modelmeta.Columns(obj)
	if err != nil {
		return fmt.Errorf("history: serialize: %w", err)
	}
	rels, err := modelmeta.ManyToMany(obj)
	if err != nil {
		return fmt.Errorf("history: serialize: %w", err)
	}

	buf.WriteByte('{')
	if err := writeMember(buf, "model", label); err != nil {
		return err
	}
	buf.WriteString(", ")
	if err := writeMember(buf, "pk", modelmeta.SafeKey(pk)); err != nil {
		return err
	}
	buf.WriteString(`, "fields": {`)

	n := 0
	next := func() {
		if n > 0 {
			buf.WriteString(", ")
		}
		n++
	}
	for _, col := range cols {
		if col.PrimaryKey {
			continue
		}
		v, err := modelmeta.Value(obj, col.Name)
		if err != nil {
			return fmt.Errorf("history: serialize: %w", err)
		}
		if b, ok := v.([]byte); ok {
			if b == nil {
				v = nil
			} else {
				v = base64.StdEncoding.EncodeToString(b)
			}
		}
		next()
		if err := writeMember(buf, col.Name, v); err != nil {
			return fmt.Errorf("history: serialize %s.%s: %w", label, col.Name, err)
		}
	}
	for _, rel := range rels {
		next()
		if err := writeMember(buf, rel.Name, rel.PKs); err != nil {
			return err
		}
	}
	buf.WriteString("}}")
	return nil
}
