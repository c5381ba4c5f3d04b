// Package modelmeta answers questions about gorm models at runtime: their names, primary
// keys, columns and printable values.
package modelmeta

import (
	"context"
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm/schema"
)

// DefaultAppLabel is used for models that do not implement AppLabeler.
const DefaultAppLabel = "main"

// AppLabeler groups a model under an application label, e.g. "catalog".
type AppLabeler interface {
	AppLabel() string
}

// Column is one declared database column of a model.
type Column struct {
	Name          string
	PrimaryKey    bool
	AutoIncrement bool
	Binary        bool
}

var (
	cache sync.Map
	namer = schema.NamingStrategy{}
	bgctx = context.Background()
)

// Parse returns the gorm schema of obj, which must be a model struct or a pointer to one.
func Parse(obj any) (*schema.Schema, error) {
	if obj == nil {
		return nil, fmt.Errorf("modelmeta: nil model")
	}
	sch, err := schema.Parse(obj, &cache, namer)
	if err != nil {
		return nil, fmt.Errorf("modelmeta: parse %T: %w", obj, err)
	}
	return sch, nil
}

// ModelName is the lower-cased struct name, e.g. "edition".
func ModelName(obj any) (string, error) {
	sch, err := Parse(obj)
	if err != nil {
		return "", err
	}
	return strings.ToLower(sch.Name), nil
}

func AppLabel(obj any) string {
	if l, ok := obj.(AppLabeler); ok {
		return l.AppLabel()
	}
	return DefaultAppLabel
}

// Label is "<app_label>.<model_name>".
func Label(obj any) (string, error) {
	name, err := ModelName(obj)
	if err != nil {
		return "", err
	}
	return AppLabel(obj) + "." + name, nil
}

// PrimaryKey reads the prioritized primary key of obj. Models without one return nil.
func PrimaryKey(obj any) (any, error) {
	sch, err := Parse(obj)
	if err != nil {
		return nil, err
	}
	if sch.PrioritizedPrimaryField == nil {
		return nil, nil
	}
	v, _ := sch.PrioritizedPrimaryField.ValueOf(bgctx, structValue(obj))
	return v, nil
}

// Columns lists the declared columns of obj in declaration order.
func Columns(obj any) ([]Column, error) {
	sch, err := Parse(obj)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(sch.DBNames))
	for _, name := range sch.DBNames {
		f := sch.FieldsByDBName[name]
		cols = append(cols, Column{
			Name:          name,
			PrimaryKey:    f.PrimaryKey,
			AutoIncrement: f.AutoIncrement,
			Binary:        f.DataType == schema.Bytes,
		})
	}
	return cols, nil
}

// Value reads a field of obj by column name or Go field name.
func Value(obj any, name string) (any, error) {
	sch, err := Parse(obj)
	if err != nil {
		return nil, err
	}
	f := sch.LookUpField(name)
	if f == nil {
		return nil, fmt.Errorf("modelmeta: %s has no field %q", sch.Name, name)
	}
	v, _ := f.ValueOf(bgctx, structValue(obj))
	return v, nil
}

// Set assigns value to a field of obj, which must be a non-nil pointer to a model.
// Conversions follow gorm's field setters, so an int may be stored in a *uint column and
// nil zeroes the field.
func Set(obj any, name string, value any) error {
	sch, err := Parse(obj)
	if err != nil {
		return err
	}
	f := sch.LookUpField(name)
	if f == nil {
		return fmt.Errorf("modelmeta: %s has no field %q", sch.Name, name)
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("modelmeta: set %s.%s: %T is not a non-nil pointer", sch.Name, name, obj)
	}
	if err := f.Set(bgctx, rv.Elem(), value); err != nil {
		return fmt.Errorf("modelmeta: set %s.%s: %w", sch.Name, name, err)
	}
	return nil
}

// FieldString renders a field of obj as text. Binary fields are base64 encoded so the
// result stays JSON safe.
func FieldString(obj any, name string) (string, error) {
	v, err := Value(obj, name)
	if err != nil {
		return "", err
	}
	if b, ok := v.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	return Stringify(v), nil
}

// Stringify renders a value the way it is shown to operators. Nil renders as "".
func Stringify(v any) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		if _, ok := v.(fmt.Stringer); !ok {
			return Stringify(rv.Elem().Interface())
		}
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return Stringify(dv)
	}
	return fmt.Sprint(v)
}

// SafeKey returns a representation of a primary key that is safe to serialize to JSON:
// integers, strings and byte slices pass through, anything else becomes its string form.
func SafeKey(pk any) any {
	switch pk.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		string, []byte:
		return pk
	case nil:
		return nil
	}
	return Stringify(pk)
}

// Relation is a loaded many-to-many association and the keys of its members.
type Relation struct {
	Name string
	PKs  []any
}

// ManyToMany lists the loaded many-to-many associations of obj. Associations that were
// never loaded (nil slices) are left out.
func ManyToMany(obj any) ([]Relation, error) {
	sch, err := Parse(obj)
	if err != nil {
		return nil, err
	}
	rv := structValue(obj)

	var out []Relation
	for _, rel := range sch.Relationships.Many2Many {
		fv := rel.Field.ReflectValueOf(bgctx, rv)
		if fv.Kind() != reflect.Slice || fv.IsNil() {
			continue
		}
		pks := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			elem := fv.Index(i)
			if elem.Kind() != reflect.Pointer {
				elem = elem.Addr()
			}
			pk, err := PrimaryKey(elem.Interface())
			if err != nil {
				return nil, err
			}
			pks = append(pks, SafeKey(pk))
		}
		out = append(out, Relation{Name: namer.ColumnName("", rel.Name), PKs: pks})
	}
	return out, nil
}

func structValue(obj any) reflect.Value {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.New(rv.Type().Elem()).Elem()
		}
		rv = rv.Elem()
	}
	return rv
}
