// Package history builds structured change messages for admin log entries: which fields of
// an object changed, their old and new values, and what happened to its inline objects.
package history

import (
	"errors"
	"fmt"
	"reflect"

	"admin-history/internal/modelmeta"
)

// ErrUnknownField is returned when a form reports a changed field it does not define.
var ErrUnknownField = errors.New("history: unknown form field")

// Unresolved is the display string of a reference whose object no longer exists.
const Unresolved = "None"

// Identifiable is a stored object that can be referenced by its primary key.
type Identifiable interface {
	PrimaryKey() any
	String() string
}

// QuerySet is the cleaned value of a many-to-many field.
type QuerySet []Identifiable

// Resolver maps primary keys of a relation back to stored objects.
type Resolver interface {
	// Resolve returns nil and no error when nothing matches pk.
	Resolve(pk any) (Identifiable, error)
	ResolveMany(pks []any) ([]Identifiable, error)
}

// Field describes a form field. A nil Resolver means a scalar field.
type Field struct {
	Name     string
	Label    string
	Resolver Resolver
}

func (f Field) relational() bool { return f.Resolver != nil }

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Form is a validated form.
//
// Initial holds primary keys for foreign keys and []Identifiable for many-to-many fields.
// CleanedData holds Identifiable for foreign keys and QuerySet for many-to-many fields;
// write-only fields are absent from it.
type Form interface {
	ChangedData() []string
	Initial() map[string]any
	CleanedData() map[string]any
	Field(name string) (Field, bool)
}

// Build appends structured change details to the native summary of a form submission.
// With no changed fields and no formsets the summary is returned unchanged.
func Build(summary []any, form Form, formsets ...Formset) (Message, error) {
	msg := make(Message, 0, len(summary)+4)
	msg = append(msg, summary...)

	if form != nil && len(form.ChangedData()) > 0 {
		details, err := buildDetails(form)
		if err != nil {
			return nil, err
		}
		msg = append(msg, block(DetailsKey, details))
	}

	for _, fs := range formsets {
		blocks, err := buildRelated(fs)
		if err != nil {
			return nil, err
		}
		msg = append(msg, blocks...)
	}
	return msg, nil
}

func buildDetails(form Form) ([]FieldChange, error) {
	initial := form.Initial()
	cleaned := form.CleanedData()

	details := make([]FieldChange, 0, len(form.ChangedData()))
	for _, name := range form.ChangedData() {
		field, ok := form.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}

		change, emit, err := buildFieldChange(field, initial, cleaned)
		if err != nil {
			return nil, fmt.Errorf("history: field %q: %w", name, err)
		}
		if emit {
			details = append(details, change)
		}
	}
	return details, nil
}

func buildFieldChange(field Field, initial, cleaned map[string]any) (FieldChange, bool, error) {
	change := FieldChange{Field: field.Name}

	var (
		oldPKs []any
		many   bool
	)
	prev, recorded := initial[field.Name]
	switch {
	case !recorded:
		change.Old = null()
	case isNil(prev):
		change.Old = scalar(Unresolved)
	case field.relational():
		if objs, ok := prev.([]Identifiable); ok {
			many = true
			oldPKs = primaryKeys(objs)
			break
		}
		obj, err := field.Resolver.Resolve(prev)
		if err != nil {
			return change, false, err
		}
		change.Old = reference(modelmeta.SafeKey(prev), display(obj))
	default:
		change.Old = scalar(text(prev))
	}

	value, ok := cleaned[field.Name]
	if !ok {
		// write-only fields never reach cleaned data
		return change, !many, nil
	}

	switch v := value.(type) {
	case QuerySet:
		return buildRelationChange(field, oldPKs, v)
	case Identifiable:
		if isNil(v) {
			change.New = scalar(Unresolved)
			break
		}
		change.New = reference(modelmeta.SafeKey(v.PrimaryKey()), v.String())
	case nil:
		change.New = scalar(Unresolved)
	default:
		change.New = scalar(text(v))
	}
	if many {
		// a multi-valued initial with a scalar cleaned value has no old side
		change.Old = nil
	}
	return change, true, nil
}

func buildRelationChange(field Field, oldPKs []any, current QuerySet) (FieldChange, bool, error) {
	change := FieldChange{Field: field.Name}

	newPKs := primaryKeys(current)
	oldSet := keySet(oldPKs)
	newSet := keySet(newPKs)

	var removedPKs []any
	for _, pk := range oldPKs {
		if _, ok := newSet[setKey(pk)]; !ok {
			removedPKs = append(removedPKs, pk)
		}
	}
	if len(removedPKs) > 0 {
		removed, err := field.Resolver.ResolveMany(removedPKs)
		if err != nil {
			return change, false, err
		}
		change.Removed = refs(removed)
	}

	for _, obj := range current {
		if _, ok := oldSet[setKey(obj.PrimaryKey())]; !ok {
			change.Added = append(change.Added, Ref{PK: modelmeta.SafeKey(obj.PrimaryKey()), Object: obj.String()})
		}
	}

	return change, len(change.Added) > 0 || len(change.Removed) > 0, nil
}

func primaryKeys(objs []Identifiable) []any {
	pks := make([]any, 0, len(objs))
	for _, o := range objs {
		pks = append(pks, o.PrimaryKey())
	}
	return pks
}

// setKey normalizes a primary key for set membership, so that keys of different Go types
// with the same printed form compare equal.
func setKey(pk any) string {
	return fmt.Sprintf("%v", modelmeta.SafeKey(pk))
}

func keySet(pks []any) map[string]struct{} {
	set := make(map[string]struct{}, len(pks))
	for _, pk := range pks {
		set[setKey(pk)] = struct{}{}
	}
	return set
}

func refs(objs []Identifiable) []Ref {
	out := make([]Ref, 0, len(objs))
	for _, o := range objs {
		out = append(out, Ref{PK: modelmeta.SafeKey(o.PrimaryKey()), Object: o.String()})
	}
	return out
}

// text prints a recorded value the way change messages show it; nil prints as Unresolved.
func text(v any) string {
	if isNil(v) {
		return Unresolved
	}
	return modelmeta.Stringify(v)
}

func display(obj Identifiable) string {
	if isNil(obj) {
		return Unresolved
	}
	return obj.String()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
