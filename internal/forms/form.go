// Package forms binds submitted admin forms to gorm models. A bound form knows its initial
// values, its cleaned values and which fields changed, which is what change messages are
// built from.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"admin-history/internal/history"
	"admin-history/internal/modelmeta"

	"github.com/google/uuid"
)

var (
	errRequired = errors.New("field is required")
	errInteger  = errors.New("not a whole number")
	errChoice   = errors.New("not an available choice")
)

// errorText is what a form shows next to a field that failed validation.
func errorText(err error) string {
	switch {
	case errors.Is(err, errRequired):
		return "This field is required."
	case errors.Is(err, errInteger):
		return "Enter a whole number."
	case errors.Is(err, errChoice):
		return "Select a valid choice. That choice is not one of the available choices."
	}
	return err.Error()
}

type Kind int

const (
	Text Kind = iota
	Integer
	Boolean
	ForeignKey
	ManyToMany
)

// KeyFunc parses a submitted primary key.
type KeyFunc func(string) (any, error)

func UintKey(s string) (any, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return uint(n), nil
}

func UUIDKey(s string) (any, error) {
	return uuid.Parse(s)
}

// FieldSpec declares a form field.
type FieldSpec struct {
	Name  string
	Label string
	// Attr is the model field backing the form field, by column or Go name. Defaults to Name.
	Attr     string
	Kind     Kind
	Required bool
	// WriteOnly fields, such as passwords, are never part of cleaned data. They count as
	// changed whenever a value is submitted.
	WriteOnly bool
	Resolver  history.Resolver
	Key       KeyFunc
}

func (s FieldSpec) attr() string {
	if s.Attr != "" {
		return s.Attr
	}
	return s.Name
}

func (s FieldSpec) key() KeyFunc {
	if s.Key != nil {
		return s.Key
	}
	return UintKey
}

func (s FieldSpec) relational() bool {
	return s.Kind == ForeignKey || s.Kind == ManyToMany
}

// Form is a model form. It implements history.Form and history.InlineForm.
type Form struct {
	Prefix string
	Errors map[string]string

	specs    []FieldSpec
	instance history.Identifiable
	initial  map[string]any
	raw      url.Values
	cleaned  map[string]any
	changed  []string
}

// New builds a form over instance. A nil instance is an add form with no initial values.
func New(specs []FieldSpec, instance history.Identifiable) (*Form, error) {
	f := &Form{
		specs:    specs,
		instance: instance,
		initial:  map[string]any{},
		Errors:   map[string]string{},
	}
	if instance == nil {
		return f, nil
	}
	for _, s := range specs {
		if s.WriteOnly {
			continue
		}
		v, err := modelmeta.Value(instance, s.attr())
		if err != nil {
			return nil, fmt.Errorf("forms: initial %s: %w", s.Name, err)
		}
		f.initial[s.Name] = initialValue(s, v)
	}
	return f, nil
}

func initialValue(s FieldSpec, v any) any {
	if s.Kind == ManyToMany {
		return identifiables(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

// identifiables copies a loaded association ([]T or []*T) into references, so later
// writes to the association do not reach the initial values.
func identifiables(v any) []history.Identifiable {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]history.Identifiable, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		if elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		cp := reflect.New(elem.Type())
		cp.Elem().Set(elem)
		elem = cp
		if obj, ok := elem.Interface().(history.Identifiable); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (f *Form) name(field string) string {
	if f.Prefix == "" {
		return field
	}
	return f.Prefix + "-" + field
}

// Bind validates submitted values. It reports whether the form is valid; cleaned data and
// changed fields are available either way for the fields that did validate.
func (f *Form) Bind(values url.Values) bool {
	f.raw = values
	f.cleaned = map[string]any{}
	f.changed = nil
	f.Errors = map[string]string{}

	for _, s := range f.specs {
		raw := values[f.name(s.Name)]
		if s.WriteOnly {
			if strings.TrimSpace(first(raw)) != "" {
				f.changed = append(f.changed, s.Name)
			} else if s.Required && f.instance == nil {
				f.Errors[s.Name] = errorText(errRequired)
			}
			continue
		}

		v, err := f.clean(s, raw)
		if err != nil {
			f.Errors[s.Name] = errorText(err)
			continue
		}
		f.cleaned[s.Name] = v
		if hasChanged(s, f.initial[s.Name], v) {
			f.changed = append(f.changed, s.Name)
		}
	}
	return len(f.Errors) == 0
}

func (f *Form) clean(s FieldSpec, raw []string) (any, error) {
	value := strings.TrimSpace(first(raw))

	switch s.Kind {
	case Text:
		if value == "" && s.Required {
			return nil, errRequired
		}
		return value, nil
	case Integer:
		if value == "" {
			if s.Required {
				return nil, errRequired
			}
			return 0, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, errInteger
		}
		return n, nil
	case Boolean:
		return value == "on" || value == "true" || value == "1", nil
	case ForeignKey:
		if value == "" {
			if s.Required {
				return nil, errRequired
			}
			return history.Identifiable(nil), nil
		}
		pk, err := s.key()(value)
		if err != nil {
			return nil, errChoice
		}
		obj, err := s.Resolver.Resolve(pk)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, errChoice
		}
		return obj, nil
	case ManyToMany:
		pks := make([]any, 0, len(raw))
		for _, r := range raw {
			if strings.TrimSpace(r) == "" {
				continue
			}
			pk, err := s.key()(strings.TrimSpace(r))
			if err != nil {
				return nil, fmt.Errorf("%w: %q", errChoice, r)
			}
			pks = append(pks, pk)
		}
		if len(pks) == 0 {
			if s.Required {
				return nil, errRequired
			}
			return history.QuerySet{}, nil
		}
		objs, err := s.Resolver.ResolveMany(pks)
		if err != nil {
			return nil, err
		}
		if len(objs) != len(uniqueKeys(pks)) {
			return nil, errChoice
		}
		return history.QuerySet(objs), nil
	}
	return nil, fmt.Errorf("forms: field %q has unknown kind %d", s.Name, s.Kind)
}

func hasChanged(s FieldSpec, initial, cleaned any) bool {
	switch s.Kind {
	case ForeignKey:
		var cur string
		if obj, ok := cleaned.(history.Identifiable); ok && obj != nil {
			cur = keyString(obj.PrimaryKey())
		}
		if initial == nil {
			return cur != ""
		}
		return keyString(initial) != cur
	case ManyToMany:
		before := map[string]struct{}{}
		if objs, ok := initial.([]history.Identifiable); ok {
			for _, o := range objs {
				before[keyString(o.PrimaryKey())] = struct{}{}
			}
		}
		qs, _ := cleaned.(history.QuerySet)
		if len(qs) != len(before) {
			return true
		}
		for _, o := range qs {
			if _, ok := before[keyString(o.PrimaryKey())]; !ok {
				return true
			}
		}
		return false
	case Integer:
		if initial == nil {
			return cleaned != 0
		}
	case Boolean:
		if initial == nil {
			return cleaned == true
		}
	}
	return modelmeta.Stringify(initial) != modelmeta.Stringify(cleaned)
}

func keyString(pk any) string {
	return fmt.Sprint(modelmeta.SafeKey(pk))
}

func uniqueKeys(pks []any) map[string]struct{} {
	set := make(map[string]struct{}, len(pks))
	for _, pk := range pks {
		set[keyString(pk)] = struct{}{}
	}
	return set
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Raw returns the submitted value of a field, including write-only fields.
func (f *Form) Raw(name string) string {
	return first(f.raw[f.name(name)])
}

// Apply copies cleaned scalar and foreign key values onto obj. Write-only and many-to-many
// fields are left to the caller.
func (f *Form) Apply(obj any) error {
	for _, s := range f.specs {
		if s.WriteOnly || s.Kind == ManyToMany {
			continue
		}
		v, ok := f.cleaned[s.Name]
		if !ok {
			continue
		}
		if s.Kind == ForeignKey {
			if ref, ok := v.(history.Identifiable); ok && ref != nil {
				v = ref.PrimaryKey()
			} else {
				v = nil
			}
		}
		if err := modelmeta.Set(obj, s.attr(), v); err != nil {
			return fmt.Errorf("forms: apply %s: %w", s.Name, err)
		}
	}
	return nil
}

func (f *Form) ChangedData() []string       { return f.changed }
func (f *Form) Initial() map[string]any     { return f.initial }
func (f *Form) CleanedData() map[string]any { return f.cleaned }
func (f *Form) Instance() history.Identifiable {
	return f.instance
}

func (f *Form) Field(name string) (history.Field, bool) {
	for _, s := range f.specs {
		if s.Name != name {
			continue
		}
		field := history.Field{Name: s.Name, Label: s.Label}
		if s.relational() {
			field.Resolver = s.Resolver
		}
		return field, true
	}
	return history.Field{}, false
}

// Specs returns the declared fields, for templates.
func (f *Form) Specs() []FieldSpec { return f.specs }

// Value is the text shown in a field's input: the submitted value once bound, otherwise
// the initial value.
func (f *Form) Value(name string) string {
	if f.raw != nil {
		return f.Raw(name)
	}
	v := f.initial[name]
	if v == nil {
		return ""
	}
	if _, ok := v.([]history.Identifiable); ok {
		return ""
	}
	return modelmeta.Stringify(v)
}

// Selected reports the chosen keys of a relational field, for select inputs.
func (f *Form) Selected(name string) map[string]bool {
	out := map[string]bool{}
	if f.raw != nil {
		for _, v := range f.raw[f.name(name)] {
			out[strings.TrimSpace(v)] = true
		}
		return out
	}
	switch v := f.initial[name].(type) {
	case nil:
	case []history.Identifiable:
		for _, o := range v {
			out[keyString(o.PrimaryKey())] = true
		}
	default:
		out[keyString(v)] = true
	}
	return out
}

// Checked reports whether a boolean field is on.
func (f *Form) Checked(name string) bool {
	if f.raw != nil {
		v := f.Raw(name)
		return v == "on" || v == "true" || v == "1"
	}
	b, _ := f.initial[name].(bool)
	return b
}
