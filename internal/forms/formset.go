package forms

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"admin-history/internal/history"
	"admin-history/internal/modelmeta"

	"gorm.io/gorm"
)

// Formset edits the child objects of one parent inline. Submitted values are named
// "<prefix>-<i>-<field>", with "<prefix>-TOTAL_FORMS" giving the number of forms and
// "<prefix>-<i>-DELETE" marking an existing object for deletion. The first len(existing)
// forms edit existing objects in order, the rest are extra forms for new objects.
//
// Formset implements history.Formset once saved.
type Formset struct {
	Prefix string
	// ParentField is the child column holding the parent's primary key, e.g. "book_id".
	ParentField string
	Forms       []*Form

	specs    []FieldSpec
	factory  func() history.Identifiable
	initial  []*Form
	deleting map[int]bool
	next     int

	added   []history.Identifiable
	changed []history.ChangedObject
	deleted []history.Identifiable
}

// NewFormset builds an inline formset over existing. factory returns a new zero child,
// as a pointer.
func NewFormset(prefix, parentField string, specs []FieldSpec, factory func() history.Identifiable, existing []history.Identifiable) (*Formset, error) {
	fs := &Formset{
		Prefix:      prefix,
		ParentField: parentField,
		specs:       specs,
		factory:     factory,
		deleting:    map[int]bool{},
	}
	for i, obj := range existing {
		f, err := New(specs, obj)
		if err != nil {
			return nil, err
		}
		f.Prefix = fs.formPrefix(i)
		fs.initial = append(fs.initial, f)
	}
	fs.Forms = append(fs.Forms, fs.initial...)
	fs.next = len(fs.initial)
	return fs, nil
}

func (fs *Formset) formPrefix(i int) string {
	return fs.Prefix + "-" + strconv.Itoa(i)
}

// Bind validates every submitted form. Extra forms left blank are ignored and existing
// objects marked for deletion are not validated.
func (fs *Formset) Bind(values url.Values) bool {
	total, err := strconv.Atoi(values.Get(fs.Prefix + "-TOTAL_FORMS"))
	if err != nil || total < len(fs.initial) {
		total = len(fs.initial)
	}

	fs.Forms = append([]*Form(nil), fs.initial...)
	fs.deleting = map[int]bool{}
	fs.next = total
	valid := true
	for i := 0; i < total; i++ {
		if i < len(fs.initial) {
			if values.Get(fs.formPrefix(i)+"-DELETE") != "" {
				fs.deleting[i] = true
				continue
			}
			if !fs.initial[i].Bind(values) {
				valid = false
			}
			continue
		}

		f, _ := New(fs.specs, nil)
		f.Prefix = fs.formPrefix(i)
		if !fs.submitted(f, values) {
			continue
		}
		if !f.Bind(values) {
			valid = false
		}
		fs.Forms = append(fs.Forms, f)
	}
	return valid
}

func (fs *Formset) submitted(f *Form, values url.Values) bool {
	for _, s := range fs.specs {
		for _, v := range values[f.name(s.Name)] {
			if strings.TrimSpace(v) != "" {
				return true
			}
		}
	}
	return false
}

// Save writes the bound formset inside tx: marked objects are deleted, changed objects are
// updated and extra forms are created under parentPK.
func (fs *Formset) Save(tx *gorm.DB, parentPK any) error {
	fs.added, fs.changed, fs.deleted = nil, nil, nil

	for i, f := range fs.initial {
		obj := f.Instance()
		if fs.deleting[i] {
			if err := tx.Delete(obj).Error; err != nil {
				return fmt.Errorf("forms: delete %s: %w", obj, err)
			}
			fs.deleted = append(fs.deleted, obj)
			continue
		}
		if len(f.ChangedData()) == 0 {
			continue
		}
		if err := f.Apply(obj); err != nil {
			return err
		}
		if err := tx.Save(obj).Error; err != nil {
			return fmt.Errorf("forms: update %s: %w", obj, err)
		}
		fs.changed = append(fs.changed, history.ChangedObject{Object: obj, Fields: f.ChangedData()})
	}

	for _, f := range fs.Forms[len(fs.initial):] {
		obj := fs.factory()
		if err := f.Apply(obj); err != nil {
			return err
		}
		if err := modelmeta.Set(obj, fs.ParentField, parentPK); err != nil {
			return err
		}
		if err := tx.Create(obj).Error; err != nil {
			return fmt.Errorf("forms: create %s: %w", obj, err)
		}
		f.instance = obj
		fs.added = append(fs.added, obj)
	}
	return nil
}

// Errors returns the validation errors of every form by form prefix.
func (fs *Formset) Errors() map[string]map[string]string {
	out := map[string]map[string]string{}
	for _, f := range fs.Forms {
		if len(f.Errors) > 0 {
			out[f.Prefix] = f.Errors
		}
	}
	return out
}

func (fs *Formset) FieldNames() []string {
	names := make([]string, 0, len(fs.specs))
	for _, s := range fs.specs {
		if !s.WriteOnly {
			names = append(names, s.Name)
		}
	}
	return names
}

func (fs *Formset) NewObjects() []history.Identifiable      { return fs.added }
func (fs *Formset) ChangedObjects() []history.ChangedObject { return fs.changed }
func (fs *Formset) DeletedObjects() []history.Identifiable  { return fs.deleted }

func (fs *Formset) InitialForms() []history.InlineForm {
	forms := make([]history.InlineForm, 0, len(fs.initial))
	for _, f := range fs.initial {
		forms = append(forms, f)
	}
	return forms
}

// Specs returns the declared fields, for templates.
func (fs *Formset) Specs() []FieldSpec { return fs.specs }

// Next is the index of the first unused form, where blank extra forms start.
func (fs *Formset) Next() int { return fs.next }
