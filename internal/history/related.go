package history

import (
	"encoding/base64"
	"fmt"

	"admin-history/internal/modelmeta"
)

// ChangedObject is an inline object that was modified, with the names of its changed fields.
type ChangedObject struct {
	Object Identifiable
	Fields []string
}

// InlineForm is a sub-form of a formset, bound to the object it edits.
type InlineForm interface {
	Form
	Instance() Identifiable
}

// Formset is a validated batch of inline forms. Objects are gorm models.
type Formset interface {
	// FieldNames lists the fields declared on the formset's form.
	FieldNames() []string
	NewObjects() []Identifiable
	ChangedObjects() []ChangedObject
	DeletedObjects() []Identifiable
	InitialForms() []InlineForm
}

func buildRelated(fs Formset) ([]any, error) {
	var blocks []any

	if added := fs.NewObjects(); len(added) > 0 {
		snapshots := make([]RelatedObject, 0, len(added))
		for _, obj := range added {
			snap, err := addedSnapshot(obj, fs.FieldNames())
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, snap)
		}
		blocks = append(blocks, block(AddedRelatedKey, snapshots))
	}

	changed := fs.ChangedObjects()
	deleted := fs.DeletedObjects()
	if len(changed) == 0 && len(deleted) == 0 {
		return blocks, nil
	}

	forms, err := indexForms(fs.InitialForms())
	if err != nil {
		return nil, err
	}

	var changedGroups [][]RelatedObject
	for _, co := range changed {
		key, err := objectKey(co.Object)
		if err != nil {
			return nil, err
		}
		form, ok := forms[key]
		if !ok {
			continue
		}
		snap, err := changedSnapshot(co, form)
		if err != nil {
			return nil, err
		}
		changedGroups = append(changedGroups, []RelatedObject{snap})
	}
	if len(changedGroups) > 0 {
		blocks = append(blocks, block(ChangedRelatedKey, changedGroups))
	}

	var deletedGroups [][]RelatedObject
	for _, obj := range deleted {
		key, err := objectKey(obj)
		if err != nil {
			return nil, err
		}
		if _, ok := forms[key]; !ok {
			continue
		}
		snap, err := deletedSnapshot(obj)
		if err != nil {
			return nil, err
		}
		deletedGroups = append(deletedGroups, []RelatedObject{snap})
	}
	if len(deletedGroups) > 0 {
		blocks = append(blocks, block(DeletedRelatedKey, deletedGroups))
	}

	return blocks, nil
}

// indexForms maps each initial form to the identity of the object it edits.
func indexForms(forms []InlineForm) (map[string]InlineForm, error) {
	idx := make(map[string]InlineForm, len(forms))
	for _, f := range forms {
		inst := f.Instance()
		if isNil(inst) {
			continue
		}
		key, err := objectKey(inst)
		if err != nil {
			return nil, err
		}
		idx[key] = f
	}
	return idx, nil
}

// objectKey identifies an object by model and primary key, the way two loaded copies of the
// same row compare equal.
func objectKey(obj Identifiable) (string, error) {
	label, err := modelmeta.Label(obj)
	if err != nil {
		return "", fmt.Errorf("history: %w", err)
	}
	return label + ":" + setKey(obj.PrimaryKey()), nil
}

func addedSnapshot(obj Identifiable, fields []string) (RelatedObject, error) {
	model, err := modelmeta.ModelName(obj)
	if err != nil {
		return RelatedObject{}, fmt.Errorf("history: %w", err)
	}
	snap := RelatedObject{Model: model, Repr: obj.String(), Fields: make([]RelatedField, 0, len(fields))}
	for _, name := range fields {
		v, err := modelmeta.FieldString(obj, name)
		if err != nil {
			return RelatedObject{}, fmt.Errorf("history: %w", err)
		}
		snap.Fields = append(snap.Fields, RelatedField{Name: name, New: &v})
	}
	return snap, nil
}

func changedSnapshot(co ChangedObject, form InlineForm) (RelatedObject, error) {
	model, err := modelmeta.ModelName(co.Object)
	if err != nil {
		return RelatedObject{}, fmt.Errorf("history: %w", err)
	}
	initial := form.Initial()
	cleaned := form.CleanedData()

	snap := RelatedObject{Model: model, Repr: co.Object.String(), Fields: make([]RelatedField, 0, len(co.Fields))}
	for _, name := range co.Fields {
		field, ok := form.Field(name)
		if !ok {
			return RelatedObject{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, model, name)
		}

		prev := initial[name]
		var old string
		if !isNil(prev) && field.relational() {
			obj, err := field.Resolver.Resolve(prev)
			if err != nil {
				return RelatedObject{}, fmt.Errorf("history: %s.%s: %w", model, name, err)
			}
			old = display(obj)
		} else {
			old = text(prev)
		}
		cur := text(cleaned[name])

		snap.Fields = append(snap.Fields, RelatedField{Name: name, Old: &old, New: &cur})
	}
	return snap, nil
}

func deletedSnapshot(obj Identifiable) (RelatedObject, error) {
	model, err := modelmeta.ModelName(obj)
	if err != nil {
		return RelatedObject{}, fmt.Errorf("history: %w", err)
	}
	cols, err := modelmeta.Columns(obj)
	if err != nil {
		return RelatedObject{}, fmt.Errorf("history: %w", err)
	}

	snap := RelatedObject{Model: model, Repr: obj.String(), Fields: make([]RelatedField, 0, len(cols))}
	for _, col := range cols {
		if col.AutoIncrement {
			continue
		}
		v, err := modelmeta.Value(obj, col.Name)
		if err != nil {
			return RelatedObject{}, fmt.Errorf("history: %w", err)
		}
		var old string
		if b, ok := v.([]byte); ok && col.Binary && b != nil {
			old = base64.StdEncoding.EncodeToString(b)
		} else {
			old = text(v)
		}
		snap.Fields = append(snap.Fields, RelatedField{Name: col.Name, Old: &old})
	}
	return snap, nil
}
