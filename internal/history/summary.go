package history

import (
	"fmt"

	"admin-history/internal/modelmeta"
)

type summaryObject struct {
	Name   string   `json:"name"`
	Object string   `json:"object"`
	Fields []string `json:"fields,omitempty"`
}

// Summary builds the native change summary of a submission: what was added or which fields
// changed on the main object, and one entry per added, changed or deleted inline object.
func Summary(form Form, add bool, formsets ...Formset) ([]any, error) {
	var summary []any

	switch {
	case add:
		summary = append(summary, map[string]any{"added": map[string]any{}})
	case form != nil && len(form.ChangedData()) > 0:
		labels, err := fieldLabels(form, form.ChangedData())
		if err != nil {
			return nil, err
		}
		summary = append(summary, map[string]any{"changed": map[string]any{"fields": labels}})
	}

	for _, fs := range formsets {
		for _, obj := range fs.NewObjects() {
			entry, err := summarize(obj, nil)
			if err != nil {
				return nil, err
			}
			summary = append(summary, map[string]any{"added": entry})
		}
		for _, co := range fs.ChangedObjects() {
			labels := co.Fields
			if forms := fs.InitialForms(); len(forms) > 0 {
				var err error
				if labels, err = fieldLabels(forms[0], co.Fields); err != nil {
					return nil, err
				}
			}
			entry, err := summarize(co.Object, labels)
			if err != nil {
				return nil, err
			}
			summary = append(summary, map[string]any{"changed": entry})
		}
		for _, obj := range fs.DeletedObjects() {
			entry, err := summarize(obj, nil)
			if err != nil {
				return nil, err
			}
			summary = append(summary, map[string]any{"deleted": entry})
		}
	}
	return summary, nil
}

func summarize(obj Identifiable, fields []string) (summaryObject, error) {
	name, err := modelmeta.ModelName(obj)
	if err != nil {
		return summaryObject{}, fmt.Errorf("history: %w", err)
	}
	return summaryObject{Name: name, Object: obj.String(), Fields: fields}, nil
}

func fieldLabels(form Form, names []string) ([]string, error) {
	labels := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := form.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		labels = append(labels, f.label())
	}
	return labels, nil
}
