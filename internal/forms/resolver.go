package forms

import (
	"errors"

	"admin-history/internal/history"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryResolver looks up models of type T by primary key.
type QueryResolver[T any, PT interface {
	*T
	history.Identifiable
}] struct {
	DB *gorm.DB
}

func (r QueryResolver[T, PT]) Resolve(pk any) (history.Identifiable, error) {
	var obj T
	err := r.DB.Where(clause.Eq{Column: clause.PrimaryColumn, Value: pk}).Take(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return PT(&obj), nil
}

func (r QueryResolver[T, PT]) ResolveMany(pks []any) ([]history.Identifiable, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	var objs []T
	if err := r.DB.Where(clause.IN{Column: clause.PrimaryColumn, Values: pks}).Find(&objs).Error; err != nil {
		return nil, err
	}
	out := make([]history.Identifiable, 0, len(objs))
	for i := range objs {
		out = append(out, PT(&objs[i]))
	}
	return out, nil
}

// Choices lists every T, for select inputs.
func (r QueryResolver[T, PT]) Choices() ([]history.Identifiable, error) {
	var objs []T
	if err := r.DB.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: clause.PrimaryKey}}).Find(&objs).Error; err != nil {
		return nil, err
	}
	out := make([]history.Identifiable, 0, len(objs))
	for i := range objs {
		out = append(out, PT(&objs[i]))
	}
	return out, nil
}
