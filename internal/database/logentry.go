package database

import (
	"context"
	"fmt"
	"time"

	"admin-history/internal/history"
	"admin-history/internal/metrics"
	"admin-history/internal/modelmeta"
	"admin-history/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LogAction records one admin action on obj. message is a serialized change message or
// free text.
func LogAction(ctx context.Context, db *gorm.DB, userID uint, obj history.Identifiable, repr string, flag models.ActionFlag, message string) (*models.LogEntry, error) {
	ct, err := ContentTypeFor(ctx, db, obj)
	if err != nil {
		return nil, err
	}
	entry := newEntry(userID, ct, obj, repr, flag, message)
	if err := db.WithContext(ctx).Omit("User", "ContentType").Create(entry).Error; err != nil {
		return nil, fmt.Errorf("log %s of %s: %w", flag, repr, err)
	}

	metrics.LogEntries.WithLabelValues(flag.String()).Inc()
	zap.L().Debug("admin action logged",
		zap.Uint("user_id", userID),
		zap.String("content_type", ct.String()),
		zap.String("object_id", entry.ObjectID),
		zap.Stringer("action", flag),
	)
	return entry, nil
}

// LogDeletion records the deletion of obj with a serialized snapshot of it. Call it
// before the row is deleted.
func LogDeletion(ctx context.Context, db *gorm.DB, userID uint, obj history.Identifiable) (*models.LogEntry, error) {
	snapshot, err := history.Serialize(obj)
	if err != nil {
		return nil, err
	}
	return LogAction(ctx, db, userID, obj, obj.String(), models.Deletion, snapshot)
}

// LogDeletions records the deletion of each of objs, one entry per object with its own
// snapshot. Call it before the rows are deleted.
func LogDeletions(ctx context.Context, db *gorm.DB, userID uint, objs ...history.Identifiable) ([]*models.LogEntry, error) {
	entries := make([]*models.LogEntry, 0, len(objs))
	for _, obj := range objs {
		entry, err := LogDeletion(ctx, db, userID, obj)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LogChange builds the change message of a form submission and records it. add marks
// the creation of obj.
func LogChange(ctx context.Context, db *gorm.DB, userID uint, obj history.Identifiable, form history.Form, add bool, formsets ...history.Formset) (*models.LogEntry, error) {
	summary, err := history.Summary(form, add, formsets...)
	if err != nil {
		return nil, err
	}
	msg, err := history.Build(summary, form, formsets...)
	if err != nil {
		return nil, err
	}
	text, err := msg.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode change message: %w", err)
	}

	flag := models.Change
	if add {
		flag = models.Addition
	}
	return LogAction(ctx, db, userID, obj, obj.String(), flag, text)
}

func newEntry(userID uint, ct *models.ContentType, obj history.Identifiable, repr string, flag models.ActionFlag, message string) *models.LogEntry {
	var objectID string
	if pk := obj.PrimaryKey(); pk != nil {
		objectID = fmt.Sprint(modelmeta.SafeKey(pk))
	}
	return &models.LogEntry{
		ActionTime:    time.Now(),
		UserID:        userID,
		ContentTypeID: &ct.ID,
		ContentType:   ct,
		ObjectID:      objectID,
		ObjectRepr:    truncate(repr, 200),
		ActionFlag:    flag,
		ChangeMessage: message,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
