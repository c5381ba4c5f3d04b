// Package logview presents admin log entries: which entries a user may see, how stored
// change messages are rendered and where each entry links to. Log entries are read only.
package logview

import (
	"strings"
	"time"

	"admin-history/internal/models"

	"gorm.io/gorm"
)

// Visible scopes the log entries query to what user may see. Superusers see everything;
// other users see entries whose content type carries a permission they hold directly or
// through a group. The change message column is left out of listings.
func Visible(db *gorm.DB, user *models.User) *gorm.DB {
	q := db.Model(&models.LogEntry{}).
		Omit("change_message").
		Preload("ContentType").
		Preload("User")
	return restrict(db, q, user)
}

// History lists the visible entries about one object, oldest first, change messages
// included.
func History(db *gorm.DB, user *models.User, contentTypeID uint, objectID string) *gorm.DB {
	q := db.Model(&models.LogEntry{}).
		Preload("User").
		Where("log_entries.content_type_id = ? AND log_entries.object_id = ?", contentTypeID, objectID)
	return restrict(db, q, user).Order("log_entries.action_time ASC")
}

func restrict(db, q *gorm.DB, user *models.User) *gorm.DB {
	if user.IsSuperuser {
		return q
	}

	direct := db.Table("permissions").
		Select("permissions.content_type_id").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", user.ID)
	viaGroup := db.Table("permissions").
		Select("permissions.content_type_id").
		Joins("JOIN group_permissions ON group_permissions.permission_id = permissions.id").
		Joins("JOIN user_groups ON user_groups.group_id = group_permissions.group_id").
		Where("user_groups.user_id = ?", user.ID)

	return q.Where("log_entries.content_type_id IN (?) OR log_entries.content_type_id IN (?)", direct, viaGroup)
}

// CanView applies the Visible rule to one content type, for a user loaded with its
// permissions and groups.
func CanView(user *models.User, contentTypeID *uint) bool {
	if user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	if contentTypeID == nil {
		return false
	}
	for _, p := range user.Permissions {
		if p.ContentTypeID == *contentTypeID {
			return true
		}
	}
	for _, g := range user.Groups {
		for _, p := range g.Permissions {
			if p.ContentTypeID == *contentTypeID {
				return true
			}
		}
	}
	return false
}

// Query is the list view's filter, search and paging state.
type Query struct {
	UserID *uint
	Action models.ActionFlag
	Since  time.Time
	Until  time.Time
	Search string
	Limit  int
	Offset int
}

// DefaultLimit is the page size when none is given.
const DefaultLimit = 100

// Filter narrows a Visible query. Search matches the object representation or the change
// message, ignoring case.
func Filter(q *gorm.DB, f Query) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("log_entries.user_id = ?", *f.UserID)
	}
	if f.Action != 0 {
		q = q.Where("log_entries.action_flag = ?", f.Action)
	}
	if !f.Since.IsZero() {
		q = q.Where("log_entries.action_time >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("log_entries.action_time < ?", f.Until)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + escapeLike(s) + "%"
		q = q.Where("log_entries.object_repr ILIKE ? OR log_entries.change_message ILIKE ?", like, like)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return q.Order("log_entries.action_time DESC").Limit(limit).Offset(f.Offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// Log entries are written by the admin itself and never through the log viewer.

func HasAddPermission(*models.User) bool    { return false }
func HasChangePermission(*models.User) bool { return false }
func HasDeletePermission(*models.User) bool { return false }
