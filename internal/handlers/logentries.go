package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admin-history/internal/database"
	"admin-history/internal/history"
	"admin-history/internal/logview"
	"admin-history/internal/middleware"
	"admin-history/internal/modelmeta"
	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// logQuery reads the list filters from the query string. Invalid values are ignored.
func logQuery(c *gin.Context) logview.Query {
	q := logview.Query{
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  logview.DefaultLimit,
	}
	if v, err := strconv.ParseUint(c.Query("user"), 10, 64); err == nil {
		uid := uint(v)
		q.UserID = &uid
	}
	if v, err := strconv.Atoi(c.Query("action")); err == nil {
		switch f := models.ActionFlag(v); f {
		case models.Addition, models.Change, models.Deletion:
			q.Action = f
		}
	}
	if t, err := time.Parse(dateLayout, c.Query("since")); err == nil {
		q.Since = t
	}
	if t, err := time.Parse(dateLayout, c.Query("until")); err == nil {
		// the whole "until" day is included
		q.Until = t.AddDate(0, 0, 1)
	}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 1 {
		q.Offset = (p - 1) * q.Limit
	}
	return q
}

func ListLogEntries(c *gin.Context) {
	user := middleware.CurrentUser(c)
	q := logQuery(c)

	var entries []models.LogEntry
	if err := logview.Filter(logview.Visible(db(c), user), q).Find(&entries).Error; err != nil {
		serverError(c, "failed to list log entries", err)
		return
	}

	var users []models.User
	if err := db(c).Where("is_staff = ? OR is_superuser = ?", true, true).Order("username asc").Find(&users).Error; err != nil {
		serverError(c, "failed to list users", err)
		return
	}

	render(c, http.StatusOK, "logentries_list.html", gin.H{
		"entries": entries,
		"users":   users,
		"query":   q,
		"params": gin.H{
			"user":   c.Query("user"),
			"action": c.Query("action"),
			"since":  c.Query("since"),
			"until":  c.Query("until"),
			"q":      q.Search,
		},
		"page":    q.Offset/q.Limit + 1,
		"hasNext": len(entries) == q.Limit,
	})
}

func ShowLogEntry(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var entry models.LogEntry
	err := db(c).Preload("ContentType").Preload("User").First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !logview.CanView(middleware.CurrentUser(c), entry.ContentTypeID)) {
		c.String(http.StatusNotFound, "log entry not found")
		return
	}
	if err != nil {
		serverError(c, "failed to load log entry", err)
		return
	}

	render(c, http.StatusOK, "logentries_detail.html", gin.H{
		"entry":   entry,
		"message": logview.Render(entry.ChangeMessage),
	})
}

// objectHistory renders the visible log entries about obj, oldest first.
func objectHistory(c *gin.Context, obj history.Identifiable, back string) {
	ct, err := database.ContentTypeFor(c.Request.Context(), db(c), obj)
	if err != nil {
		serverError(c, "failed to resolve content type", err)
		return
	}
	objectID := fmt.Sprint(modelmeta.SafeKey(obj.PrimaryKey()))

	var entries []models.LogEntry
	if err := logview.History(db(c), middleware.CurrentUser(c), ct.ID, objectID).Find(&entries).Error; err != nil {
		serverError(c, "failed to list object history", err)
		return
	}

	render(c, http.StatusOK, "object_history.html", gin.H{
		"object":  obj.String(),
		"entries": entries,
		"back":    back,
	})
}

// RejectLogEntryWrite answers every attempt to add, change or delete a log entry.
func RejectLogEntryWrite(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var allowed bool
	switch c.Request.Method {
	case http.MethodPost:
		if c.Param("id") == "" {
			allowed = logview.HasAddPermission(user)
		} else {
			allowed = logview.HasChangePermission(user)
		}
	case http.MethodDelete:
		allowed = logview.HasDeletePermission(user)
	}
	if !allowed {
		c.String(http.StatusForbidden, "log entries are read-only")
		return
	}
	c.Status(http.StatusMethodNotAllowed)
}
