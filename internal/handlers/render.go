package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"admin-history/internal/database"
	"admin-history/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// render wraps c.HTML and passes the current user to every template.
func render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	if u := middleware.CurrentUser(c); u != nil {
		data["CurrentUser"] = u
		data["CurrentUsername"] = u.Username
	}

	c.HTML(status, tmpl, data)
}

// serverError logs err and answers 500.
func serverError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	zap.L().Error(msg,
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.String(http.StatusInternalServerError, "internal error")
}

// db is the shared pool bound to the request context.
func db(c *gin.Context) *gorm.DB {
	return database.DB.WithContext(c.Request.Context())
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.String(http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func postValues(c *gin.Context) bool {
	if err := c.Request.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.String(http.StatusBadRequest, "invalid form")
		return false
	}
	return true
}
