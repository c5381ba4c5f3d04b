package middleware

import (
	"admin-history/internal/database"
	"admin-history/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const CurrentUserKey = "CurrentUser"

// InjectUser loads the session's user with its groups and permissions.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				err := database.DB.WithContext(c.Request.Context()).
					Preload("Permissions").
					Preload("Groups.Permissions").
					First(&user, uid).Error
				if err == nil {
					c.Set(CurrentUserKey, &user)
				} else {
					zap.L().Warn("session user not loaded", zap.Uint("user_id", uid), zap.Error(err))
				}
			}
		}

		c.Next()
	}
}
