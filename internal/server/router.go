package server

import (
	"html/template"
	"net/http"

	"admin-history/internal/config"
	"admin-history/internal/handlers"
	"admin-history/internal/logview"
	"admin-history/internal/middleware"
	"admin-history/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// set once every route is registered
	var linker *logview.Linker

	r.SetFuncMap(template.FuncMap{
		"renderMessage": logview.Render,
		"objectLink": func(e models.LogEntry) template.HTML {
			if linker == nil {
				return template.HTML(template.HTMLEscapeString(e.ObjectRepr))
			}
			return linker.Link(&e)
		},
		"add": func(a, b int) int { return a + b },
	})
	r.LoadHTMLGlob(cfg.TemplatesGlob)

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode, MaxAge: 8 * 3600})
	r.Use(sessions.Sessions("admin_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.GET("/login", handlers.ShowLogin)
	r.POST("/login", handlers.Login)
	r.GET("/logout", handlers.Logout)

	admin := r.Group("/")
	admin.Use(middleware.RequireAuth(), middleware.RequireStaff())

	admin.GET("/", handlers.IndexPage)

	// CATALOG
	admin.GET("/catalog/books",
		middleware.RequirePermission("view_book", "change_book"),
		handlers.ListBooks,
	)
	admin.GET("/catalog/books/new", middleware.RequirePermission("add_book"), handlers.ShowNewBook)
	admin.POST("/catalog/books/new", middleware.RequirePermission("add_book"), handlers.CreateBook)
	admin.GET("/catalog/books/:id/edit", middleware.RequirePermission("change_book"), handlers.ShowEditBook)
	admin.POST("/catalog/books/:id/edit", middleware.RequirePermission("change_book"), handlers.UpdateBook)
	admin.GET("/catalog/books/:id/history", middleware.RequirePermission("view_book", "change_book"), handlers.ShowBookHistory)
	admin.POST("/catalog/books/:id/delete", middleware.RequirePermission("delete_book"), handlers.DeleteBook)
	admin.POST("/catalog/books/delete", middleware.RequirePermission("delete_book"), handlers.DeleteBooks)

	admin.GET("/catalog/publishers",
		middleware.RequirePermission("view_publisher", "change_publisher"),
		handlers.ListPublishers,
	)
	admin.GET("/catalog/publishers/new", middleware.RequirePermission("add_publisher"), handlers.ShowNewPublisher)
	admin.POST("/catalog/publishers/new", middleware.RequirePermission("add_publisher"), handlers.CreatePublisher)
	admin.GET("/catalog/publishers/:id/edit", middleware.RequirePermission("change_publisher"), handlers.ShowEditPublisher)
	admin.POST("/catalog/publishers/:id/edit", middleware.RequirePermission("change_publisher"), handlers.UpdatePublisher)

	// USERS
	admin.GET("/auth/users", middleware.RequirePermission("view_user", "change_user"), handlers.ListUsers)
	admin.GET("/auth/users/:id/edit", middleware.RequirePermission("change_user"), handlers.ShowEditUser)
	admin.POST("/auth/users/:id/edit", middleware.RequirePermission("change_user"), handlers.UpdateUser)

	// HISTORY, read only
	admin.GET("/admin/logentries", handlers.ListLogEntries)
	admin.GET("/admin/logentries/:id", handlers.ShowLogEntry)
	admin.POST("/admin/logentries", handlers.RejectLogEntryWrite)
	admin.POST("/admin/logentries/:id", handlers.RejectLogEntryWrite)
	admin.DELETE("/admin/logentries/:id", handlers.RejectLogEntryWrite)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	linker = logview.NewLinker(r)
	return r
}
