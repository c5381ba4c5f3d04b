package handlers

import (
	"net/http"

	"admin-history/internal/database"
	"admin-history/internal/middleware"
	"admin-history/internal/modelmeta"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/inflection"
)

// models with a list page
var listPages = map[string]bool{
	"catalog.book":      true,
	"catalog.publisher": true,
	"auth.user":         true,
}

type section struct {
	AppLabel string
	Name     string
	URL      string
}

// IndexPage lists the admin sections the current user can view.
func IndexPage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var sections []section
	for _, obj := range database.Registered {
		model, err := modelmeta.ModelName(obj)
		if err != nil {
			serverError(c, "failed to describe model", err)
			return
		}
		if !user.HasPerm("view_"+model) && !user.HasPerm("change_"+model) {
			continue
		}
		plural := inflection.Plural(model)
		s := section{AppLabel: obj.AppLabel(), Name: plural}
		if listPages[obj.AppLabel()+"."+model] {
			s.URL = "/" + obj.AppLabel() + "/" + plural
		}
		sections = append(sections, s)
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"sections": sections,
	})
}
