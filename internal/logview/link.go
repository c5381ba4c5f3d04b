package logview

import (
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"strings"

	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/inflection"
)

// ErrNoRoute is returned when no edit page is registered for a content type.
var ErrNoRoute = errors.New("logview: no edit route")

// Linker links log entries to the edit pages of the objects they describe. Edit pages
// follow "/<app_label>/<plural model>/:id/edit".
type Linker struct {
	routes map[string]struct{}
}

// NewLinker records the GET routes registered on engine. Call it after every admin
// route is registered.
func NewLinker(engine *gin.Engine) *Linker {
	l := &Linker{routes: map[string]struct{}{}}
	for _, r := range engine.Routes() {
		if r.Method == "GET" {
			l.routes[r.Path] = struct{}{}
		}
	}
	return l
}

func editPattern(ct *models.ContentType) string {
	return "/" + ct.AppLabel + "/" + inflection.Plural(ct.Model) + "/:id/edit"
}

// EditURL is the edit page of the object an entry describes.
func (l *Linker) EditURL(entry *models.LogEntry) (string, error) {
	if entry.ContentType == nil || entry.ObjectID == "" {
		return "", ErrNoRoute
	}
	pattern := editPattern(entry.ContentType)
	if _, ok := l.routes[pattern]; !ok {
		return "", fmt.Errorf("%w for %s", ErrNoRoute, entry.ContentType)
	}
	return strings.Replace(pattern, ":id", url.PathEscape(entry.ObjectID), 1), nil
}

// Link renders the entry's object representation, as a link when the object has an edit
// page.
func (l *Linker) Link(entry *models.LogEntry) template.HTML {
	repr := html.EscapeString(entry.ObjectRepr)
	href, err := l.EditURL(entry)
	if err != nil {
		return template.HTML(repr)
	}
	return template.HTML(`<a href="` + html.EscapeString(href) + `">` + repr + `</a>`)
}
