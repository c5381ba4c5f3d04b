package logview_test

import (
	"errors"
	"html/template"
	"testing"

	"admin-history/internal/logview"
	"admin-history/internal/models"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLinker() *logview.Linker {
	r := gin.New()
	noop := func(*gin.Context) {}
	r.GET("/catalog/books/:id/edit", noop)
	r.POST("/catalog/publishers/:id/edit", noop)
	return logview.NewLinker(r)
}

func TestLink(t *testing.T) {
	t.Parallel()

	linker := newLinker()
	books := &models.ContentType{ID: 1, AppLabel: "catalog", Model: "book"}
	publishers := &models.ContentType{ID: 2, AppLabel: "catalog", Model: "publisher"}

	tcs := []struct {
		name  string
		entry *models.LogEntry
		want  template.HTML
	}{
		{
			name:  "registered route",
			entry: &models.LogEntry{ContentType: books, ObjectID: "12", ObjectRepr: "Dune"},
			want:  `<a href="/catalog/books/12/edit">Dune</a>`,
		},
		{
			name:  "representation is escaped",
			entry: &models.LogEntry{ContentType: books, ObjectID: "3", ObjectRepr: "<i>Emma</i>"},
			want:  `<a href="/catalog/books/3/edit">&lt;i&gt;Emma&lt;/i&gt;</a>`,
		},
		{
			name:  "no GET route",
			entry: &models.LogEntry{ContentType: publishers, ObjectID: "1", ObjectRepr: "Orbit"},
			want:  `Orbit`,
		},
		{
			name:  "no object id",
			entry: &models.LogEntry{ContentType: books, ObjectRepr: "Dune"},
			want:  `Dune`,
		},
		{
			name:  "no content type",
			entry: &models.LogEntry{ObjectID: "12", ObjectRepr: "Dune"},
			want:  `Dune`,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := linker.Link(tc.entry); got != tc.want {
				t.Fatalf("Link() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEditURLReportsMissingRoute(t *testing.T) {
	t.Parallel()

	entry := &models.LogEntry{
		ContentType: &models.ContentType{AppLabel: "auth", Model: "group"},
		ObjectID:    "4",
	}
	if _, err := newLinker().EditURL(entry); !errors.Is(err, logview.ErrNoRoute) {
		t.Fatalf("EditURL() error = %v, want ErrNoRoute", err)
	}
}
