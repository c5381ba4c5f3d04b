package forms_test

import (
	"net/url"
	"testing"

	"admin-history/internal/forms"
	"admin-history/internal/history"
	"admin-history/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var editionSpecs = []forms.FieldSpec{
	{Name: "label", Label: "Label", Kind: forms.Text, Required: true},
	{Name: "year", Label: "Year", Kind: forms.Integer},
}

func newEditions(t *testing.T) *forms.Formset {
	t.Helper()

	existing := []history.Identifiable{
		&models.Edition{ID: 1, BookID: 5, Label: "First", Year: 1999},
		&models.Edition{ID: 2, BookID: 5, Label: "Second", Year: 2001},
	}
	fs, err := forms.NewFormset("editions", "book_id", editionSpecs, func() history.Identifiable { return &models.Edition{} }, existing)
	if err != nil {
		t.Fatalf("NewFormset() error = %v", err)
	}
	return fs
}

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=admin dbname=admin sslmode=disable"}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return db
}

func TestFormsetBind(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name   string
		values url.Values
		valid  bool
		forms  int
		next   int
	}{
		{
			name:   "no management data",
			values: url.Values{"editions-0-label": {"First"}, "editions-1-label": {"Second"}},
			valid:  true,
			forms:  2,
			next:   2,
		},
		{
			name: "blank extra forms are ignored",
			values: url.Values{
				"editions-TOTAL_FORMS": {"4"},
				"editions-0-label":     {"First"},
				"editions-1-label":     {"Second"},
				"editions-2-label":     {""},
				"editions-3-label":     {"Fourth"},
			},
			valid: true,
			forms: 3,
			next:  4,
		},
		{
			name: "invalid extra form",
			values: url.Values{
				"editions-TOTAL_FORMS": {"3"},
				"editions-0-label":     {"First"},
				"editions-1-label":     {"Second"},
				"editions-2-year":      {"2020"},
			},
			valid: false,
			forms: 3,
			next:  3,
		},
		{
			name: "deleted forms skip validation",
			values: url.Values{
				"editions-TOTAL_FORMS": {"2"},
				"editions-0-label":     {"First"},
				"editions-1-DELETE":    {"on"},
			},
			valid: true,
			forms: 2,
			next:  2,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := newEditions(t)
			if got := fs.Bind(tc.values); got != tc.valid {
				t.Fatalf("Bind() = %v, want %v (errors %v)", got, tc.valid, fs.Errors())
			}
			if len(fs.Forms) != tc.forms {
				t.Fatalf("len(Forms) = %d, want %d", len(fs.Forms), tc.forms)
			}
			if fs.Next() != tc.next {
				t.Fatalf("Next() = %d, want %d", fs.Next(), tc.next)
			}
		})
	}
}

func TestFormsetSaveBuildsRelatedBlocks(t *testing.T) {
	t.Parallel()

	fs := newEditions(t)
	values := url.Values{
		"editions-TOTAL_FORMS": {"3"},
		"editions-0-label":     {"1st ed"},
		"editions-0-year":      {"1999"},
		"editions-1-label":     {"Second"},
		"editions-1-year":      {"2001"},
		"editions-1-DELETE":    {"on"},
		"editions-2-label":     {"Third"},
		"editions-2-year":      {"2010"},
	}
	if !fs.Bind(values) {
		t.Fatalf("Bind() errors = %v", fs.Errors())
	}
	if err := fs.Save(dryRun(t), uint(5)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if n := len(fs.NewObjects()); n != 1 {
		t.Fatalf("NewObjects() has %d objects, want 1", n)
	}
	if ed := fs.NewObjects()[0].(*models.Edition); ed.BookID != 5 || ed.Label != "Third" || ed.Year != 2010 {
		t.Fatalf("new edition = %+v", ed)
	}

	summary, err := history.Summary(nil, false, fs)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	msg, err := history.Build(summary, nil, fs)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	assertMessage(t, msg, `[
		{"added": {"name": "edition", "object": "Third"}},
		{"changed": {"name": "edition", "object": "1st ed", "fields": ["Label"]}},
		{"deleted": {"name": "edition", "object": "Second"}},
		{"added related": [{"edition": "Third", "fields": [{"label": {"new": "Third"}}, {"year": {"new": "2010"}}]}]},
		{"changed related": [[{"edition": "1st ed", "fields": [{"label": {"old": "First", "new": "1st ed"}}]}]]},
		{"deleted related": [[{"edition": "Second", "fields": [
			{"book_id": {"old": "5"}}, {"label": {"old": "Second"}}, {"year": {"old": "2001"}}, {"scan": {"old": "None"}}
		]}]]}
	]`)
}
