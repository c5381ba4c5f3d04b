package logview_test

import (
	"strings"
	"testing"
	"time"

	"admin-history/internal/logview"
	"admin-history/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dryRun(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=admin dbname=admin sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Discard,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	return db
}

func listSQL(db *gorm.DB, user *models.User, q logview.Query) string {
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var entries []models.LogEntry
		return logview.Filter(logview.Visible(tx, user), q).Find(&entries)
	})
}

func TestVisibleSQL(t *testing.T) {
	t.Parallel()

	db := dryRun(t)

	tcs := []struct {
		name    string
		user    *models.User
		want    []string
		notWant []string
	}{
		{
			name:    "superuser",
			user:    &models.User{Model: gorm.Model{ID: 1}, IsSuperuser: true},
			want:    []string{`FROM "log_entries"`, `ORDER BY log_entries.action_time DESC`, `LIMIT 100`},
			notWant: []string{"user_permissions", "change_message"},
		},
		{
			name: "staff member",
			user: &models.User{Model: gorm.Model{ID: 7}, IsStaff: true},
			want: []string{
				"JOIN user_permissions ON user_permissions.permission_id = permissions.id",
				"user_permissions.user_id = 7",
				"JOIN user_groups ON user_groups.group_id = group_permissions.group_id",
				"user_groups.user_id = 7",
			},
			notWant: []string{"change_message"},
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sql := listSQL(db, tc.user, logview.Query{})
			for _, w := range tc.want {
				if !strings.Contains(sql, w) {
					t.Errorf("SQL missing %q:\n%s", w, sql)
				}
			}
			for _, nw := range tc.notWant {
				if strings.Contains(sql, nw) {
					t.Errorf("SQL contains %q:\n%s", nw, sql)
				}
			}
		})
	}
}

func TestFilterSQL(t *testing.T) {
	t.Parallel()

	uid := uint(3)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sql := listSQL(dryRun(t), &models.User{IsSuperuser: true}, logview.Query{
		UserID: &uid,
		Action: models.Deletion,
		Since:  since,
		Search: "50%",
		Limit:  20,
		Offset: 40,
	})

	for _, w := range []string{
		"log_entries.user_id = 3",
		"log_entries.action_flag = 3",
		"log_entries.action_time >=",
		`log_entries.object_repr ILIKE '%50\%%'`,
		"log_entries.change_message ILIKE",
		"LIMIT 20 OFFSET 40",
	} {
		if !strings.Contains(sql, w) {
			t.Errorf("SQL missing %q:\n%s", w, sql)
		}
	}
}

func TestHistorySQL(t *testing.T) {
	t.Parallel()

	db := dryRun(t)
	staff := &models.User{Model: gorm.Model{ID: 7}, IsStaff: true}
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var entries []models.LogEntry
		return logview.History(tx, staff, 4, "12").Find(&entries)
	})

	for _, w := range []string{
		`SELECT * FROM "log_entries"`,
		"log_entries.content_type_id = 4 AND log_entries.object_id = '12'",
		"user_permissions.user_id = 7",
		"user_groups.user_id = 7",
		"ORDER BY log_entries.action_time ASC",
	} {
		if !strings.Contains(sql, w) {
			t.Errorf("SQL missing %q:\n%s", w, sql)
		}
	}
	if strings.Contains(sql, "LIMIT") {
		t.Errorf("object history is not paged:\n%s", sql)
	}
}

func TestCanView(t *testing.T) {
	t.Parallel()

	books, publishers := uint(1), uint(2)
	bookPerm := models.Permission{Codename: "view_book", ContentTypeID: books}

	tcs := []struct {
		name string
		user *models.User
		ct   *uint
		want bool
	}{
		{name: "direct permission", user: &models.User{Permissions: []models.Permission{bookPerm}}, ct: &books, want: true},
		{name: "other content type", user: &models.User{Permissions: []models.Permission{bookPerm}}, ct: &publishers, want: false},
		{
			name: "group permission",
			user: &models.User{Groups: []models.Group{{Name: "editors", Permissions: []models.Permission{bookPerm}}}},
			ct:   &books,
			want: true,
		},
		{name: "superuser", user: &models.User{IsSuperuser: true}, ct: &publishers, want: true},
		{name: "superuser without content type", user: &models.User{IsSuperuser: true}, ct: nil, want: true},
		{name: "no content type", user: &models.User{Permissions: []models.Permission{bookPerm}}, ct: nil, want: false},
		{name: "anonymous", user: nil, ct: &books, want: false},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := logview.CanView(tc.user, tc.ct); got != tc.want {
				t.Fatalf("CanView() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLogEntriesAreReadOnly(t *testing.T) {
	t.Parallel()

	admin := &models.User{IsSuperuser: true}
	if logview.HasAddPermission(admin) || logview.HasChangePermission(admin) || logview.HasDeletePermission(admin) {
		t.Fatal("log entries must not be writable, even by superusers")
	}
}
