package modelmeta_test

import (
	"testing"
	"time"

	"admin-history/internal/modelmeta"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Shelf struct {
	ID       uint
	Name     string
	Capacity *int
	Photo    []byte
}

func (*Shelf) AppLabel() string { return "library" }

type Token struct {
	Key   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Owner string
}

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestColumns(t *testing.T) {
	t.Parallel()

	cols, err := modelmeta.Columns(&Shelf{})
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	want := []modelmeta.Column{
		{Name: "id", PrimaryKey: true, AutoIncrement: true},
		{Name: "name"},
		{Name: "capacity"},
		{Name: "photo", Binary: true},
	}
	if len(cols) != len(want) {
		t.Fatalf("Columns() = %#v, want %#v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("Columns()[%d] = %#v, want %#v", i, cols[i], want[i])
		}
	}

	cols, err = modelmeta.Columns(&Token{})
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if cols[0].AutoIncrement {
		t.Fatalf("uuid key reported as auto increment")
	}
}

func TestLabelAndPrimaryKey(t *testing.T) {
	t.Parallel()

	label, err := modelmeta.Label(&Shelf{})
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if label != "library.shelf" {
		t.Fatalf("Label() = %q, want library.shelf", label)
	}
	if got, _ := modelmeta.Label(&Token{}); got != "main.token" {
		t.Fatalf("Label() = %q, want main.token", got)
	}

	key := uuid.MustParse("5b6d0b8e-0d5f-4a53-8c5f-3e0f1c2d3b4a")
	pk, err := modelmeta.PrimaryKey(&Token{Key: key})
	if err != nil {
		t.Fatalf("PrimaryKey() error = %v", err)
	}
	if pk != key {
		t.Fatalf("PrimaryKey() = %v, want %v", pk, key)
	}

	if _, err := modelmeta.Label(nil); err == nil {
		t.Fatal("Label(nil) error = nil")
	}
}

func TestSetAndFieldString(t *testing.T) {
	t.Parallel()

	s := &Shelf{ID: 1}
	if err := modelmeta.Set(s, "name", "Fiction"); err != nil {
		t.Fatalf("Set(name) error = %v", err)
	}
	if err := modelmeta.Set(s, "capacity", 40); err != nil {
		t.Fatalf("Set(capacity) error = %v", err)
	}
	if err := modelmeta.Set(s, "photo", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Set(photo) error = %v", err)
	}
	if err := modelmeta.Set(*s, "name", "x"); err == nil {
		t.Fatal("Set() on a non-pointer error = nil")
	}
	if err := modelmeta.Set(s, "missing", 1); err == nil {
		t.Fatal("Set(missing) error = nil")
	}

	tcs := []struct {
		field string
		want  string
	}{
		{field: "name", want: "Fiction"},
		{field: "capacity", want: "40"},
		{field: "photo", want: "AQI="},
		{field: "ID", want: "1"},
	}
	for _, tc := range tcs {
		got, err := modelmeta.FieldString(s, tc.field)
		if err != nil {
			t.Fatalf("FieldString(%q) error = %v", tc.field, err)
		}
		if got != tc.want {
			t.Fatalf("FieldString(%q) = %q, want %q", tc.field, got, tc.want)
		}
	}
}

func TestStringify(t *testing.T) {
	t.Parallel()

	n := 3
	var nilShelf *Shelf
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tcs := []struct {
		name string
		in   any
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "typed nil pointer", in: nilShelf, want: ""},
		{name: "string", in: "x", want: "x"},
		{name: "int pointer", in: &n, want: "3"},
		{name: "stringer", in: stringer{"s"}, want: "s"},
		{name: "time", in: ts, want: ts.String()},
		{name: "valuer", in: gorm.DeletedAt{}, want: ""},
		{name: "bool", in: true, want: "true"},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := modelmeta.Stringify(tc.in); got != tc.want {
				t.Fatalf("Stringify(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSafeKey(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("5b6d0b8e-0d5f-4a53-8c5f-3e0f1c2d3b4a")
	tcs := []struct {
		name string
		in   any
		want any
	}{
		{name: "uint", in: uint(4), want: uint(4)},
		{name: "string", in: "abc", want: "abc"},
		{name: "uuid", in: id, want: id.String()},
		{name: "stringer", in: stringer{"k"}, want: "k"},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := modelmeta.SafeKey(tc.in); got != tc.want {
				t.Fatalf("SafeKey(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}
