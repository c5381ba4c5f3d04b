package history

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

type volume struct {
	ID     uint
	Title  string
	Cover  []byte
	Labels []label `gorm:"many2many:volume_labels;"`
}

func (v *volume) PrimaryKey() any { return v.ID }
func (v *volume) String() string  { return v.Title }

func TestSerialize(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		in   *volume
		want string
	}{
		{
			name: "associations not loaded",
			in:   &volume{ID: 7, Title: "Go", Cover: []byte{0x01, 0x02}},
			want: `[{"model": "main.volume", "pk": 7, "fields": {"title": "Go", "cover": "AQI="}}]`,
		},
		{
			name: "empty binary column",
			in:   &volume{ID: 9, Title: "Zig", Cover: []byte{}},
			want: `[{"model": "main.volume", "pk": 9, "fields": {"title": "Zig", "cover": ""}}]`,
		},
		{
			name: "loaded many to many",
			in:   &volume{ID: 8, Title: "Rust", Labels: []label{*labelA, *labelB}},
			want: `[{"model": "main.volume", "pk": 8, "fields": {"title": "Rust", "cover": null,
				"labels": ["00000000-0000-0000-0000-00000000000a", "00000000-0000-0000-0000-00000000000b"]}}]`,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			raw, err := Serialize(tc.in)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			var got, want any
			if err := json.Unmarshal([]byte(raw), &got); err != nil {
				t.Fatalf("Serialize() produced invalid JSON: %v\n%s", err, raw)
			}
			if err := json.Unmarshal([]byte(tc.want), &want); err != nil {
				t.Fatalf("unmarshal want: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Serialize() = %s, want %s", raw, tc.want)
			}
		})
	}
}

func TestSerializeKeepsColumnOrder(t *testing.T) {
	t.Parallel()

	raw, err := Serialize(&volume{ID: 1, Title: "Go"})
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if strings.Index(raw, `"title"`) > strings.Index(raw, `"cover"`) {
		t.Fatalf("Serialize() = %s, want title before cover", raw)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	form := &stubForm{
		changed: []string{"title", "labels"},
		fields:  []Field{{Name: "title", Label: "Title"}, {Name: "labels"}},
	}
	fs := &stubFormset{
		added:   []Identifiable{&member{ID: 3, Name: "Eve"}},
		changed: []ChangedObject{{Object: &member{ID: 1, Name: "Ann"}, Fields: []string{"name"}}},
		deleted: []Identifiable{&member{ID: 2, Name: "Bob"}},
		forms:   []InlineForm{&stubForm{fields: []Field{{Name: "name", Label: "Name"}}}},
	}

	tcs := []struct {
		name string
		add  bool
		want string
	}{
		{
			name: "change",
			want: `[{"changed": {"fields": ["Title", "labels"]}},
				{"added": {"name": "member", "object": "Eve"}},
				{"changed": {"name": "member", "object": "Ann", "fields": ["Name"]}},
				{"deleted": {"name": "member", "object": "Bob"}}]`,
		},
		{
			name: "add",
			add:  true,
			want: `[{"added": {}},
				{"added": {"name": "member", "object": "Eve"}},
				{"changed": {"name": "member", "object": "Ann", "fields": ["Name"]}},
				{"deleted": {"name": "member", "object": "Bob"}}]`,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Summary(form, tc.add, fs)
			if err != nil {
				t.Fatalf("Summary() error = %v", err)
			}
			assertJSON(t, Message(got), tc.want)
		})
	}
}
