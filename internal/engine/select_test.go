package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bianoble/plugin-migrate/internal/migrations"
)

func names(metas []migrations.Meta) []string {
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, m.Name)
	}
	return out
}

func TestGetMigrationsToRun(t *testing.T) {
	catalog := []migrations.Meta{
		{Name: "migration-one", Version: "5.0.0"},
		{Name: "migration-two", Version: "5.4.0"},
		{Name: "migration-three", Version: "6.0.0"},
		{Name: "migration-four", Version: "5.2.0"},
	}

	tests := []struct {
		name     string
		from, to string
		want     []string
	}{
		{"full range", "5.0.0", "6.0.0", []string{"migration-four", "migration-two", "migration-three"}},
		{"upper bound inclusive", "5.2.0", "5.4.0", []string{"migration-two"}},
		{"lower bound exclusive", "5.4.0", "5.4.0", []string{}},
		{"below everything", "4.0.0", "5.0.0", []string{"migration-one"}},
		{"above everything", "6.0.0", "7.0.0", []string{}},
		{"v prefix", "v5.3.0", "v6.0.0", []string{"migration-two", "migration-three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetMigrationsToRun(tt.from, tt.to, catalog)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("GetMigrationsToRun(%s, %s) mismatch (-want +got):\n%s", tt.from, tt.to, diff)
			}
		})
	}
}

func TestGetMigrationsToRunKeepsCatalogOrderForTies(t *testing.T) {
	catalog := []migrations.Meta{
		{Name: "later", Version: "5.2.0"},
		{Name: "first-tie", Version: "5.1.0"},
		{Name: "second-tie", Version: "5.1.0"},
		{Name: "third-tie", Version: "5.1.0"},
	}
	got, err := GetMigrationsToRun("5.0.0", "6.0.0", catalog)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first-tie", "second-tie", "third-tie", "later"}
	if diff := cmp.Diff(want, names(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGetMigrationsToRunRejectsInvalidVersions(t *testing.T) {
	catalog := []migrations.Meta{{Name: "one", Version: "5.0.0"}}
	for _, tc := range [][2]string{{"latest", "6.0.0"}, {"5.0.0", "next"}} {
		if _, err := GetMigrationsToRun(tc[0], tc[1], catalog); err == nil {
			t.Errorf("GetMigrationsToRun(%q, %q) should fail", tc[0], tc[1])
		}
	}
	bad := []migrations.Meta{{Name: "broken", Version: "five"}}
	if _, err := GetMigrationsToRun("1.0.0", "2.0.0", bad); err == nil {
		t.Error("an invalid catalog version should fail")
	}
}

func TestLatestVersion(t *testing.T) {
	catalog := []migrations.Meta{
		{Name: "a", Version: "5.10.0"},
		{Name: "b", Version: "5.9.0"},
		{Name: "c", Version: "5.2.1"},
	}
	if got := LatestVersion(catalog); got != "5.10.0" {
		t.Errorf("LatestVersion = %q, want 5.10.0", got)
	}
	if got := LatestVersion(nil); got != "" {
		t.Errorf("LatestVersion(nil) = %q, want empty", got)
	}
}
