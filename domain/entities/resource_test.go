package entities_test

import (
	"testing"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "Already canonical", base: "/", path: "/data/file", want: "/data/file"},
		{name: "Trailing slash", base: "/", path: "/data/dir/", want: "/data/dir"},
		{name: "Repeated separators", base: "/", path: "//data///dir", want: "/data/dir"},
		{name: "Dot components", base: "/", path: "/data/./dir/../file", want: "/data/file"},
		{name: "Dot-dot above root", base: "/", path: "/../../etc", want: "/etc"},
		{name: "Relative joined to base", base: "/home/user", path: "docs/a.txt", want: "/home/user/docs/a.txt"},
		{name: "Relative with empty base", base: "", path: "docs", want: "/docs"},
		{name: "Relative base made absolute", base: "work", path: "x", want: "/work/x"},
		{name: "Empty path yields base", base: "/home/user", path: "", want: "/home/user"},
		{name: "Root", base: "/", path: "/", want: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entities.CanonicalPath(tt.base, tt.path))
		})
	}
}

func TestNewResourceID_SpellingsCompareEqual(t *testing.T) {
	a := entities.NewResourceID("/", "/Users/me/Documents/")
	b := entities.NewResourceID("/Users/me", "Documents")
	c := entities.NewResourceID("/", "/Users/me/./tmp/../Documents")

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)

	m := map[entities.ResourceID]int{a: 1}
	assert.Equal(t, 1, m[c])
}

func TestResourceID_IsCanonical(t *testing.T) {
	assert.True(t, entities.ResourceID("/data").IsCanonical())
	assert.True(t, entities.ResourceID("/").IsCanonical())
	assert.False(t, entities.ResourceID("").IsCanonical())
	assert.False(t, entities.ResourceID("data").IsCanonical())
	assert.False(t, entities.ResourceID("/data/").IsCanonical())
	assert.False(t, entities.ResourceID("/data/../x").IsCanonical())
}

func TestResourceID_Contains(t *testing.T) {
	assert.True(t, entities.ResourceID("/data").Contains("/data"))
	assert.True(t, entities.ResourceID("/data").Contains("/data/a/b"))
	assert.True(t, entities.ResourceID("/").Contains("/data"))
	assert.False(t, entities.ResourceID("/data").Contains("/database"))
	assert.False(t, entities.ResourceID("/data/a").Contains("/data"))
}

func FuzzCanonicalPath(f *testing.F) {
	f.Add("/base", "rel/../x")
	f.Add("", "")
	f.Add("b", "//a//")

	f.Fuzz(func(t *testing.T, base, path string) {
		got := entities.ResourceID(entities.CanonicalPath(base, path))
		if !got.IsCanonical() {
			t.Fatalf("CanonicalPath(%q, %q) = %q is not canonical", base, path, got)
		}
		if again := entities.CanonicalPath("/", string(got)); again != string(got) {
			t.Fatalf("not idempotent: %q -> %q", got, again)
		}
	})
}
