package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatch(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, FileName)
	content := "node_modules/\n*.iso\n# comment\n\nsecret.env\n/build\ndocs/**/*.pdf\n"
	require.NoError(t, os.WriteFile(ig, []byte(content), 0644))

	m, err := Load(ig)
	require.NoError(t, err)
	cases := map[string]bool{
		"node_modules/pkg/index.js": true,
		"images/ubuntu.iso":         true,
		"secret.env":                true,
		"config/secret.env":         true,
		"build/out.bin":             true,
		"src/build/out.bin":         false,
		"docs/a/b/manual.pdf":       true,
		"manual.pdf":                false,
		"src/app.exe":               false,
		"node_modules":              false,
	}
	for p, want := range cases {
		assert.Equal(t, want, m.Match(p), "Match(%q)", p)
	}
	assert.True(t, m.MatchDir("node_modules"))
	assert.True(t, m.MatchDir("build"))
	assert.False(t, m.MatchDir("src"))
}

func TestNegationReincludes(t *testing.T) {
	m := Parse("*.log", "!keep.log")
	assert.True(t, m.Match("a/debug.log"))
	assert.False(t, m.Match("a/keep.log"))
}

func TestLoadMissing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.False(t, m.Match("anything"))
	assert.False(t, Matcher{}.MatchDir("x"))
}

func TestAppend_IdempotentAndCreates(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, FileName)
	require.NoError(t, Append(dir, "dist/"))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "dist/\n", string(b))

	require.NoError(t, Append(dir, "dist/"))
	b, _ = os.ReadFile(p)
	assert.Equal(t, "dist/\n", string(b))
}

func TestAppend_AddsMissingNewline(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("# mine\n*.iso"), 0644))
	require.NoError(t, Append(dir, "cache/"))

	got, err := Patterns(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.iso", "cache/"}, got)
}
