package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestLocatorPicksLatestByName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"smoke_coordix_2024-01-01T00-00-00.json",
		"smoke_coordix_2024-01-02T00-00-00.json",
	)

	file, ok, err := NewLocator(dir).Locate("smoke", "coordix")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "smoke_coordix_2024-01-02T00-00-00.json", file.Name)
	assert.Equal(t, filepath.Join(dir, file.Name), file.Path)
	assert.Equal(t, "2024-01-02T00-00-00", file.RunStamp())
}

func TestLocatorIgnoresModTime(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "smoke_coordix_2024-01-02T00-00-00.json")
	// written later, but older by name
	touch(t, dir, "smoke_coordix_2024-01-01T00-00-00.json")

	file, ok, err := NewLocator(dir).Locate("smoke", "coordix")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "smoke_coordix_2024-01-02T00-00-00.json", file.Name)
}

func TestLocatorMatchingRule(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"smoke_coordix_2024-01-01T00-00-00.json", true},
		{"smoke_coordix_2024-01-01T00-00-00.json.gz", false},
		{"smoke_coordix_2024-01-01T00-00-00.csv", false},
		{"smoke_summary.csv", false},
		{"rampup_coordix_2024-01-01T00-00-00.json", false},
		{"smoke_mediatR_2024-01-01T00-00-00.json", false},
		{"smoke_coordixfast_2024-01-01T00-00-00.json", false},
		{"load-steady_coordix_2024-01-01T00-00-00.json", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Matches(tt.name, "smoke", "coordix"), tt.name)
	}
}

func TestLocatorMissingDirectory(t *testing.T) {
	locator := NewLocator(filepath.Join(t.TempDir(), "nope"))

	names, err := locator.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, ok, err := locator.Locate("smoke", "coordix")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocatorNoMatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "smoke_mediatR_2024-01-01T00-00-00.json")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "smoke_coordix_dir.json"), 0o755))

	_, ok, err := NewLocator(dir).Locate("smoke", "coordix")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunStampMissing(t *testing.T) {
	assert.Equal(t, "", ResultFile{Name: "smoke_coordix_latest.json"}.RunStamp())
}
