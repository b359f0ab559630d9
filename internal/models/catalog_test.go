package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tests.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
tests:
  - id: fire-safety
    title: "Fire Safety Basics"
    question_count: 20
    passing_score: 85
  - id: first-aid
    question_count: 25
`)

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Tests, 2)

	def := catalog.Find("fire-safety")
	require.NotNil(t, def)
	assert.Equal(t, 85, def.PassingScore)
	assert.Equal(t, 20, def.QuestionCount)

	assert.Nil(t, catalog.Find("unknown"))
}

func TestCatalogTitleFallsBackToID(t *testing.T) {
	path := writeCatalog(t, `
tests:
  - id: fire-safety
    title: "Fire Safety Basics"
  - id: first-aid
`)

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, "Fire Safety Basics", catalog.Title("fire-safety"))
	assert.Equal(t, "first-aid", catalog.Title("first-aid"), "untitled tests show their id")
	assert.Equal(t, "unlisted", catalog.Title("unlisted"))
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
