package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_FILE", filepath.Join(dir, "saved.json"))
	t.Setenv("VIDEO_OUTPUT_DIR", filepath.Join(dir, "videos"))
	t.Setenv("AMAZON_ACCESS_KEY", "")
	t.Setenv("AMAZON_SECRET_KEY", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSearch_MockCatalog(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "search", "wireless", "earbuds", "--max", "1", "--log-level", "error")
	require.NoError(t, err)

	var products []models.Product
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	require.Len(t, products, 1)
	assert.True(t, products[0].Synthetic)
	assert.Equal(t, models.StoreAmazon, products[0].Store)
}

func TestSearch_UnknownStore(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "search", "earbuds", "--store", "etsy")
	assert.ErrorContains(t, err, "unknown store")
}

func TestSaved_ImportListExport(t *testing.T) {
	dir := setupEnv(t)

	importFile := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(importFile, []byte(
		`[{"id":"B08N5WRWNW","source_store":"amazon","title":"Echo Dot","image_url":"https://m.media-amazon.com/1.jpg"},{"title":"orphan"}]`), 0o644))

	out, err := run(t, "saved", "import", importFile)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 of 2 products\n", out)

	out, err = run(t, "saved", "list")
	require.NoError(t, err)
	var saved []models.SavedProduct
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "Echo Dot", saved[0].Title)

	exportFile := filepath.Join(dir, "out.json")
	out, err = run(t, "saved", "export", exportFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "exported 1 products"))
	raw, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"exported_at"`)

	out, err = run(t, "video", "B08N5WRWNW")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "videos", "amazon_B08N5WRWNW_"))

	_, err = run(t, "video", "B000000000")
	assert.ErrorContains(t, err, "not found")
}

func TestArgsValidation(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "fetch")
	assert.Error(t, err)

	_, err = run(t, "saved", "import", "/does/not/exist.json")
	assert.ErrorContains(t, err, "failed to open import file")
}
