package assets

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artkeeper/internal/imaging"
)

func writeBadge(t *testing.T, dir string, name string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func TestDirLoad(t *testing.T) {
	dir := t.TempDir()
	writeBadge(t, dir, "4k.png", 200, 100)

	store := NewDir(dir)
	img, err := store.Load(imaging.Variant4K)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestDirLoadMissing(t *testing.T) {
	store := NewDir(t.TempDir())
	_, err := store.Load(imaging.VariantUncensored)
	assert.ErrorIs(t, err, ErrAssetMissing)
}

func TestDirLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subbed.png"), []byte("junk"), 0o644))

	store := NewDir(dir)
	_, err := store.Load(imaging.VariantSubbed)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAssetMissing, "corrupt is not missing")
}

func TestDirNamingConvention(t *testing.T) {
	store := NewDir("/srv/badges")
	assert.Equal(t, "/srv/badges/cracked.png", store.Path(imaging.VariantCracked))
}
