// Package assets resolves badge variant names to their image files.
// One file per variant, fixed naming: <dir>/<variant>.png.
package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	_ "image/png"

	"artkeeper/internal/imaging"
)

// ErrAssetMissing indicates a requested badge has no asset file. This is
// a deployment problem, not a user error: compositing must abort rather
// than silently omit the badge.
var ErrAssetMissing = errors.New("badge asset missing")

// Dir serves badge assets from a directory.
type Dir struct {
	root string
}

func NewDir(root string) Dir {
	return Dir{root: filepath.Clean(root)}
}

// Path returns the conventional file for a variant.
func (d Dir) Path(v imaging.Variant) string {
	return filepath.Join(d.root, string(v)+".png")
}

// Load decodes the badge image for v.
func (d Dir) Load(v imaging.Variant) (image.Image, error) {
	f, err := os.Open(d.Path(v))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("variant %q: %w", v, ErrAssetMissing)
		}
		return nil, fmt.Errorf("open badge asset %q: %w", v, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode badge asset %q: %w", v, err)
	}
	return img, nil
}
