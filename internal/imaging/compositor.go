package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodeError wraps a source image that could not be decoded. Fatal to
// the single job, never to the process.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode source image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AssetStore resolves a badge variant to its image. Implemented by
// assets.Dir; kept as an interface so tests can supply in-memory badges.
type AssetStore interface {
	Load(v Variant) (image.Image, error)
}

// Job describes one compositing run over in-memory source bytes.
type Job struct {
	Source     []byte
	Watermarks []Variant
	Crop       bool    // apply the poster crop before stamping
	CropRatio  float64 // target height/width when Crop is set
}

// Plan is the full geometry of a compositing run: what the preview
// renderer draws and what Composite burns in. Both come from the same
// computation, so they cannot drift.
type Plan struct {
	SourceWidth  int              `json:"sourceWidth"`
	SourceHeight int              `json:"sourceHeight"`
	Crop         *image.Rectangle `json:"crop,omitempty"`
	OutputWidth  int              `json:"outputWidth"`
	OutputHeight int              `json:"outputHeight"`
	Badges       []Placement      `json:"badges"`
}

// Compositor produces final artwork bytes from compositing jobs.
type Compositor struct {
	store   AssetStore
	layout  Layout
	quality int // JPEG encode quality
	log     zerolog.Logger
}

func NewCompositor(store AssetStore, layout Layout, jpegQuality int, log zerolog.Logger) *Compositor {
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 95
	}
	return &Compositor{
		store:   store,
		layout:  layout,
		quality: jpegQuality,
		log:     log,
	}
}

// PlanGeometry computes the crop rectangle and badge placements for an
// image of the given natural size without touching pixel data. Badge
// placements are computed on the post-crop dimensions.
func (c *Compositor) PlanGeometry(naturalWidth, naturalHeight int, job Job) (Plan, error) {
	plan := Plan{
		SourceWidth:  naturalWidth,
		SourceHeight: naturalHeight,
		OutputWidth:  naturalWidth,
		OutputHeight: naturalHeight,
	}

	if job.Crop {
		if rect, ok := ComputeCrop(naturalWidth, naturalHeight, job.CropRatio); ok {
			plan.Crop = &rect
			plan.OutputWidth = rect.Dx()
			plan.OutputHeight = rect.Dy()
		}
	}

	badges := SelectBadges(job.Watermarks)
	if len(badges) == 0 {
		return plan, nil
	}

	sizes := make(map[Variant]image.Point, len(badges))
	for _, v := range badges {
		img, err := c.store.Load(v)
		if err != nil {
			return Plan{}, err
		}
		b := img.Bounds()
		sizes[v] = image.Pt(b.Dx(), b.Dy())
	}

	plan.Badges = PlanBadges(plan.OutputWidth, plan.OutputHeight, badges, sizes, c.layout)
	return plan, nil
}

// Composite decodes the job source, applies the crop, stamps the selected
// badges and encodes the result as JPEG. It never writes anywhere: the
// caller owns the destination (and its atomic-replace semantics).
func (c *Compositor) Composite(job Job) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(job.Source))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	bounds := src.Bounds()
	plan, err := c.PlanGeometry(bounds.Dx(), bounds.Dy(), job)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, plan.OutputWidth, plan.OutputHeight))
	origin := bounds.Min
	if plan.Crop != nil {
		origin = bounds.Min.Add(plan.Crop.Min)
	}
	draw.Draw(canvas, canvas.Bounds(), src, origin, draw.Src)

	for _, p := range plan.Badges {
		badge, err := c.store.Load(p.Variant)
		if err != nil {
			return nil, err
		}
		dst := image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
		xdraw.CatmullRom.Scale(canvas, dst, badge, badge.Bounds(), xdraw.Over, nil)
		c.log.Debug().
			Str("variant", string(p.Variant)).
			Int("x", p.X).Int("y", p.Y).
			Int("width", p.Width).Int("height", p.Height).
			Msg("badge placed")
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}
