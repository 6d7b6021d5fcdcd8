package imaging

import "image"

// Variant names one badge watermark. Variants group into three
// categories; at most one badge per category ever renders.
type Variant string

const (
	Variant4K         Variant = "4k"
	Variant8K         Variant = "8k"
	VariantSubbed     Variant = "subbed"
	VariantCensored   Variant = "censored"
	VariantCracked    Variant = "cracked"
	VariantLeaked     Variant = "leaked"
	VariantUncensored Variant = "uncensored"
)

// Category order is fixed: resolution, subtitle, mosaic.
var (
	resolutionVariants = []Variant{Variant4K, Variant8K}
	subtitleVariants   = []Variant{VariantSubbed}

	// mosaicPriority: when several mosaic variants are requested the
	// highest-priority one wins and the rest are dropped silently.
	mosaicPriority = []Variant{VariantCensored, VariantCracked, VariantLeaked, VariantUncensored}
)

// KnownVariant reports whether name maps to a badge variant.
func KnownVariant(name string) bool {
	switch Variant(name) {
	case Variant4K, Variant8K, VariantSubbed,
		VariantCensored, VariantCracked, VariantLeaked, VariantUncensored:
		return true
	}
	return false
}

// SelectBadges reduces a raw variant set to the badges that actually
// render, in category order.
func SelectBadges(requested []Variant) []Variant {
	set := make(map[Variant]bool, len(requested))
	for _, v := range requested {
		set[v] = true
	}

	var out []Variant
	for _, v := range resolutionVariants {
		if set[v] {
			out = append(out, v)
			break
		}
	}
	for _, v := range subtitleVariants {
		if set[v] {
			out = append(out, v)
			break
		}
	}
	for _, v := range mosaicPriority {
		if set[v] {
			out = append(out, v)
			break
		}
	}
	return out
}

// Layout holds the badge placement numbers.
type Layout struct {
	ScaleRatio       int // badge height = image height / ScaleRatio
	HorizontalOffset int
	VerticalOffset   int
	Spacing          int
}

// Placement is one badge's computed rectangle on the output image.
type Placement struct {
	Variant Variant `json:"variant"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
}

// PlanBadges lays already-selected badges left-to-right along a single
// baseline. Every badge is scaleRatio-derived in height; the width keeps
// the asset's aspect ratio (floor). The horizontal cursor starts at
// HorizontalOffset and advances by badge width plus Spacing; the vertical
// position is a fixed VerticalOffset from the top edge.
func PlanBadges(imageWidth, imageHeight int, badges []Variant, assetSizes map[Variant]image.Point, l Layout) []Placement {
	if imageHeight <= 0 || l.ScaleRatio <= 0 {
		return nil
	}

	badgeHeight := imageHeight / l.ScaleRatio
	if badgeHeight <= 0 {
		return nil
	}

	placements := make([]Placement, 0, len(badges))
	x := l.HorizontalOffset
	for _, v := range badges {
		size, ok := assetSizes[v]
		if !ok || size.Y <= 0 {
			continue
		}
		width := int(float64(badgeHeight) * float64(size.X) / float64(size.Y))
		placements = append(placements, Placement{
			Variant: v,
			X:       x,
			Y:       l.VerticalOffset,
			Width:   width,
			Height:  badgeHeight,
		})
		x += width + l.Spacing
	}
	return placements
}
