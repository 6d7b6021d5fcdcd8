// Package imaging holds the crop geometry and watermark compositing
// pipeline. All geometry here is pure and integer-valued so the preview
// surface and the authoritative compositor always agree pixel-for-pixel.
package imaging

import "image"

// ComputeCrop returns the poster crop rectangle for an image of
// naturalWidth x naturalHeight against targetRatio (desired height/width,
// e.g. 1.415). The crop keeps the full height and the right edge, removing
// width from the left — poster art in this library is framed on the right
// side of the fanart.
//
// Rounding rule (canonical, used by every caller): the cropped width is
// floor(naturalHeight / targetRatio). When the image is already at least
// as tall relative to its width as the target, ok is false and no crop
// applies.
func ComputeCrop(naturalWidth, naturalHeight int, targetRatio float64) (image.Rectangle, bool) {
	if naturalWidth <= 0 || naturalHeight <= 0 || targetRatio <= 0 {
		return image.Rectangle{}, false
	}

	if float64(naturalHeight)/float64(naturalWidth) >= targetRatio {
		return image.Rectangle{}, false
	}

	cropWidth := int(float64(naturalHeight) / targetRatio)
	if cropWidth >= naturalWidth {
		return image.Rectangle{}, false
	}

	return image.Rect(naturalWidth-cropWidth, 0, naturalWidth, naturalHeight), true
}
