package imagegen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxReferenceEdge bounds the longest side of an uploaded reference image.
const MaxReferenceEdge = 1536

// PrepareReference decodes an uploaded image, downscales it so neither side
// exceeds MaxReferenceEdge, and re-encodes it as PNG.
func PrepareReference(data []byte) (*Reference, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("imagegen: reference image is empty")
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imagegen: decode reference image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxReferenceEdge || h > MaxReferenceEdge {
		w, h = fitWithin(w, h, MaxReferenceEdge)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	} else if format == "png" {
		return &Reference{Data: data, MimeType: "image/png"}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("imagegen: encode reference image: %w", err)
	}
	return &Reference{Data: buf.Bytes(), MimeType: "image/png"}, nil
}

// fitWithin scales w×h so the longer side equals limit, keeping the ratio.
func fitWithin(w, h, limit int) (int, int) {
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
