// Package labelmap pairs accepted slide patches with their annotation
// patches and summarizes the class mix of each.
package labelmap

import (
	"image"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/ivlev/patchminer/internal/patch"
)

// ValueMap substitutes label values before counting. Values without an
// entry are kept as they are.
type ValueMap map[uint32]uint32

func (m ValueMap) apply(v uint32) uint32 {
	if to, ok := m[v]; ok {
		return to
	}
	return v
}

// PixelValue is the label encoded by a pixel: the gray level for gray
// images, the palette index for paletted images, the shared channel value
// for colour pixels with R == G == B, and 0xRRGGBB for anything else.
func PixelValue(img image.Image, x, y int) uint32 {
	switch m := img.(type) {
	case *image.Gray:
		return uint32(m.GrayAt(x, y).Y)
	case *image.Gray16:
		return uint32(m.Gray16At(x, y).Y)
	case *image.Paletted:
		return uint32(m.ColorIndexAt(x, y))
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	if c.R == c.G && c.G == c.B {
		return uint32(c.R)
	}
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Proportions returns, for every distinct (remapped) value, the fraction
// of patch pixels holding it. The fractions sum to 1.
func Proportions(img image.Image, vm ValueMap) patch.Proportions {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return patch.Proportions{}
	}

	counts := make(map[uint32]int)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			counts[vm.apply(PixelValue(img, x, y))]++
		}
	}

	props := make(patch.Proportions, len(counts))
	for v, n := range counts {
		props[v] = float64(n) / float64(total)
	}
	return props
}

// Format renders proportions as "{0: 0.25; 1: 0.75}" with keys ascending,
// so equal summaries always produce equal text.
func Format(p patch.Proportions) string {
	keys := make([]uint32, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(strconv.FormatUint(uint64(k), 10))
		sb.WriteString(": ")
		sb.WriteString(strconv.FormatFloat(p[k], 'g', -1, 64))
	}
	sb.WriteByte('}')
	return sb.String()
}
