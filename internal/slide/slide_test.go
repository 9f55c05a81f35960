package slide

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	return img
}

func TestReadRegionLevelZero(t *testing.T) {
	s := FromImage("mem.png", gradient(64, 32))

	img, err := s.ReadRegion(image.Pt(10, 5), 0, image.Pt(4, 3))
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("Unexpected bounds %v", img.Bounds())
	}
	r, g, _, a := img.At(2, 1).RGBA()
	if r>>8 != 12 || g>>8 != 6 || a>>8 != 255 {
		t.Errorf("Unexpected pixel (%d,%d,a=%d)", r>>8, g>>8, a>>8)
	}
}

func TestReadRegionOverhangIsTransparent(t *testing.T) {
	s := FromImage("mem.png", gradient(16, 16))

	img, err := s.ReadRegion(image.Pt(12, 12), 0, image.Pt(8, 8))
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	if _, _, _, a := img.At(1, 1).RGBA(); a == 0 {
		t.Error("In-bounds pixel should be opaque")
	}
	if _, _, _, a := img.At(6, 6).RGBA(); a != 0 {
		t.Error("Overhanging pixel should be transparent")
	}
}

func TestReadRegionKeepsGrayLabels(t *testing.T) {
	lm := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range lm.Pix {
		lm.Pix[i] = 3
	}
	s := LabelsFromImage("labels.png", lm)

	img, err := s.ReadRegion(image.Pt(0, 0), 1, image.Pt(4, 4))
	if err != nil {
		t.Fatalf("ReadRegion failed: %v", err)
	}
	g, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("Expected *image.Gray, got %T", img)
	}
	for _, v := range g.Pix {
		if v != 3 {
			t.Fatalf("Label value changed to %d", v)
		}
	}
}

func TestGraySlideOverhangIsTransparent(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 120
	}
	s := FromImage("gray.png", img)

	for _, level := range []int{0, 1} {
		region, err := s.ReadRegion(image.Pt(4, 4), level, image.Pt(6, 6))
		if err != nil {
			t.Fatalf("level %d: ReadRegion failed: %v", level, err)
		}
		if _, ok := region.(*image.RGBA); !ok {
			t.Fatalf("level %d: expected *image.RGBA, got %T", level, region)
		}
		if r, _, _, a := region.At(0, 0).RGBA(); a>>8 != 255 || r>>8 != 120 {
			t.Errorf("level %d: in-bounds pixel should be opaque gray, got r=%d a=%d", level, r>>8, a>>8)
		}
		if _, _, _, a := region.At(5, 5).RGBA(); a != 0 {
			t.Errorf("level %d: overhanging pixel should be transparent", level)
		}
	}
}

func TestOpenLabelsRejectsDocuments(t *testing.T) {
	if _, err := OpenLabels("labels.pdf"); err == nil {
		t.Error("Expected error for a document label map")
	}
}

func TestReadRegionRejectsBadInput(t *testing.T) {
	s := FromImage("mem.png", gradient(4, 4))
	if _, err := s.ReadRegion(image.Pt(0, 0), 0, image.Pt(0, 4)); err == nil {
		t.Error("Expected error for empty size")
	}
	if _, err := s.ReadRegion(image.Pt(0, 0), -1, image.Pt(2, 2)); err == nil {
		t.Error("Expected error for negative level")
	}
}

func TestConcurrentReads(t *testing.T) {
	s := FromImage("mem.png", gradient(128, 128))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := s.ReadRegion(image.Pt(i*4, i*4), 0, image.Pt(8, 8))
			if err != nil {
				t.Errorf("ReadRegion failed: %v", err)
				return
			}
			if r, _, _, _ := img.At(0, 0).RGBA(); int(r>>8) != i*4 {
				t.Errorf("Worker %d read wrong pixel %d", i, r>>8)
			}
		}(i)
	}
	wg.Wait()
}

func TestOpenDecodesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slide.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	png.Encode(f, gradient(20, 10))
	f.Close()

	s, err := Open(path, 72)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Dimensions() != image.Pt(20, 10) {
		t.Errorf("Unexpected dimensions %v", s.Dimensions())
	}
	thumb, err := s.Thumbnail(image.Pt(5, 5))
	if err != nil || thumb.Bounds().Size() != image.Pt(5, 5) {
		t.Errorf("Thumbnail failed: %v %v", thumb, err)
	}
}

func TestSameDimensions(t *testing.T) {
	a := FromImage("a.png", gradient(4, 4))
	b := FromImage("b.png", gradient(4, 5))
	if err := SameDimensions(a, a); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := SameDimensions(a, b); err == nil {
		t.Error("Expected mismatch error")
	}
}

func TestExtensions(t *testing.T) {
	exts := Extensions()
	for _, want := range []string{".pdf", ".png", ".tiff"} {
		if !slices.Contains(exts, want) {
			t.Errorf("Extensions() missing %s", want)
		}
	}
	if !slices.IsSorted(exts) {
		t.Errorf("Extensions() not sorted: %v", exts)
	}
}
