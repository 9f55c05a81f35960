package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPoolReturnsClearedBuffers(t *testing.T) {
	p := NewImagePool()
	rect := image.Rect(0, 0, 4, 4)

	img := p.Get(rect)
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	p.Put(img)

	again := p.Get(rect)
	for i, v := range again.Pix {
		if v != 0 {
			t.Fatalf("Pixel byte %d not cleared: %d", i, v)
		}
	}
	if again.Rect != rect {
		t.Errorf("Expected bounds %v, got %v", rect, again.Rect)
	}
}

func TestPoolIgnoresUnknownSizes(t *testing.T) {
	p := NewImagePool()
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	p.Put(nil)
	if len(p.pools) != 0 {
		t.Error("Put created a pool for an unknown size")
	}
}

func TestFolderStats(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.png"), make([]byte, 10), 0644)
	os.MkdirAll(filepath.Join(dir, "sub"), 0755)
	os.WriteFile(filepath.Join(dir, "sub", "b.png"), make([]byte, 5), 0644)

	size, files, err := FolderStats(dir)
	if err != nil {
		t.Fatalf("FolderStats failed: %v", err)
	}
	if size != 15 || files != 2 {
		t.Errorf("Expected 15 bytes in 2 files, got %d in %d", size, files)
	}
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Error("Expected at least one worker")
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.png", "b.TIFF", "c.png", "notes.txt"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		os.WriteFile(path, []byte("x"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(path, modTime, modTime)
	}
	os.Mkdir(filepath.Join(dir, "z.png"), 0755)

	latest, err := FindLatest(dir, ".png", ".tiff")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if filepath.Base(latest) != "c.png" {
		t.Errorf("Expected c.png, got %s", latest)
	}

	latest, _ = FindLatest(dir, ".tiff")
	if filepath.Base(latest) != "b.TIFF" {
		t.Errorf("Expected b.TIFF, got %s", latest)
	}

	if _, err := FindLatest(dir, ".svs"); err == nil {
		t.Error("Expected error when nothing matches")
	}
}
