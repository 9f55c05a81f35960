// Package coords reads and writes patch coordinate lists, one "x,y" pair
// per line. Files written by a mining run can be fed back to reproduce the
// same patches.
package coords

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Read loads coordinates from path in file order.
func Read(path string) ([]image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coordinates: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads coordinates from r. Blank lines are ignored and malformed
// lines are skipped with a warning.
func Parse(r io.Reader) ([]image.Point, error) {
	var pts []image.Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		p, err := parsePoint(text)
		if err != nil {
			log.Printf("[!] Skipping coordinate line %d %q: %v", line, text, err)
			continue
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return pts, fmt.Errorf("read coordinates: %w", err)
	}
	return pts, nil
}

func parsePoint(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("expected x,y")
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return image.Point{}, err
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(x, y), nil
}

// Write stores pts at path, replacing any previous file.
func Write(path string, pts []image.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create coordinates: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, p := range pts {
		fmt.Fprintf(w, "%d,%d\n", p.X, p.Y)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
