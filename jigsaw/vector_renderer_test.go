package jigsaw

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/tdewolff/canvas"
)

func sampleAssembly(t *testing.T) *Assembly {
	t.Helper()
	asm, err := Assemble(loadSample(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return asm
}

func TestLayoutRenderer_Size(t *testing.T) {
	r := NewLayoutRenderer(sampleAssembly(t))
	r.Padding = 1
	w, h := r.Size()
	// 3 tiles of 10 cells, 2 gutters, padding on both sides
	if w != 34 || h != 34 {
		t.Errorf("Size() = %v x %v, want 34 x 34", w, h)
	}
}

func TestLayoutRenderer_RenderToSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := NewLayoutRenderer(sampleAssembly(t)).RenderToSVG(&buf); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Fatal("output is not an SVG document")
	}
	if !strings.Contains(out, "<path") {
		t.Error("SVG contains no paths")
	}
}

func TestLayoutRenderer_RenderToPNG(t *testing.T) {
	r := NewLayoutRenderer(sampleAssembly(t))
	r.Resolution = canvas.DPMM(2)

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf); err != nil {
		t.Fatalf("RenderToPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}

	w, _ := r.Size()
	want := int(w * 2)
	if got := img.Bounds().Dx(); got < want-1 || got > want+1 {
		t.Errorf("width = %d px, want about %d", got, want)
	}
}
