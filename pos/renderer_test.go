package pos

import (
	"bytes"
	"image/png"
	"testing"
)

func TestFloorRendererWritePNG(t *testing.T) {
	g, err := ParseFloorGraph([]byte(validGraphJSON))
	if err != nil {
		t.Fatal(err)
	}

	r := NewFloorRenderer(g)
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, "TRI01F1_ROOM_104"); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}

	bounds := img.Bounds()
	wantW := int(g.Width*r.Scale) + 2*r.Padding
	wantH := int(g.Height*r.Scale) + 2*r.Padding
	if bounds.Dx() != wantW || bounds.Dy() != wantH {
		t.Errorf("image size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), wantW, wantH)
	}
}

func TestFloorRendererUnknownCurrentNode(t *testing.T) {
	g, err := ParseFloorGraph([]byte(validGraphJSON))
	if err != nil {
		t.Fatal(err)
	}

	// Unknown or empty current node renders without highlighting.
	r := NewFloorRenderer(g)
	if img := r.Render("NOT_A_NODE"); img == nil {
		t.Error("Render() = nil")
	}
	if img := r.Render(""); img == nil {
		t.Error("Render() = nil")
	}
}
