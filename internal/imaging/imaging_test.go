// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{640, 480, 800, 640, 480},
		{800, 800, 800, 800, 800},
		{1600, 1200, 800, 800, 600},
		{1200, 1600, 800, 600, 800},
		{4000, 2, 800, 800, 1},
	}
	for _, tt := range tests {
		w, h := Fit(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Fit(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestResizeWithinBoundsPassesThrough(t *testing.T) {
	raw := pngBytes(t, 64, 32)

	res, err := Resize(raw, Options{})
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if res.Resized {
		t.Error("Resized = true, want false")
	}
	if res.Format != "png" {
		t.Errorf("Format = %q, want png", res.Format)
	}
	if !bytes.Equal(res.Data, raw) {
		t.Error("data within bounds should be returned unchanged")
	}
}

func TestResizeScalesDownToJPEG(t *testing.T) {
	raw := pngBytes(t, 200, 100)

	res, err := Resize(raw, Options{MaxDimension: 50, Quality: 85})
	if err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if !res.Resized || res.Format != "jpeg" {
		t.Errorf("Resized/Format = %v/%q, want true/jpeg", res.Resized, res.Format)
	}
	if res.Width != 50 || res.Height != 25 {
		t.Errorf("size = %dx%d, want 50x25", res.Width, res.Height)
	}

	img, err := jpeg.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("decoded bounds = %v", b)
	}
}

func TestPrepareBase64(t *testing.T) {
	raw := pngBytes(t, 8, 8)
	got, err := Prepare(raw, Options{})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got != base64.StdEncoding.EncodeToString(raw) {
		t.Error("Prepare() should base64 the original bytes when no resize is needed")
	}
}

func TestResizeErrors(t *testing.T) {
	if _, err := Resize(nil, Options{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("Resize(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := Resize([]byte("definitely not an image"), Options{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Resize(text) error = %v, want ErrUnsupported", err)
	}
}

// pngHeader returns a PNG that stops after its IHDR chunk. It is enough
// for DecodeConfig and declares any size without encoding the pixels.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // 8-bit gray, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestResizeRejectsHugeDimensions(t *testing.T) {
	raw := pngHeader(12000, 12000)
	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		t.Fatalf("header fixture does not decode: %v", err)
	}

	if _, err := Resize(raw, Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Resize(12000x12000) error = %v, want ErrTooLarge", err)
	}
	if _, err := Prepare(raw, Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Prepare(12000x12000) error = %v, want ErrTooLarge", err)
	}

	// A declared size within budget gets past the check and fails later
	// on the missing pixel data instead.
	if _, err := Resize(pngHeader(6000, 6000), Options{}); errors.Is(err, ErrTooLarge) {
		t.Errorf("Resize(6000x6000) error = %v, want a decode error", err)
	}
}

func TestPrepareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(path, pngBytes(t, 1000, 500), 0600); err != nil {
		t.Fatal(err)
	}

	payload, err := PrepareFile(path, Options{})
	if err != nil {
		t.Fatalf("PrepareFile() error = %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("payload is not a JPEG: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 400 {
		t.Errorf("size = %dx%d, want 800x400", cfg.Width, cfg.Height)
	}

	if _, err := PrepareFile(filepath.Join(t.TempDir(), "missing.png"), Options{}); err == nil {
		t.Error("PrepareFile() on missing file should fail")
	}
}
