// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package imaging prepares image attachments for the chat API.
//
// Prepare is a pure function: raw image bytes in, a bounded-dimension
// base64 payload out. Images already within bounds are passed through
// unchanged; larger ones are scaled to fit and re-encoded as JPEG.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"os"

	_ "golang.org/x/image/bmp" // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Defaults match what vision models handle comfortably.
const (
	DefaultMaxDimension = 800
	DefaultQuality      = 85

	// MaxInputBytes bounds the raw attachment size.
	MaxInputBytes = 20 << 20

	// MaxPixels bounds the decoded size. A small compressed file can
	// declare dimensions far larger than it takes on disk.
	MaxPixels = 40_000_000
)

var (
	// ErrEmpty is returned for a zero-length input.
	ErrEmpty = errors.New("image is empty")

	// ErrTooLarge is returned when the input exceeds MaxInputBytes or
	// declares more than MaxPixels.
	ErrTooLarge = errors.New("image is too large")

	// ErrUnsupported is returned when no registered decoder accepts the input.
	ErrUnsupported = errors.New("unsupported image format")
)

// Options controls scaling and encoding.
type Options struct {
	// MaxDimension is the bound on both width and height (default 800).
	MaxDimension int
	// Quality is the JPEG quality for re-encoded images (default 85).
	Quality int
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Result describes a prepared image.
type Result struct {
	Data    []byte // encoded bytes sent to the server
	Format  string // "jpeg" when re-encoded, otherwise the source format
	Width   int
	Height  int
	Resized bool
}

// Base64 returns the payload in the form the chat API expects.
func (r Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Data)
}

// Resize decodes raw and, if either side exceeds MaxDimension, scales it
// to fit while keeping the aspect ratio and re-encodes it as JPEG.
func Resize(raw []byte, opts Options) (Result, error) {
	opts = opts.withDefaults()

	if len(raw) == 0 {
		return Result{}, ErrEmpty
	}
	if len(raw) > MaxInputBytes {
		return Result{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return Result{}, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	w, h := Fit(cfg.Width, cfg.Height, opts.MaxDimension)
	if w == cfg.Width && h == cfg.Height {
		return Result{Data: raw, Format: format, Width: w, Height: h}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", format, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; composite onto white.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Result{Data: buf.Bytes(), Format: "jpeg", Width: w, Height: h, Resized: true}, nil
}

// Prepare returns the base64 payload for raw.
func Prepare(raw []byte, opts Options) (string, error) {
	res, err := Resize(raw, opts)
	if err != nil {
		return "", err
	}
	return res.Base64(), nil
}

// PrepareFile reads path and prepares it.
func PrepareFile(path string, opts Options) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > MaxInputBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Prepare(raw, opts)
}

// Fit scales w x h down so neither side exceeds maxDim, keeping the aspect
// ratio. Sizes already within bounds are returned unchanged.
func Fit(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
