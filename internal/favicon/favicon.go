// Package favicon generates favicon.ico and favicon.png from a source image.
package favicon

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

const (
	// Size is the edge length of both generated icons.
	Size = 32

	DefaultSource    = "public/assets/logo.png"
	DefaultOutputDir = "public"

	icoName = "favicon.ico"
	pngName = "favicon.png"
)

var (
	// ErrImagerUnavailable is returned when no image backend is configured.
	ErrImagerUnavailable = errors.New("favicon: image backend not available")
	// ErrSourceNotFound is returned when the source image does not exist.
	ErrSourceNotFound = errors.New("favicon: source image not found")
)

// Imager loads src and scales it to width x height.
type Imager interface {
	Thumbnail(src string, width, height int) (image.Image, error)
}

// ImagingImager is the Imager backed by disintegration/imaging.
type ImagingImager struct{}

// Thumbnail implements Imager.
func (ImagingImager) Thumbnail(src string, width, height int) (image.Image, error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}

// Result lists the files written by Generate.
type Result struct {
	ICO string
	PNG string
}

// Generator writes favicons into OutputDir.
type Generator struct {
	Imager    Imager
	OutputDir string
	Logger    *zap.Logger
}

// NewGenerator returns a Generator using ImagingImager.
func NewGenerator(outputDir string, logger *zap.Logger) *Generator {
	return &Generator{Imager: ImagingImager{}, OutputDir: outputDir, Logger: logger}
}

// Generate scales from (DefaultSource when empty) to Size x Size and writes
// favicon.ico and favicon.png. Either both files are written or neither is
// left behind.
func (g *Generator) Generate(ctx context.Context, from string) (Result, error) {
	if g == nil || g.Imager == nil {
		return Result{}, ErrImagerUnavailable
	}
	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if from == "" {
		from = DefaultSource
	}
	outDir := g.OutputDir
	if outDir == "" {
		outDir = DefaultOutputDir
	}

	info, err := os.Stat(from)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrSourceNotFound, from)
		}
		return Result{}, fmt.Errorf("favicon: stat %s: %w", from, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, from)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	img, err := g.Imager.Thumbnail(from, Size, Size)
	if err != nil {
		return Result{}, fmt.Errorf("favicon: scale %s: %w", from, err)
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return Result{}, fmt.Errorf("favicon: encode png: %w", err)
	}
	ico := encodeICO(pngBuf.Bytes(), img.Bounds().Dx(), img.Bounds().Dy())

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("favicon: create %s: %w", outDir, err)
	}
	res := Result{
		ICO: filepath.Join(outDir, icoName),
		PNG: filepath.Join(outDir, pngName),
	}

	logger.Info("generating favicon", zap.String("path", res.ICO))
	if err := writeFile(res.ICO, ico); err != nil {
		return Result{}, err
	}
	logger.Info("generating favicon", zap.String("path", res.PNG))
	if err := writeFile(res.PNG, pngBuf.Bytes()); err != nil {
		if rmErr := os.Remove(res.ICO); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logger.Warn("remove partial favicon", zap.String("path", res.ICO), zap.Error(rmErr))
		}
		return Result{}, err
	}
	return res, nil
}

// encodeICO wraps a PNG image in a single-entry ICO container.
func encodeICO(pngData []byte, width, height int) []byte {
	const headerLen = 6 + 16
	buf := make([]byte, headerLen, headerLen+len(pngData))
	binary.LittleEndian.PutUint16(buf[0:], 0) // reserved
	binary.LittleEndian.PutUint16(buf[2:], 1) // icon
	binary.LittleEndian.PutUint16(buf[4:], 1) // image count

	entry := buf[6:]
	entry[0] = icoDimension(width)
	entry[1] = icoDimension(height)
	entry[2] = 0 // palette size
	entry[3] = 0 // reserved
	binary.LittleEndian.PutUint16(entry[4:], 1)  // color planes
	binary.LittleEndian.PutUint16(entry[6:], 32) // bits per pixel
	binary.LittleEndian.PutUint32(entry[8:], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(entry[12:], headerLen)

	return append(buf, pngData...)
}

// icoDimension encodes 256 as 0.
func icoDimension(n int) byte {
	if n >= 256 || n <= 0 {
		return 0
	}
	return byte(n)
}

func writeFile(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("favicon: create pending %s: %w", path, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()
	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("favicon: write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("favicon: replace %s: %w", path, err)
	}
	return nil
}
