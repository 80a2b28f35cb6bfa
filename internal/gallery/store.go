// Package gallery exports finished patterns as PNG files with thumbnails
// and keeps a SQLite index of them.
package gallery

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/starford/tiedye/internal/apperr"
)

// DefaultThumbnailSize bounds the longer thumbnail edge in pixels.
const DefaultThumbnailSize = 200

const (
	imageSuffix = ".png"
	thumbSuffix = ".thumb.png"
)

// Store saves pattern images and their index rows.
type Store struct {
	files     *Files
	db        *DB
	thumbSize int
}

// Open opens a store writing images under dir and indexing them in the
// SQLite database at dbPath.
func Open(dir, dbPath string, thumbSize int) (*Store, error) {
	files, err := NewFiles(dir)
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	if thumbSize <= 0 {
		thumbSize = DefaultThumbnailSize
	}
	return &Store{files: files, db: db, thumbSize: thumbSize}, nil
}

// Close closes the index.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRequest describes an image to export.
type SaveRequest struct {
	Title      string
	SessionID  string
	Folds      string
	LayerCount int
	DyeCount   int
	Image      image.Image
}

// Save writes the image and its thumbnail and indexes them.
func (s *Store) Save(_ context.Context, req SaveRequest) (Pattern, error) {
	if req.Image == nil {
		return Pattern{}, errors.New("gallery: save: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, req.Image); err != nil {
		return Pattern{}, fmt.Errorf("gallery: encode: %w", err)
	}
	var thumb bytes.Buffer
	if err := png.Encode(&thumb, Thumbnail(req.Image, s.thumbSize)); err != nil {
		return Pattern{}, fmt.Errorf("gallery: encode thumbnail: %w", err)
	}

	b := req.Image.Bounds()
	p := Pattern{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(req.Title),
		SessionID:  req.SessionID,
		Folds:      req.Folds,
		LayerCount: max(req.LayerCount, 1),
		DyeCount:   req.DyeCount,
		Checksum:   checksum(buf.Bytes()),
		Size:       int64(buf.Len()),
		Width:      b.Dx(),
		Height:     b.Dy(),
		CreatedAt:  time.Now().UTC(),
	}
	if p.Title == "" {
		p.Title = "pattern " + p.ID[:8]
	}

	if err := s.files.Write(p.ID+imageSuffix, buf.Bytes()); err != nil {
		return Pattern{}, err
	}
	if err := s.files.Write(p.ID+thumbSuffix, thumb.Bytes()); err != nil {
		_ = s.files.Delete(p.ID + imageSuffix)
		return Pattern{}, err
	}
	if err := s.db.Insert(p); err != nil {
		_ = s.files.Delete(p.ID + imageSuffix)
		_ = s.files.Delete(p.ID + thumbSuffix)
		return Pattern{}, err
	}
	return p, nil
}

// Get returns the index row of a pattern.
func (s *Store) Get(_ context.Context, id string) (Pattern, error) {
	return s.db.Get(id)
}

// List returns a page of patterns, newest first, and the total count.
func (s *Store) List(_ context.Context, limit, offset int, sessionID string) ([]Pattern, int, error) {
	return s.db.List(limit, offset, sessionID)
}

// Delete removes a pattern's files and index row.
func (s *Store) Delete(_ context.Context, id string) error {
	if _, err := s.db.Get(id); err != nil {
		return err
	}
	if err := s.files.Delete(id + imageSuffix); err != nil {
		return err
	}
	if err := s.files.Delete(id + thumbSuffix); err != nil {
		return err
	}
	return s.db.Delete(id)
}

// ReadImage returns the PNG bytes of a pattern.
func (s *Store) ReadImage(ctx context.Context, id string) ([]byte, error) {
	return s.read(ctx, id, imageSuffix)
}

// ReadThumbnail returns the PNG bytes of a pattern's thumbnail.
func (s *Store) ReadThumbnail(ctx context.Context, id string) ([]byte, error) {
	return s.read(ctx, id, thumbSuffix)
}

func (s *Store) read(_ context.Context, id, suffix string) ([]byte, error) {
	if _, err := s.db.Get(id); err != nil {
		return nil, err
	}
	data, err := s.files.Read(id + suffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("pattern %q file: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Reconcile drops index rows whose image is gone and removes image files
// that are not indexed.
func (s *Store) Reconcile(logger *slog.Logger) error {
	ids, err := s.db.AllIDs()
	if err != nil {
		return err
	}
	for id := range ids {
		if s.files.Exists(id + imageSuffix) {
			continue
		}
		if err := s.db.Delete(id); err != nil {
			logger.Warn("gallery: drop stale row failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		_ = s.files.Delete(id + thumbSuffix)
		logger.Info("gallery: dropped stale row", slog.String("id", id))
	}

	names, err := s.files.List(".png")
	if err != nil {
		return err
	}
	for _, name := range names {
		id := strings.TrimSuffix(strings.TrimSuffix(name, thumbSuffix), imageSuffix)
		if _, ok := ids[id]; ok {
			continue
		}
		if err := s.files.Delete(name); err != nil {
			logger.Warn("gallery: remove orphan failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		logger.Info("gallery: removed orphan", slog.String("file", name))
	}
	return nil
}

// Thumbnail scales img to fit a size x size square, keeping its aspect.
func Thumbnail(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	tw, th := size, size
	if w >= h {
		th = max(h*size/w, 1)
	} else {
		tw = max(w*size/h, 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
