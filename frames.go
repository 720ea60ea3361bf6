package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Frame is one encoded still image from the capture source.
type Frame struct {
	Data     []byte
	MIMEType string
}

// FrameSource exposes the current camera frame on demand. Implementations
// return ErrInputCapture when no frame can be produced.
type FrameSource interface {
	CaptureFrame(ctx context.Context) (Frame, error)
}

// DirFrameSource cycles through the image files of a directory, standing in
// for a live camera in headless deployments and in the CLI test mode.
type DirFrameSource struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewDirFrameSource lists the JPEG/PNG files under dir in name order.
func NewDirFrameSource(dir string) (*DirFrameSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s: %w", dir, ErrInputCapture)
	}
	return &DirFrameSource{files: files}, nil
}

// CaptureFrame returns the next frame in the cycle.
func (s *DirFrameSource) CaptureFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInputCapture, err)
	}
	return Frame{Data: data, MIMEType: mimeForExt(filepath.Ext(path))}, nil
}

// StaticFrameSource always returns the same frame. An empty frame yields
// ErrInputCapture, which tests use to exercise the capture-failure path.
type StaticFrameSource struct {
	Frame Frame
}

func (s *StaticFrameSource) CaptureFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if len(s.Frame.Data) == 0 {
		return Frame{}, ErrInputCapture
	}
	return s.Frame, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
