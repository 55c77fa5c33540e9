package frame

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirSource reads the newest image file from a directory. It exists for
// headless runs and tests, where no browser page is pushing frames.
type DirSource struct {
	dir    string
	limits Limits
}

func NewDirSource(dir string, limits Limits) *DirSource {
	return &DirSource{dir: dir, limits: limits}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// Still picks the most recently modified image file in the directory.
func (s *DirSource) Still(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ErrNoFrame
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = entry.Name()
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return nil, ErrNoFrame
	}

	data, err := os.ReadFile(filepath.Join(s.dir, newest))
	if err != nil {
		return nil, ErrNoFrame
	}
	return FromBytes(data, "", s.limits, newestTime)
}

var _ Source = (*DirSource)(nil)
