// Package media lists the video files a stream can be started from.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Extensions are the video file types offered for streaming.
var Extensions = []string{".mp4", ".mkv", ".avi", ".mov", ".flv"}

// File is a streamable video file.
type File struct {
	Name    string    `json:"name" example:"clip.mp4" doc:"File name"`
	Path    string    `json:"path" example:"/srv/videos/clip.mp4" doc:"Absolute path"`
	Size    int64     `json:"size" doc:"Size in bytes"`
	ModTime time.Time `json:"mod_time" doc:"Last modification time"`
}

// IsVideo reports whether path has one of the video extensions.
func IsVideo(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

// List walks dir and returns its video files sorted by path. Hidden
// directories are skipped. Unreadable subdirectories are skipped; an
// unreadable dir is an error.
func List(dir string) ([]File, error) {
	if dir == "" {
		return nil, errors.New("media directory is not configured")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media directory: %w", err)
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsVideo(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, File{
			Name:    d.Name(),
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list media in %s: %w", dir, err)
	}
	return files, nil
}
