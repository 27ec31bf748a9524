// Package artifact names and persists finished recordings.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultPrefix names recordings when the caller passes none.
const DefaultPrefix = "recorder"

const defaultExt = ".m4a"

var (
	unsafeChars = regexp.MustCompile(`[/\\?%*:|"<>]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
	extPattern  = regexp.MustCompile(`(?i)\.[a-z0-9]+$`)
)

// BuildName returns prefix-YYYYMMDD-HHMMSS.ext using src's extension.
func BuildName(src string, prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ext := strings.ToLower(filepath.Ext(src))
	if ext == "" || ext == "." {
		ext = defaultExt
	}
	return prefix + "-" + t.Format("20060102-150405") + ext
}

// Options controls where and how a temporary file is persisted.
type Options struct {
	// Dir is the recordings root.
	Dir string
	// Subdir is created under Dir. Defaults to "recordings".
	Subdir string
	// Overwrite replaces an existing file instead of suffixing the name.
	Overwrite bool
	// Filename forces the final name. The source extension is kept when
	// Filename has none.
	Filename string
}

// Saved describes a persisted artifact.
type Saved struct {
	URI  string
	Name string
	Size int64
}

// Persist moves src into durable storage and returns its final location.
func Persist(src string, opts Options) (Saved, error) {
	src = strings.TrimPrefix(src, "file://")
	if src == "" {
		return Saved{}, errors.New("artifact source is empty")
	}
	if opts.Dir == "" {
		return Saved{}, errors.New("artifact directory is empty")
	}

	subdir := strings.Trim(opts.Subdir, "/")
	if opts.Subdir == "" {
		subdir = "recordings"
	}
	dir := filepath.Join(opts.Dir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create artifact dir: %w", err)
	}

	srcName := filepath.Base(src)
	srcExt := extPattern.FindString(srcName)

	name := sanitize(opts.Filename)
	if name == "" {
		name = sanitize(srcName)
	} else if !extPattern.MatchString(name) {
		name += srcExt
	}

	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		if opts.Overwrite {
			if err := os.Remove(dest); err != nil {
				return Saved{}, fmt.Errorf("replace artifact: %w", err)
			}
		} else {
			name = uniqueName(name, time.Now())
			dest = filepath.Join(dir, name)
		}
	}

	if err := move(src, dest); err != nil {
		return Saved{}, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return Saved{}, fmt.Errorf("stat artifact: %w", err)
	}
	return Saved{URI: dest, Name: name, Size: info.Size()}, nil
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = spaceRuns.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func uniqueName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s-%d%s", stem, now.UnixMilli(), ext)
}

// move renames src to dest, copying when they live on different filesystems.
func move(src string, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	_ = in.Close()
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove artifact source: %w", err)
	}
	return nil
}

// Discard removes an unwanted temporary capture. A missing file is not an error.
func Discard(src string) error {
	src = strings.TrimPrefix(src, "file://")
	if src == "" {
		return nil
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard artifact: %w", err)
	}
	return nil
}
