// Package scanner finds action markers such as "#TODO:" in project files.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/evanschultz/kanban/internal/domain"
)

// Marker is one action marker found in a source file.
type Marker struct {
	Title      string        `json:"title" yaml:"title"`
	Status     domain.Status `json:"status" yaml:"status"`
	SourceFile string        `json:"source_file" yaml:"source_file"`
	LineNumber int           `json:"line_number" yaml:"line_number"`
}

// DefaultMaxFileBytes is the largest file a scan reads when no limit is configured.
const DefaultMaxFileBytes int64 = 4 << 20

// Options selects which files a scan reads.
type Options struct {
	Extensions []string
	IgnoreDirs []string
	// MaxFileBytes skips larger files; zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// DefaultExtensions lists the file extensions scanned when none are configured.
func DefaultExtensions() []string {
	return []string{".py", ".md", ".txt", ".js", ".ts", ".jsx", ".tsx", ".sh", ".c", ".cpp", ".h", ".go"}
}

// DefaultIgnoreDirs lists directory names pruned when none are configured.
func DefaultIgnoreDirs() []string {
	return []string{".git", ".venv", "__pycache__", ".pytest_cache", "node_modules", "build", "dist"}
}

// DefaultOptions returns the stock scan settings.
func DefaultOptions() Options {
	return Options{
		Extensions:   DefaultExtensions(),
		IgnoreDirs:   DefaultIgnoreDirs(),
		MaxFileBytes: DefaultMaxFileBytes,
	}
}

// markerPatterns maps marker keywords to lanes, checked in order on every line.
var markerPatterns = []struct {
	status  domain.Status
	pattern *regexp.Regexp
}{
	{domain.StatusTodo, regexp.MustCompile(`(?i)#\s*TODO:\s*(.*)`)},
	{domain.StatusDoing, regexp.MustCompile(`(?i)#\s*(?:REVIEW|DRAFT):\s*(.*)`)},
}

// Scan walks root and returns every marker in matching files, in walk order.
// Paths in the result are relative to root and slash separated.
func Scan(ctx context.Context, root string, opts Options) ([]Marker, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("scan root is not a directory: " + root)
	}

	exts := normalizeExtensions(opts.Extensions)
	ignore := opts.IgnoreDirs
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	out := []Marker{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			// Unreadable subtrees are skipped, the root itself is not.
			if path == root {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && slices.Contains(ignore, d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !exts[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if fi, err := d.Info(); err != nil || fi.Size() > maxBytes {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		markers, err := ScanFile(path, filepath.ToSlash(rel))
		if err != nil {
			return nil
		}
		out = append(out, markers...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ErrBinary reports a file that is not valid UTF-8 text.
var ErrBinary = errors.New("binary or non-utf8 content")

// ScanFile reads one file line by line and returns its markers labelled with sourceName.
// A NUL byte or invalid UTF-8 anywhere in the file yields ErrBinary.
func ScanFile(path, sourceName string) ([]Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanReader(f, sourceName)
}

// scanReader matches markers one line at a time.
func scanReader(r io.Reader, sourceName string) ([]Marker, error) {
	br := bufio.NewReader(r)
	var out []Marker
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if bytes.IndexByte(line, 0) >= 0 || !utf8.Valid(line) {
				return nil, ErrBinary
			}
			out = append(out, matchLine(string(line), sourceName, lineNo)...)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ScanText returns the markers found in text. Line numbers start at 1.
func ScanText(text, sourceName string) []Marker {
	var out []Marker
	for idx, line := range strings.Split(text, "\n") {
		out = append(out, matchLine(line, sourceName, idx+1)...)
	}
	return out
}

// matchLine returns the markers on one line.
func matchLine(line, sourceName string, lineNo int) []Marker {
	line = strings.TrimRight(line, "\r\n")
	var out []Marker
	for _, mp := range markerPatterns {
		match := mp.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		title := strings.TrimSpace(match[1])
		if title == "" {
			continue
		}
		out = append(out, Marker{
			Title:      title,
			Status:     mp.status,
			SourceFile: sourceName,
			LineNumber: lineNo,
		})
	}
	return out
}

// normalizeExtensions lowercases extensions and adds a missing leading dot.
func normalizeExtensions(in []string) map[string]bool {
	if len(in) == 0 {
		in = DefaultExtensions()
	}
	out := make(map[string]bool, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}
