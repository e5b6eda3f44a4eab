package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/filevault/vaultctl/internal/upload"
)

// FileInfo represents information about a local file
type FileInfo struct {
	Path     string
	Size     int64
	Checksum string
	MimeType string
}

// KnownMimeTypes are the types the service's filter offers.
var KnownMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"text/plain",
	"application/zip",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// CalculateChecksum calculates SHA256 checksum of a file
func CalculateChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// DiscoverFiles expands the given files and directories into the files to
// upload, excluding paths matching any of the exclude patterns. Files
// named directly are kept even if a pattern matches them; directories are
// walked in lexical order. A file reached twice is listed once.
func DiscoverFiles(paths []string, excludePatterns []string) ([]FileInfo, error) {
	// Compile exclude patterns
	excludeRegexps := make([]*regexp.Regexp, 0, len(excludePatterns))
	for _, pattern := range excludePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		excludeRegexps = append(excludeRegexps, re)
	}
	excluded := func(path string) bool {
		for _, re := range excludeRegexps {
			if re.MatchString(path) {
				return true
			}
		}
		return false
	}

	var files []FileInfo
	seen := make(map[string]bool)
	add := func(path string, size int64) {
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, FileInfo{
			Path:     path,
			Size:     size,
			MimeType: DetectMimeType(path),
		})
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for %q: %w", p, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", p, err)
		}
		if !info.IsDir() {
			add(absPath, info.Size())
			continue
		}

		err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if path != absPath && excluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() || excluded(path) {
				return nil
			}

			add(path, info.Size())
			return nil
		})

		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %q: %w", p, err)
		}
	}

	return files, nil
}

// DetectMimeType guesses a MIME type from the file extension
func DetectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	mimeTypes := map[string]string{
		".txt":  "text/plain",
		".md":   "text/markdown",
		".csv":  "text/csv",
		".json": "application/json",
		".pdf":  "application/pdf",
		".zip":  "application/zip",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}

	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		if base, _, err := mime.ParseMediaType(m); err == nil {
			return base
		}
	}
	return "application/octet-stream"
}

// FilterByPattern keeps the items whose name matches a regex pattern
func FilterByPattern[T any](items []T, name func(T) string, pattern string) ([]T, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var filtered []T
	for _, it := range items {
		if re.MatchString(name(it)) {
			filtered = append(filtered, it)
		}
	}
	return filtered, nil
}

// FindDuplicates computes checksums for files and returns the groups of
// two or more files with identical content, each group in input order.
// Checksums are stored back into files.
func FindDuplicates(files []FileInfo) ([][]FileInfo, error) {
	byChecksum := make(map[string][]FileInfo)
	var order []string
	for i := range files {
		sum, err := CalculateChecksum(files[i].Path)
		if err != nil {
			return nil, err
		}
		files[i].Checksum = sum
		if _, ok := byChecksum[sum]; !ok {
			order = append(order, sum)
		}
		byChecksum[sum] = append(byChecksum[sum], files[i])
	}

	var dups [][]FileInfo
	for _, sum := range order {
		if group := byChecksum[sum]; len(group) > 1 {
			dups = append(dups, group)
		}
	}
	sort.SliceStable(dups, func(i, j int) bool {
		return dups[i][0].Path < dups[j][0].Path
	})
	return dups, nil
}

// Tasks turns discovered files into an upload batch in the same order.
func Tasks(files []FileInfo) ([]upload.Task, error) {
	tasks := make([]upload.Task, 0, len(files))
	for _, f := range files {
		t, err := upload.FromFile(f.Path)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
