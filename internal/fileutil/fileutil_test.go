package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestDiscoverFiles(t *testing.T) {
	root := tree(t, map[string]string{
		"a.txt":            "aaa",
		"b.pdf":            "bb",
		"skip/c.txt":       "c",
		"nested/d.png":     "dddd",
		"nested/e.tmp":     "e",
		"nested/deep/f.md": "f",
	})

	files, err := DiscoverFiles([]string{root, filepath.Join(root, "a.txt")}, []string{`/skip$`, `\.tmp$`})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		names = append(names, rel)
	}
	assert.Equal(t, []string{"a.txt", "b.pdf", filepath.Join("nested", "d.png"), filepath.Join("nested", "deep", "f.md")}, names)
	assert.Equal(t, "image/png", files[2].MimeType)
	assert.Equal(t, int64(4), files[2].Size)
}

func TestDiscoverFilesErrors(t *testing.T) {
	_, err := DiscoverFiles([]string{"."}, []string{"("})
	assert.Error(t, err)

	_, err = DiscoverFiles([]string{filepath.Join(t.TempDir(), "missing")}, nil)
	assert.Error(t, err)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMimeType("x.PDF"))
	assert.Equal(t, "image/jpeg", DetectMimeType("x.jpeg"))
	assert.Equal(t, "application/octet-stream", DetectMimeType("x.unknownext"))
}

func TestFindDuplicates(t *testing.T) {
	root := tree(t, map[string]string{"a": "same", "b": "other", "c": "same"})
	files, err := DiscoverFiles([]string{root}, nil)
	require.NoError(t, err)

	dups, err := FindDuplicates(files)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	require.Len(t, dups[0], 2)
	assert.Equal(t, "a", filepath.Base(dups[0][0].Path))
	assert.Equal(t, "c", filepath.Base(dups[0][1].Path))
	assert.Len(t, files[0].Checksum, 64)
}

func TestFilterByPattern(t *testing.T) {
	names := []string{"report.pdf", "photo.png", "report-old.pdf"}
	got, err := FilterByPattern(names, func(s string) string { return s }, `^report.*\.pdf$`)
	require.NoError(t, err)
	assert.Equal(t, []string{"report.pdf", "report-old.pdf"}, got)

	_, err = FilterByPattern(names, func(s string) string { return s }, "[")
	assert.Error(t, err)
}

func TestTasks(t *testing.T) {
	root := tree(t, map[string]string{"one.txt": "1", "two.txt": "22"})
	files, err := DiscoverFiles([]string{root}, nil)
	require.NoError(t, err)

	tasks, err := Tasks(files)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "one.txt", tasks[0].Name)
	assert.Equal(t, int64(2), tasks[1].Size)
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := &DirSink{Dir: dir}

	require.NoError(t, sink.TriggerDownload("report.pdf", strings.NewReader("one")))
	require.NoError(t, sink.TriggerDownload("../../report.pdf", strings.NewReader("two")))

	saved := sink.Saved()
	require.Len(t, saved, 2)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), saved[0])
	assert.Equal(t, filepath.Join(dir, "report (1).pdf"), saved[1])

	data, err := os.ReadFile(saved[1])
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
