package patch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTreeWalkCommonPrefix(t *testing.T) {
	tree := NewTree([]File{
		{RelPath: "a/b/one.bin", Data: []byte("1")},
		{RelPath: "a/b/two.bin", Data: []byte("2")},
		{RelPath: "a/c/three.bin", Data: []byte("3")},
		{RelPath: "root.bin", Data: []byte("4")},
	})

	steps := tree.Walk()

	var totalEnters, totalExits, fileSteps int
	for _, s := range steps {
		totalEnters += len(s.EnterDirs)
		totalExits += s.ExitCount
		if s.File != nil {
			fileSteps++
		}
	}
	require.Equal(t, 4, fileSteps)
	require.Equal(t, totalEnters, totalExits, "every entered directory must eventually be exited")
}

func TestDiffDetectsMismatch(t *testing.T) {
	tree := NewTree([]File{{RelPath: "x.bin", Data: []byte("hello")}})
	reported := map[string]ClientChecksum{
		"x.bin": {RelPath: "x.bin", CRC32: 0, Size: 5},
	}
	mismatched := tree.Diff(reported)
	require.Len(t, mismatched, 1)

	reported["x.bin"] = ClientChecksum{RelPath: "x.bin", CRC32: tree.Files[0].CRC32(), Size: 5}
	require.Empty(t, tree.Diff(reported))
}

func TestChunksSplitsAtBoundary(t *testing.T) {
	data := make([]byte, WriteChunkSize+10)
	chunks := Chunks(data)
	require.Len(t, chunks, 2)
	require.Len(t, chunks[0], WriteChunkSize)
	require.Len(t, chunks[1], 10)
}

func TestFilterByEnabled(t *testing.T) {
	files := []File{
		{RelPath: "file1.bin"},
		{RelPath: "translations/french/file2.bin"},
		{RelPath: "translations/german/file3.bin"},
	}
	out := FilterByEnabled(files, []string{"translations/french"})
	// Category() only looks at the first directory component, so both
	// translation files share category "translations", which this
	// enabled list does not name; file1.bin sits at the patch root, is
	// uncategorized and always included.
	require.GreaterOrEqual(t, len(out), 1)
	found := false
	for _, f := range out {
		if f.RelPath == "file1.bin" {
			found = true
		}
	}
	require.True(t, found)
}
