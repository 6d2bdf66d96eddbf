// Package patch implements the pre-login patch protocol (spec.md §4.10):
// a directory-tree sync that runs before the main game protocol is
// spoken. No direct teacher analog exists (the teacher has no pre-login
// file-sync step); this is built from internal/channel + internal/framing
// primitives following the teacher's request/response handler-table idiom
// (internal/login/handler.go), with the directory-walk-with-checksum
// logic written directly from spec.md §4.10's literal step list.
package patch

import (
	"hash/crc32"
	"path"
	"sort"
)

// Command numbers for the patch protocol (spec.md §4.10, resolved against
// original_source/src/PatchServer.cc since spec.md itself only gives the
// step list, not the literal wire numbers).
const (
	CmdEncryptionInit       uint16 = 0x02
	CmdLoginRequest         uint16 = 0x04 // server->client: "send your login info"
	CmdOpenFile             uint16 = 0x06
	CmdWriteFile            uint16 = 0x07
	CmdCloseFile            uint16 = 0x08
	CmdEnterDirectory       uint16 = 0x09
	CmdExitDirectory        uint16 = 0x0A
	CmdStartSession         uint16 = 0x0B // begin patch session, client resets to root
	CmdChecksumRequest      uint16 = 0x0C
	CmdEndChecksumRequests  uint16 = 0x0D
	CmdChecksumResponse     uint16 = 0x0F
	CmdClientDoneChecksums  uint16 = 0x10 // client->server: all checksum responses sent
	CmdStartFileDownloads   uint16 = 0x11
	CmdEndOfUpdate          uint16 = 0x12
	CmdMessageBox           uint16 = 0x13
	CmdLoginResult          uint16 = 0x15
)

// Login-result flag values sent with CmdLoginResult (original_source
// PatchServer.cc on_04: 0x03 = incorrect password, 0x08 = missing
// account).
const (
	LoginResultIncorrectPassword uint32 = 0x03
	LoginResultMissingAccount    uint32 = 0x08
)

// WriteChunkSize is the chunk size CmdWriteFile payloads are split into
// (spec.md §4.10 step 5).
const WriteChunkSize = 0x4000

// File is one entry in the patch tree: its path relative to the patch
// root and its on-disk contents (loaded once at startup, §6 "Item and
// stat tables"-style immutable shared data).
type File struct {
	RelPath string
	Data    []byte
}

// CRC32 returns the file's checksum, which Diff compares against the CRC
// the client reports in CmdChecksumResponse.
func (f File) CRC32() uint32 {
	return crc32.ChecksumIEEE(f.Data)
}

// Tree is a sorted, flattened view of a patch directory, used for the
// common-prefix directory walk (spec.md §4.10 invariant).
type Tree struct {
	Files []File
}

// NewTree sorts files by path and returns a Tree ready for walking. The
// common-prefix walk below requires lexicographic order.
func NewTree(files []File) *Tree {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })
	return &Tree{Files: sorted}
}

// dirOf returns the directory component of a relative path, using
// forward slashes as the protocol does regardless of host OS.
func dirOf(relPath string) string {
	return path.Dir(relPath)
}

// WalkStep is one emitted instruction during the directory walk: either
// "exit N directories then enter these" or "check this file".
type WalkStep struct {
	ExitCount int      // number of ExitDirectory commands to send first
	EnterDirs []string // directory names to EnterDirectory into, in order
	File      *File    // non-nil on a file-check step
}

// Walk produces the EnterDirectory/ExitDirectory/file-check sequence for
// the whole tree, keeping the client's directory pointer in sync with
// the server's traversal via "exit current, enter next" commands (spec.md
// §4.10 invariant: "a common-prefix walk over pre-sorted file paths").
func (t *Tree) Walk() []WalkStep {
	var steps []WalkStep
	var curDirs []string // current directory path, as path components

	for i := range t.Files {
		f := &t.Files[i]
		targetDir := dirOf(f.RelPath)
		var targetDirs []string
		if targetDir != "." {
			targetDirs = splitPath(targetDir)
		}

		common := commonPrefixLen(curDirs, targetDirs)
		exitCount := len(curDirs) - common
		enterDirs := targetDirs[common:]

		if exitCount > 0 || len(enterDirs) > 0 {
			steps = append(steps, WalkStep{ExitCount: exitCount, EnterDirs: enterDirs})
		}
		steps = append(steps, WalkStep{File: f})
		curDirs = targetDirs
	}

	if len(curDirs) > 0 {
		steps = append(steps, WalkStep{ExitCount: len(curDirs)})
	}
	return steps
}

func splitPath(p string) []string {
	var parts []string
	for _, seg := range splitSlash(p) {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

func splitSlash(p string) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[start:i])
			start = i + 1
		}
	}
	out = append(out, p[start:])
	return out
}

func commonPrefixLen(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// ClientChecksum is what the client reports back for one file (spec.md
// §4.10 step 4).
type ClientChecksum struct {
	RelPath string
	CRC32   uint32
	Size    int64
}

// Diff compares the tree's expected checksums against what the client
// reported and returns the files that differ (need downloading).
func (t *Tree) Diff(reported map[string]ClientChecksum) []File {
	var mismatched []File
	for _, f := range t.Files {
		rc, ok := reported[f.RelPath]
		if !ok || rc.CRC32 != f.CRC32() || rc.Size != int64(len(f.Data)) {
			mismatched = append(mismatched, f)
		}
	}
	return mismatched
}

// Chunks splits data into WriteChunkSize-sized pieces for CmdWriteFile.
func Chunks(data []byte) [][]byte {
	var chunks [][]byte
	for off := 0; off < len(data); off += WriteChunkSize {
		end := off + WriteChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[off:end])
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}
	return chunks
}
