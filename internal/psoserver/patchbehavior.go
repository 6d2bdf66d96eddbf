package psoserver

import (
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/patch"
)

var (
	patchTreeOnce sync.Once
	patchTree     *patch.Tree
	patchTreeErr  error
)

// loadPatchTree walks dir once per process and builds the patch.Tree
// served to every PATCH_SERVER connection (spec.md §4.10: the tree is
// immutable shared data loaded at startup, like the item tables).
func loadPatchTree(dir string) (*patch.Tree, error) {
	patchTreeOnce.Do(func() {
		var files []patch.File
		walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			data, readErr := os.ReadFile(p)
			if readErr != nil {
				return readErr
			}
			rel, relErr := filepath.Rel(dir, p)
			if relErr != nil {
				return relErr
			}
			files = append(files, patch.File{RelPath: filepath.ToSlash(rel), Data: data})
			return nil
		})
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				patchTree = patch.NewTree(nil)
				return
			}
			patchTreeErr = walkErr
			return
		}
		patchTree = patch.NewTree(files)
	})
	return patchTree, patchTreeErr
}

// runPatchServer drives one PATCH_SERVER or DATA_SERVER_BB connection
// (spec.md §4.10). Both behaviors speak the same patch protocol; only the
// configured tree differs per deployment (Config.PatchDir).
func (s *ServerState) runPatchServer(conn net.Conn, pc config.PortConfiguration) {
	serverKey, clientKey, err := generateKeys(pc.Version)
	if err != nil {
		s.Logger.Error("patch: generating keys", "error", err)
		_ = conn.Close()
		return
	}

	tree, err := loadPatchTree(s.Config.PatchDir)
	if err != nil {
		s.Logger.Error("patch: loading tree", "error", err)
		_ = conn.Close()
		return
	}

	ch := channel.NewNoCipher(conn, pc.Version, s.Logger)
	opts := patch.Options{
		Accounts:               s.Accounts,
		AllowUnregisteredUsers: s.Config.AllowUnregisteredUsers,
		Message:                s.Config.PatchMessage,
		Tree:                   tree,
	}
	if err := patch.Serve(ch, serverKey, clientKey, opts); err != nil {
		s.Logger.Info("patch session ended", "error", err)
	}
}
