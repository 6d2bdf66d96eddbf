package patch

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/framing"
)

func crc32Of(data []byte) uint32 { return crc32.ChecksumIEEE(data) }

// Options configures one patch-server session (spec.md §4.10). Accounts
// is optional — when nil, credential checks are skipped entirely, the
// retail behavior for a patch listener with no configured account gate.
type Options struct {
	Accounts               *account.Index
	AllowUnregisteredUsers bool
	Message                string
	Tree                   *Tree // nil means "no patch index" (spec's else branch)
}

// credentials is what the client's CmdLoginRequest reply carries: a PC
// patch client sends plain username/password (BB's patch listener reuses
// the same login request/response shape per spec.md §4.10).
type credentials struct {
	Username string
	Password string
}

func decodeLoginPayload(payload []byte) credentials {
	// PSO patch-login payloads are two fixed-width, NUL-terminated
	// strings; callers on real clients pad the rest with zeros, so a
	// length check beyond "at least the two fields" isn't meaningful —
	// truncate at the first NUL in each half.
	half := len(payload) / 2
	if half == 0 {
		return credentials{}
	}
	return credentials{
		Username: cString(payload[:half]),
		Password: cString(payload[half:]),
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// reader wraps a Channel with a small pending-message queue so a single
// Recv() call that decoded more than one frame doesn't silently drop the
// extras — the patch protocol is strictly request/response but a fast
// client can still pipeline its next reply before this side asks for it.
type reader struct {
	ch      *channel.Channel
	pending []framing.Message
}

func (r *reader) next() (framing.Message, error) {
	for len(r.pending) == 0 {
		msgs, err := r.ch.Recv()
		if err != nil {
			return framing.Message{}, err
		}
		r.pending = msgs
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

// Serve drives one patch-server connection end to end (spec.md §4.10's
// six numbered steps), blocking until the client disconnects or an
// unrecoverable protocol error occurs. ch must already be constructed
// with fresh (unkeyed) ciphers; Serve performs the plaintext
// encryption-init handshake itself.
func Serve(ch *channel.Channel, serverKey, clientKey []byte, opts Options) error {
	if err := sendEncryptionInit(ch, serverKey, clientKey); err != nil {
		return err
	}
	if err := ch.SetCiphers(serverKey, clientKey); err != nil {
		return fmt.Errorf("patch: keying ciphers: %w", err)
	}

	if err := ch.Send(CmdLoginRequest, 0, nil); err != nil {
		return err
	}

	r := &reader{ch: ch}
	creds, err := r.next()
	if err != nil {
		return err
	}
	login := decodeLoginPayload(creds.Payload)

	if rejected, err := checkLogin(ch, opts, login); err != nil || rejected {
		return err
	}

	if opts.Message != "" {
		if err := sendMessageBox(ch, opts.Message); err != nil {
			return err
		}
	}

	if opts.Tree == nil {
		return serveEmptyTree(ch)
	}
	return serveTree(ch, r, opts.Tree)
}

// sendEncryptionInit sends the plaintext S_ServerInit_Patch_02: a
// copyright string (ignored by this implementation, no retail client
// validates it) followed by the two keys, per spec.md §4.1 ("The init
// command itself is sent plaintext").
func sendEncryptionInit(ch *channel.Channel, serverKey, clientKey []byte) error {
	buf := make([]byte, 0, 44+8)
	buf = append(buf, []byte("Patch Server. Copyright SonicTeam, LTD. 2001")...)
	for len(buf) < 44 {
		buf = append(buf, 0)
	}
	buf = append(buf, serverKey...)
	buf = append(buf, clientKey...)
	return ch.Send(CmdEncryptionInit, 0, buf)
}

func sendMessageBox(ch *channel.Channel, text string) error {
	buf := append([]byte(text), 0, 0)
	for len(buf)&3 != 0 {
		buf = append(buf, 0)
	}
	return ch.Send(CmdMessageBox, 0, buf)
}

// checkLogin mirrors PatchServer.cc's on_04: empty credentials always
// pass, a bare username is checked against AllowUnregisteredUsers, and a
// username+password pair is checked with from_bb_credentials. Returns
// rejected=true if the caller already sent a rejection and disconnect is
// warranted.
func checkLogin(ch *channel.Channel, opts Options, login credentials) (rejected bool, err error) {
	if opts.Accounts == nil || login.Username == "" {
		return false, nil
	}
	if login.Password != "" {
		_, lookupErr := opts.Accounts.FromBBCredentials(login.Username, login.Password, "", false)
		switch lookupErr {
		case nil:
			return false, nil
		case account.ErrIncorrectPassword:
			return true, sendLoginReject(ch, LoginResultIncorrectPassword)
		case account.ErrMissingAccount:
			if opts.AllowUnregisteredUsers {
				return false, nil
			}
			return true, sendLoginReject(ch, LoginResultMissingAccount)
		default:
			return true, sendLoginReject(ch, LoginResultMissingAccount)
		}
	}
	if !opts.AllowUnregisteredUsers {
		if _, lookupErr := opts.Accounts.FromBBCredentials(login.Username, "", "", false); lookupErr == account.ErrMissingAccount {
			return true, sendLoginReject(ch, LoginResultMissingAccount)
		}
	}
	return false, nil
}

func sendLoginReject(ch *channel.Channel, code uint32) error {
	return ch.Send(CmdLoginResult, code, nil)
}

// serveEmptyTree reproduces the "no patch index present" branch: enter a
// few fixed directories, exit them, and end the update without checking
// any files.
func serveEmptyTree(ch *channel.Channel) error {
	for _, dir := range []string{".", "data", "scene"} {
		if err := sendEnterDirectory(ch, dir); err != nil {
			return err
		}
	}
	for i := 0; i < 3; i++ {
		if err := ch.Send(CmdExitDirectory, 0, nil); err != nil {
			return err
		}
	}
	return ch.Send(CmdEndOfUpdate, 0, nil)
}

func sendEnterDirectory(ch *channel.Channel, dir string) error {
	buf := append([]byte(dir), 0)
	return ch.Send(CmdEnterDirectory, 0, buf)
}

type pathCursor struct {
	dirs []string
}

// changeTo mirrors PatchServer::change_to_directory: exit every leaf
// directory that isn't a prefix of target, then enter whatever's left.
func (p *pathCursor) changeTo(ch *channel.Channel, target []string) error {
	for len(p.dirs) > 0 {
		matches := len(p.dirs) <= len(target) && commonPrefixLen(p.dirs, target) == len(p.dirs)
		if matches {
			break
		}
		if err := ch.Send(CmdExitDirectory, 0, nil); err != nil {
			return err
		}
		p.dirs = p.dirs[:len(p.dirs)-1]
	}
	for len(p.dirs) < len(target) {
		dir := target[len(p.dirs)]
		if err := sendEnterDirectory(ch, dir); err != nil {
			return err
		}
		p.dirs = append(p.dirs, dir)
	}
	return nil
}

func serveTree(ch *channel.Channel, r *reader, tree *Tree) error {
	if err := ch.Send(CmdStartSession, 0, nil); err != nil {
		return err
	}

	cursor := &pathCursor{}
	for i, f := range tree.Files {
		if err := cursor.changeTo(ch, dirComponents(f.RelPath)); err != nil {
			return err
		}
		req := make([]byte, 4+len(f.RelPath)+1)
		binary.LittleEndian.PutUint32(req[0:4], uint32(i))
		copy(req[4:], f.RelPath)
		if err := ch.Send(CmdChecksumRequest, 0, req); err != nil {
			return err
		}
	}
	if err := cursor.changeTo(ch, nil); err != nil {
		return err
	}
	if err := ch.Send(CmdEndChecksumRequests, 0, nil); err != nil {
		return err
	}

	reported := make(map[string]ClientChecksum, len(tree.Files))
	for range tree.Files {
		msg, err := r.next()
		if err != nil {
			return err
		}
		if msg.Command != CmdChecksumResponse || len(msg.Payload) < 12 {
			continue
		}
		idx := binary.LittleEndian.Uint32(msg.Payload[0:4])
		if int(idx) >= len(tree.Files) {
			continue
		}
		crc := binary.LittleEndian.Uint32(msg.Payload[4:8])
		size := binary.LittleEndian.Uint32(msg.Payload[8:12])
		f := tree.Files[idx]
		reported[f.RelPath] = ClientChecksum{RelPath: f.RelPath, CRC32: crc, Size: int64(size)}
	}

	mismatched := tree.Diff(reported)
	if len(mismatched) > 0 {
		var totalBytes uint32
		for _, f := range mismatched {
			totalBytes += uint32(len(f.Data))
		}
		start := make([]byte, 8)
		binary.LittleEndian.PutUint32(start[0:4], uint32(len(mismatched)))
		binary.LittleEndian.PutUint32(start[4:8], totalBytes)
		if err := ch.Send(CmdStartFileDownloads, 0, start); err != nil {
			return err
		}

		cursor = &pathCursor{}
		for _, f := range mismatched {
			if err := cursor.changeTo(ch, dirComponents(f.RelPath)); err != nil {
				return err
			}
			if err := sendFile(ch, f); err != nil {
				return err
			}
		}
		if err := cursor.changeTo(ch, nil); err != nil {
			return err
		}
	}

	return ch.Send(CmdEndOfUpdate, 0, nil)
}

func sendFile(ch *channel.Channel, f File) error {
	open := make([]byte, 4+4+len(f.RelPath)+1)
	binary.LittleEndian.PutUint32(open[4:8], uint32(len(f.Data)))
	copy(open[8:], f.RelPath)
	if err := ch.Send(CmdOpenFile, 0, open); err != nil {
		return err
	}
	for i, chunk := range Chunks(f.Data) {
		hdr := make([]byte, 8+len(chunk))
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(i))
		binary.LittleEndian.PutUint32(hdr[4:8], crc32Of(chunk))
		copy(hdr[8:], chunk)
		if err := ch.Send(CmdWriteFile, 0, hdr); err != nil {
			return err
		}
	}
	return ch.Send(CmdCloseFile, 0, nil)
}

func dirComponents(relPath string) []string {
	dir := dirOf(relPath)
	if dir == "." {
		return nil
	}
	return splitPath(dir)
}

