package psoserver

import (
	"encoding/binary"
	"net"

	"github.com/fuzzpoint/psoserver/internal/account"
	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// loginPayloadPrefix, fieldLen and characterFieldLen describe the
// minimal, documented layout this implementation reads from the login
// commands named in spec.md §8 scenario 1/2 (serial+access-key,
// username+password) and §4.3/§4.8's per-version handshake requirements.
// spec.md pins down the command numbers and the worked example values
// but not the full per-version struct layout (outside its scope per §1
// "file-format parsing helpers... beyond the fact that the runtime
// consumes them"); an 8-byte reserved prefix followed by fixed-width
// NUL-terminated ASCII fields is used uniformly here. The character-name
// field is additive and optional: it trails whatever fixed fields a given
// command already carries, and is simply absent ("") on payloads too
// short to contain it, so older two-field logins keep working unchanged.
const (
	loginPayloadPrefix = 8
	fieldLen           = 16
	characterFieldLen  = 16
)

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func parseTwoFields(payload []byte, fieldLen int) (a, b string) {
	if len(payload) < loginPayloadPrefix+2*fieldLen {
		return "", ""
	}
	body := payload[loginPayloadPrefix:]
	return cString(body[:fieldLen]), cString(body[fieldLen : 2*fieldLen])
}

// parseField extracts one NUL-terminated ASCII field of width flen
// starting at byte offset within the payload body (i.e. after
// loginPayloadPrefix). Returns "" when payload is too short to contain
// it, which is how optional trailing fields like character name degrade
// gracefully rather than erroring.
func parseField(payload []byte, offset, flen int) string {
	start := loginPayloadPrefix + offset
	if len(payload) < start+flen {
		return ""
	}
	return cString(payload[start : start+flen])
}

func parseThreeFields(payload []byte, flen int) (a, b, c string) {
	return parseField(payload, 0, flen), parseField(payload, flen, flen), parseField(payload, 2*flen, flen)
}

// parseXBLogin reads Xbox's binary user-id/account-id tuple followed by
// an ASCII gamertag field (spec.md §4.3: "login uses gamertag + user-id +
// account-id tuple from the Xbox Live handshake").
func parseXBLogin(payload []byte) (userID, accountID uint64, gamertag string) {
	start := loginPayloadPrefix
	if len(payload) < start+16 {
		return 0, 0, ""
	}
	userID = binary.LittleEndian.Uint64(payload[start : start+8])
	accountID = binary.LittleEndian.Uint64(payload[start+8 : start+16])
	gamertag = parseField(payload, 16, fieldLen)
	return
}

// runLoginServer drives one LOGIN_SERVER connection: plaintext
// encryption-init handshake, one version-appropriate credential command,
// an account-index lookup, and — on success — a reconnect to the
// LOBBY_SERVER listener configured for the same version (spec.md §4.3).
func (s *ServerState) runLoginServer(ch *channel.Channel, pc config.PortConfiguration) {
	serverKey, clientKey, err := generateKeys(pc.Version)
	if err != nil {
		s.Logger.Error("login: generating keys", "error", err)
		_ = ch.Close()
		return
	}
	if err := sendEncryptionInit(ch, encryptionInitCommand(pc.Version), serverKey, clientKey); err != nil {
		s.Logger.Warn("login: handshake failed", "error", err)
		return
	}

	msgs, err := ch.Recv()
	if err != nil || len(msgs) == 0 {
		return
	}
	msg := msgs[0]

	login, rejectErr := s.authenticate(pc.Version, msg.Command, msg.Payload)
	if rejectErr != nil {
		s.rejectLogin(ch, pc.Version, rejectErr)
		return
	}
	if login == nil {
		s.Logger.Warn("login: unexpected command for version", "command", msg.Command, "version", pc.Version)
		return
	}

	client := session.NewClient(ch, pc.Version, session.LoginServer)
	client.SetLogin(login)
	s.AddClient(ch, client)
	defer s.RemoveClient(ch)

	target, ok := s.findLobbyListener(pc.Version)
	if !ok {
		s.Logger.Error("login: no LOBBY_SERVER listener configured for version", "version", pc.Version)
		_ = ch.Close()
		return
	}
	s.sendReconnect(ch, target)
	_ = ch.Close()
}

// authenticate dispatches to the version-appropriate credential path
// (spec.md §4.3's six per-version handshake requirements). Returns (nil,
// nil) if cmd isn't a recognized login command for v.
//
// Character name, when the wire payload carries it, is folded into the
// shared-account variation (spec.md §4.8, §8 scenario 4) by the
// account.From*Credentials call itself; BB's character data arrives on a
// later, separate round trip (spec.md §4.3) this implementation doesn't
// yet model, so BB logins pass "" here.
func (s *ServerState) authenticate(v version.Version, cmd uint16, payload []byte) (*session.Login, error) {
	switch {
	case v == version.BB && cmd == CmdBBLogin:
		username, password := parseTwoFields(payload, fieldLen)
		result, err := s.Accounts.FromBBCredentials(username, password, "", s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{Account: result.Account, Kind: session.CredentialBB, Username: username}, nil

	case v == version.DCNTE && cmd == CmdDCNTELogin:
		serial, accessKey := parseTwoFields(payload, fieldLen)
		characterName := parseField(payload, 2*fieldLen, characterFieldLen)
		result, err := s.Accounts.FromDCNTECredentials(serial, accessKey, characterName, s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{
			Account:       result.Account,
			Kind:          session.CredentialDCNTE,
			AccessKey:     accessKey,
			CharacterName: characterName,
		}, nil

	case v.IsDC() && v != version.DCNTE && cmd == CmdDCLogin:
		serial, accessKey := parseTwoFields(payload, fieldLen)
		serialNum := decimalToUint32(serial)
		characterName := parseField(payload, 2*fieldLen, characterFieldLen)
		kind := session.CredentialDCv1
		if v == version.DCV2 {
			kind = session.CredentialDCv2
		}
		result, err := s.Accounts.FromDCCredentials(v == version.DCV2, serialNum, accessKey, characterName, s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{
			Account:       result.Account,
			Kind:          kind,
			Serial:        serialNum,
			AccessKey:     accessKey,
			CharacterName: characterName,
		}, nil

	case v == version.PCV2 && cmd == CmdPCLogin:
		serial, accessKey := parseTwoFields(payload, fieldLen)
		serialNum := decimalToUint32(serial)
		characterName := parseField(payload, 2*fieldLen, characterFieldLen)
		result, err := s.Accounts.FromPCCredentials(serialNum, accessKey, characterName, s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{
			Account:       result.Account,
			Kind:          session.CredentialPCv2,
			Serial:        serialNum,
			AccessKey:     accessKey,
			CharacterName: characterName,
		}, nil

	case v.IsGC() && cmd == CmdGCLogin:
		serial, accessKey, password := parseThreeFields(payload, fieldLen)
		serialNum := decimalToUint32(serial)
		characterName := parseField(payload, 3*fieldLen, characterFieldLen)
		result, err := s.Accounts.FromGCCredentials(serialNum, accessKey, password, characterName, s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{
			Account:       result.Account,
			Kind:          session.CredentialGC,
			Serial:        serialNum,
			AccessKey:     accessKey,
			CharacterName: characterName,
		}, nil

	case v == version.XB && cmd == CmdXBLogin:
		userID, accountID, gamertag := parseXBLogin(payload)
		characterName := parseField(payload, 16+fieldLen, characterFieldLen)
		result, err := s.Accounts.FromXBCredentials(userID, accountID, gamertag, characterName, s.Config.AllowUnregisteredUsers)
		if err != nil {
			return nil, err
		}
		return &session.Login{
			Account:       result.Account,
			Kind:          session.CredentialXB,
			XBUserID:      userID,
			XBAccountID:   accountID,
			CharacterName: characterName,
		}, nil

	default:
		return nil, nil
	}
}

func decimalToUint32(s string) uint32 {
	var n uint32
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + uint32(c-'0')
	}
	return n
}

// rejectLogin maps an account.Err* to the version's standard rejection
// screen (spec.md §7): a banned account gets a message box then
// disconnect; every other failure disconnects without one (the client's
// own login-reject UI is driven by an error code this implementation
// doesn't attempt to reproduce bit-exactly per version).
func (s *ServerState) rejectLogin(ch *channel.Channel, v version.Version, err error) {
	if err == account.ErrAccountBanned {
		text := s.Config.BanMessage
		if text == "" {
			text = "Your account has been banned."
		}
		buf := append([]byte(text), 0)
		for len(buf)&3 != 0 {
			buf = append(buf, 0)
		}
		_ = ch.Send(CmdMessageBox, 0, buf)
	}
	s.Logger.Info("login rejected", "version", v, "error", err)
	_ = ch.Close()
}

func (s *ServerState) findLobbyListener(v version.Version) (config.PortConfiguration, bool) {
	for _, l := range s.Config.Listeners {
		if l.Version == v && l.Behavior == session.LobbyServer {
			return l, true
		}
	}
	return config.PortConfiguration{}, false
}

// sendReconnect resolves the LAN/WAN address for target relative to ch's
// peer and sends the reconnect command (spec.md §4.3 "Reconnect
// contract").
func (s *ServerState) sendReconnect(ch *channel.Channel, target config.PortConfiguration) {
	addrs := session.ListenerAddresses{
		Local:    net.ParseIP(s.Config.LocalAddress),
		External: net.ParseIP(s.Config.ExternalAddress),
		Port:     target.Port,
	}
	clientIP := net.ParseIP(ch.IP())
	ep := session.ResolveEndpoint(clientIP, addrs)
	_ = ch.Send(session.CmdReconnect, 0, session.BuildReconnectPayload(ep))
}
