package psoserver

import (
	"crypto/rand"
	"fmt"

	"github.com/fuzzpoint/psoserver/internal/channel"
	"github.com/fuzzpoint/psoserver/internal/cipher"
	"github.com/fuzzpoint/psoserver/internal/version"
)

// generateKeys produces fresh server_key/client_key material sized for
// v's cipher family: 4 bytes for every family except Blue Burst, which
// expands a 48-byte key (spec.md §4.1).
func generateKeys(v version.Version) (serverKey, clientKey []byte, err error) {
	n := cipher.KeySize(v)
	serverKey = make([]byte, n)
	clientKey = make([]byte, n)
	if _, err = rand.Read(serverKey); err != nil {
		return nil, nil, fmt.Errorf("psoserver: generating server key: %w", err)
	}
	if _, err = rand.Read(clientKey); err != nil {
		return nil, nil, fmt.Errorf("psoserver: generating client key: %w", err)
	}
	return serverKey, clientKey, nil
}

// sendEncryptionInit sends the plaintext encryption-init command for the
// login/lobby listeners and keys ch's ciphers from it (spec.md §4.1:
// "The server then keys its output cipher with server_key and its input
// cipher with client_key... The init command itself is sent plaintext").
// cmd is CmdLoginInitNonBB or CmdLoginInitBB depending on v.
func sendEncryptionInit(ch *channel.Channel, cmd uint16, serverKey, clientKey []byte) error {
	buf := append(append([]byte{}, serverKey...), clientKey...)
	if err := ch.Send(cmd, 0, buf); err != nil {
		return err
	}
	return ch.SetCiphers(serverKey, clientKey)
}

// encryptionInitCommand picks the version-appropriate encryption-init
// command number (spec.md §8 scenario 1 names 0x17 for the PC login
// listener; Blue Burst's longer key material is conventionally carried
// on a distinct command number, 0x03, across PSO server implementations).
func encryptionInitCommand(v version.Version) uint16 {
	if v == version.BB {
		return CmdLoginInitBB
	}
	return CmdLoginInitNonBB
}
