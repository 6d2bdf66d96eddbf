package session

import (
	"hash/fnv"

	"github.com/fuzzpoint/psoserver/internal/account"
)

// CredentialKind discriminates which of the six platform credential
// families authenticated a Login. Exactly one is non-null in the
// resulting object (spec.md §3 "Login").
type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	CredentialDCNTE
	CredentialDCv1
	CredentialDCv2
	CredentialPCv2
	CredentialGC
	CredentialXB
	CredentialBB
)

// Login is the short-lived object produced by a successful credential
// lookup (spec.md §3). It references the authenticated Account and the
// specific credential variant used, and can derive a proxy session id
// that lets the proxy layer associate reconnects with prior sessions.
type Login struct {
	Account *account.Account
	Kind    CredentialKind

	// One of the following is populated according to Kind; the rest are
	// zero. These mirror the natural keys in the account package's
	// credential tables (spec.md §3 table).
	Serial     uint32 // DC-NTE (as decimal string upstream), DC, PC, GC
	AccessKey  string // DC-NTE, DC, PC, GC
	Username   string // BB
	XBUserID   uint64
	XBAccountID uint64

	// CharacterName is the name parsed off the login payload's trailing
	// optional field (DC-NTE/DC/PC/GC/XB) or off the character-select
	// round trip (BB, not yet modeled — empty for now). It feeds the
	// shared-account variation string (spec.md §4.8) so two characters on
	// one IS_SHARED_ACCOUNT account derive distinct ids.
	CharacterName string
}

// ProxySessionID derives the 64-bit id the proxy layer uses to associate
// a reconnect with this Login: the account id shifted left 32 bits, ORed
// with a credential-dependent low part (spec.md §3).
func (l *Login) ProxySessionID() uint64 {
	high := uint64(l.Account.AccountID) << 32
	switch l.Kind {
	case CredentialDCNTE, CredentialDCv1, CredentialDCv2, CredentialPCv2, CredentialGC:
		return high | uint64(l.Serial)
	case CredentialXB:
		return high | (l.XBUserID & 0xFFFFFFFF)
	case CredentialBB:
		return high | uint64(fnv1a32(l.Username))
	default:
		return high
	}
}

func fnv1a32(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
