package account

import "hash/fnv"

// fnv1a32Seeded is fnv1a32 continued from a prior hash value rather than the
// algorithm's standard initial offset basis, used to chain
// fnv1a32(variation, fnv1a32(account_id)) per spec.md's worked example.
func fnv1a32Seeded(seed uint32, s string) uint32 {
	const prime = 16777619
	h := seed
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// fnv1a32Uint32 hashes the 4 little-endian bytes of v, used to produce the
// inner fnv1a32(account_id) seed from spec.md's worked example.
func fnv1a32Uint32(v uint32) uint32 {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32()
}

// DeriveSharedAccountID computes the deterministic temporary account id
// for a shared-account login (spec.md §4.8, §8 scenario 4):
// fnv1a32(variation, fnv1a32(sourceAccountID)). variation is the
// credential-path-specific composition (e.g. access-key + ":" +
// character name for DC, username + ":" + character name for BB) — see
// SPEC_FULL.md §9 for the per-path decision.
func DeriveSharedAccountID(sourceAccountID uint32, variation string) uint32 {
	inner := fnv1a32Uint32(sourceAccountID)
	return fnv1a32Seeded(inner, variation)
}

// DeriveTemporary mints a temporary Account for a shared-account login:
// same flags/team/meseta as src but a derived AccountID, IsTemporary set,
// and no credentials of its own (temporary accounts are never looked up
// by credential, only held by the live Login).
func DeriveTemporary(src *Account, variation string) *Account {
	derived := &Account{
		AccountID:         DeriveSharedAccountID(src.AccountID, variation),
		Flags:             src.Flags &^ FlagIsSharedAccount,
		UserFlags:         src.UserFlags,
		BanEndTime:        src.BanEndTime,
		BBTeamID:          src.BBTeamID,
		Ep3CurrentMeseta:  src.Ep3CurrentMeseta,
		Ep3LifetimeMeseta: src.Ep3LifetimeMeseta,
		IsTemporary:       true,
		FormatVersion:     CurrentFormatVersion,
	}
	return derived
}
