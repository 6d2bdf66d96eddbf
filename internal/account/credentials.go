package account

// Credentials bundles the six independently-keyed per-platform credential
// sets an Account may hold (spec.md §3 table). Exactly one kind is used to
// authenticate a given Login; an Account may accumulate more than one kind
// over its lifetime (e.g. a player who played DC and later BB).
type Credentials struct {
	DCNTE []DCNTECredential `json:"dc_nte,omitempty"`
	DCv1  []DCCredential    `json:"dc_v1,omitempty"`
	DCv2  []DCCredential    `json:"dc_v2,omitempty"`
	PCv2  []PCCredential    `json:"pc_v2,omitempty"`
	GC    []GCCredential    `json:"gc,omitempty"`
	XB    []XBCredential    `json:"xb,omitempty"`
	BB    []BBCredential    `json:"bb,omitempty"`
}

// DCNTECredential keys on a string serial (early Dreamcast prototype
// clients never settled on a numeric serial format).
type DCNTECredential struct {
	Serial    string `json:"serial"`     // <=16 chars
	AccessKey string `json:"access_key"` // <=16 chars
}

// DCCredential covers both DC v1 and v2 (identical shape, stored in
// separate slices since the two generations never share a namespace).
type DCCredential struct {
	Serial    uint32 `json:"serial"`
	AccessKey string `json:"access_key"` // 8 chars
}

// PCCredential is identical in shape to DCCredential but kept distinct: PC
// v2 serials and DC serials are drawn from disjoint ranges in retail but
// the spec does not guarantee that, so the uniqueness check (§4.8) treats
// them as separate key spaces.
type PCCredential struct {
	Serial    uint32 `json:"serial"`
	AccessKey string `json:"access_key"` // 8 chars
}

// GCCredential additionally carries a password, required for GC login
// (unlike DC/PC, a GC client can't self-register without one — §4.3).
type GCCredential struct {
	Serial    uint32 `json:"serial"` // decimal, printed form
	AccessKey string `json:"access_key"` // 12 chars
	Password  string `json:"password"`
}

// XBCredential keys on the Xbox Live user id; AccountID is the secret
// half of the tuple and Gamertag is informational only (not part of the
// key or the secret check).
type XBCredential struct {
	UserID    uint64 `json:"user_id"`
	AccountID uint64 `json:"account_id"`
	Gamertag  string `json:"gamertag"`
}

// BBCredential is the only credential kind whose secret (Password) is
// stored hashed rather than plaintext — see HashBBPassword.
type BBCredential struct {
	Username     string `json:"username"` // <=16 chars
	PasswordHash string `json:"password_hash"`
}
