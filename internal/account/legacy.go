package account

import "encoding/json"

// legacyDocument is FormatVersion 0: a single flat credential set rather
// than the six independently-keyed maps of format 1. Exactly one of the
// per-kind pointer fields is non-nil in any real legacy file; on load it
// is folded into the matching slice of the format-1 Credentials struct
// and the account is rewritten as format 1 on next save (spec.md
// SPEC_FULL §3).
type legacyDocument struct {
	AccountID         uint32   `json:"account_id"`
	Flags             Flag     `json:"flags"`
	UserFlags         UserFlag `json:"user_flags"`
	BanEndTime        int64    `json:"ban_end_time"`
	LastPlayerName    string   `json:"last_player_name"`
	AutoReplyMessage  string   `json:"auto_reply_message"`
	Ep3CurrentMeseta  uint32   `json:"ep3_current_meseta"`
	Ep3LifetimeMeseta uint32   `json:"ep3_lifetime_meseta"`
	BBTeamID          uint32   `json:"bb_team_id"`
	IsTemporary       bool     `json:"is_temporary"`

	CredentialKind string `json:"credential_kind,omitempty"`

	DCNTE *DCNTECredential `json:"dc_nte,omitempty"`
	DCv1  *DCCredential    `json:"dc_v1,omitempty"`
	DCv2  *DCCredential    `json:"dc_v2,omitempty"`
	PCv2  *PCCredential    `json:"pc_v2,omitempty"`
	GC    *GCCredential    `json:"gc,omitempty"`
	XB    *XBCredential    `json:"xb,omitempty"`
	BB    *BBCredential    `json:"bb,omitempty"`
}

func unmarshalLegacy(data []byte) (*Account, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	acc := &Account{
		AccountID:         doc.AccountID,
		Flags:             doc.Flags,
		UserFlags:         doc.UserFlags,
		BanEndTime:        doc.BanEndTime,
		LastPlayerName:    doc.LastPlayerName,
		AutoReplyMessage:  doc.AutoReplyMessage,
		Ep3CurrentMeseta:  doc.Ep3CurrentMeseta,
		Ep3LifetimeMeseta: doc.Ep3LifetimeMeseta,
		BBTeamID:          doc.BBTeamID,
		IsTemporary:       doc.IsTemporary,
		FormatVersion:     CurrentFormatVersion, // upgraded; written back as 1 on next save
	}
	switch {
	case doc.DCNTE != nil:
		acc.Credentials.DCNTE = []DCNTECredential{*doc.DCNTE}
	case doc.DCv1 != nil:
		acc.Credentials.DCv1 = []DCCredential{*doc.DCv1}
	case doc.DCv2 != nil:
		acc.Credentials.DCv2 = []DCCredential{*doc.DCv2}
	case doc.PCv2 != nil:
		acc.Credentials.PCv2 = []PCCredential{*doc.PCv2}
	case doc.GC != nil:
		acc.Credentials.GC = []GCCredential{*doc.GC}
	case doc.XB != nil:
		acc.Credentials.XB = []XBCredential{*doc.XB}
	case doc.BB != nil:
		acc.Credentials.BB = []BBCredential{*doc.BB}
	}
	return acc, nil
}
