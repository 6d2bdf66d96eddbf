// Package account implements the unified, multi-platform account index
// (spec.md §3/§4.8): one logical account binding credentials from up to
// six platform ecosystems, persisted as one JSON file per account under
// system/licenses/.
//
// Grounded on the teacher's internal/login.AccountRepository shape
// (GetAccount/CreateAccount/GetOrCreateAccount) with the backing store
// swapped from pgx/Postgres to a JSON directory tree per spec.md §1's
// explicit non-goal (no SQL backend is specified). BB password hashing
// follows the rdtc8822 L1J-Go reference's AccountRepo.ValidatePassword use
// of bcrypt rather than hand-rolled hashing.
package account

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CurrentFormatVersion is the only FormatVersion ever written. Format 0
// (legacy single-credential-set) is read and upgraded on load, never
// written back until the next mutation.
const CurrentFormatVersion = 1

// Account is one logical player identity (spec.md §3). AccountID doubles
// as the public Guild Card number.
type Account struct {
	AccountID uint32 `json:"account_id"`
	Flags     Flag   `json:"flags"`
	UserFlags UserFlag `json:"user_flags"`

	BanEndTime     int64  `json:"ban_end_time"` // unix seconds, 0 = not banned
	LastPlayerName string `json:"last_player_name"`
	AutoReplyMessage string `json:"auto_reply_message"`

	Ep3CurrentMeseta uint32 `json:"ep3_current_meseta"`
	Ep3LifetimeMeseta uint32 `json:"ep3_lifetime_meseta"`

	BBTeamID uint32 `json:"bb_team_id"` // 0 = none

	IsTemporary bool `json:"is_temporary"`

	AutoPatchesEnabled []string `json:"auto_patches_enabled,omitempty"`

	Credentials Credentials `json:"credentials"`

	FormatVersion int `json:"format_version"`
}

// New constructs a fresh, non-banned, non-temporary account with the given
// id. Callers attach exactly one credential afterward.
func New(accountID uint32) *Account {
	return &Account{
		AccountID:     accountID,
		FormatVersion: CurrentFormatVersion,
	}
}

// IsBanned reports whether the account is currently banned, given the
// current time.
func (a *Account) IsBanned(now time.Time) bool {
	return a.BanEndTime != 0 && now.Unix() < a.BanEndTime
}

// HasFlag reports whether every bit in f is set.
func (a *Account) HasFlag(f Flag) bool { return a.Flags.Has(f) }

// IsSharedAccount reports whether authentication against this account
// should skip the secret check and mint a derived temporary account
// (spec.md §4.8).
func (a *Account) IsSharedAccount() bool { return a.Flags.Has(FlagIsSharedAccount) }

// HashBBPassword bcrypt-hashes a Blue Burst password for storage. BB is
// the only credential kind whose secret is a free-form user password
// rather than a fixed-length access key, so it is the only one hashed at
// rest.
func HashBBPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckBBPassword reports whether password matches the stored hash.
func CheckBBPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
