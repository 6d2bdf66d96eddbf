package account

// Flag is the account permission word (spec.md §3, bit values resolved
// from original_source/src/Account.hh — spec.md names the bits but not
// their numeric values).
type Flag uint32

const (
	FlagKickUser                  Flag = 0x00000001
	FlagBanUser                   Flag = 0x00000002
	FlagSilenceUser               Flag = 0x00000004
	FlagChangeEvent               Flag = 0x00000010
	FlagAnnounce                  Flag = 0x00000020
	FlagFreeJoinGames             Flag = 0x00000040
	FlagDebug                     Flag = 0x01000000
	FlagCheatAnywhere             Flag = 0x02000000
	FlagDisableQuestRequirements  Flag = 0x04000000
	FlagAlwaysEnableChatCommands  Flag = 0x08000000
	FlagIsSharedAccount           Flag = 0x80000000

	// Composite presets.
	FlagModerator     Flag = FlagKickUser | FlagBanUser | FlagSilenceUser
	FlagAdministrator Flag = 0x000000FF
	FlagRoot          Flag = 0x7FFFFFFF
)

// Has reports whether every bit in want is set in f.
func (f Flag) Has(want Flag) bool { return f&want == want }

// UserFlag is the lower-ceremony per-account user preference word.
type UserFlag uint32

const (
	UserFlagDisableDropNotificationBroadcast UserFlag = 0x00000001
)

func (f UserFlag) Has(want UserFlag) bool { return f&want == want }
