package lobby

// Mode is a game lobby's ruleset (spec.md §3 "Lobby (game)").
type Mode int

const (
	ModeNormal Mode = iota
	ModeBattle
	ModeChallenge
	ModeSolo
)

// Episode identifies which episode's maps/quests a game uses. Ep3 reuses
// the non-game Lobby machinery but never the floor-item/enemy state
// below (its state lives in the ep3 package's referee instead).
type Episode int

const (
	Episode1 Episode = 1
	Episode2 Episode = 2
	Episode4 Episode = 4
	EpisodeEp3 Episode = 3
)

// DropMode selects who is authoritative for item drops (spec.md §4.5).
type DropMode int

const (
	DropDisabled DropMode = iota
	DropClient            // leader-authoritative; server only validates
	DropServerShared       // server-generated, first picker owns it
	DropServerPrivate       // per-client drop, visible only to its owner
	DropServerDuplicate     // every client gets a distinct-id duplicate
)

// ChallengeParams carries the per-stage rank thresholds used to compute
// final rank on stage completion (spec.md §4.5).
type ChallengeParams struct {
	StageNumber int
	// GoldSeconds/SilverSeconds/BronzeSeconds: completion-time thresholds,
	// fastest to slowest, for each rank.
	GoldSeconds, SilverSeconds, BronzeSeconds int
	RankBitmask uint32
}

// GameState extends a Lobby with the state specific to a game instance
// (spec.md §3 "Lobby (game)").
type GameState struct {
	BaseVersion int // the game's "platform"
	Mode        Mode
	Episode     Episode
	Difficulty  int // 0-3
	MinLevel    int
	MaxLevel    int
	Password    string
	Name        string

	RandomSeed uint32
	SectionID  int
	Variations []uint32

	MaxClients int // 4 normally, 1 for SOLO

	FloorItems *FloorItemManager
	Enemies    *EnemySet
	Switches   *SwitchState

	DropMode     DropMode
	BaseEXPMultiplier float64

	Challenge *ChallengeParams

	Quest *Quest

	// Flags
	CheatsEnabled             bool
	BattleInProgress          bool
	QuestInProgress           bool
	JoinableQuestInProgress   bool
	IsSpectatorTeam           bool
	SpectatorsForbidden       bool
}

// NewGame constructs a game Lobby: a base Lobby plus a populated
// GameState with the floor-item manager and enemy set ready to use.
func NewGame(id int, baseVersion int, episode Episode, mode Mode, difficulty int) *Lobby {
	maxClients := 4
	if mode == ModeSolo {
		maxClients = 1
	}
	l := New(id)
	l.Game = &GameState{
		BaseVersion:       baseVersion,
		Mode:              mode,
		Episode:           episode,
		Difficulty:        difficulty,
		MaxClients:        maxClients,
		FloorItems:        NewFloorItemManager(),
		Enemies:           NewEnemySet(),
		Switches:          NewSwitchState(),
		DropMode:          DropServerShared,
		BaseEXPMultiplier: 1.0,
	}
	return l
}

// IsGame reports whether l is a game instance rather than a plain lobby.
func (l *Lobby) IsGame() bool { return l.Game != nil }
