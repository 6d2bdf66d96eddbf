// Package ep3 implements the Episode III card-battle referee and
// tournament bracket system (spec.md §4.11): the phase/turn state
// machine that a game lobby with Episode==EP3 owns as its ep3_server,
// and the orthogonal TournamentIndex.
//
// Per-card effect resolution is explicitly out of scope (spec.md's
// non-goals) — the referee tracks phase, seats, dice and EXP through its
// exported methods and never evaluates what a card actually does. It does
// not parse or dispatch CardBattleCommandHeader subcommands; each state
// transition happens only when a caller invokes its method. Grounded
// on the teacher's internal/game/duel (phase/state machine shape:
// countdown, per-participant state, win-condition checks) generalized
// from a 1v1 timed duel to Ep3's multi-phase per-turn structure.
package ep3

import (
	"fmt"
	"sync"
)

// Phase is the referee's top-level state (spec.md §4.11).
type Phase int

const (
	PhaseRegistration Phase = iota
	PhaseSetup
	PhaseActionSelect  // per-turn: choose a card to play
	PhaseActionResolve // per-turn: card effects resolve
	PhaseDiceRoll
	PhaseMovement
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseRegistration:
		return "registration"
	case PhaseSetup:
		return "setup"
	case PhaseActionSelect:
		return "action_select"
	case PhaseActionResolve:
		return "action_resolve"
	case PhaseDiceRoll:
		return "dice_roll"
	case PhaseMovement:
		return "movement"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// HPType selects how seat HP is tracked (map rule, not per-card).
type HPType int

const (
	HPTypeDefault HPType = iota
	HPTypeCommon
)

// Rules is the fixed ruleset for one battle, chosen at map selection
// time (spec.md §4.11 "rules (time limits, dice ranges, allowed card
// ranks, HP-type)").
type Rules struct {
	TimeLimitSeconds int
	DiceMin, DiceMax int
	AllowedRanksMask uint32
	HPType           HPType
	AllowCOM         bool
}

// DeckEntry is one seat's registered deck (card ids only; card
// definitions themselves are a downstream collaborator per spec.md's
// per-card non-goal).
type DeckEntry struct {
	SeatID     int
	PlayerName string
	CardIDs    []uint32
	IsCOM      bool
}

// SeatState is one seat's mutable battle state.
type SeatState struct {
	HP            int
	EXP           int
	HandSize      int
	DiceResult    int
	Ready         bool
	Forfeited     bool
}

// ErrWrongPhase is returned when a command arrives that isn't valid for
// the referee's current phase.
type ErrWrongPhase struct {
	Have, Want Phase
}

func (e *ErrWrongPhase) Error() string {
	return fmt.Sprintf("ep3: command requires phase %s, referee is in %s", e.Want, e.Have)
}

// Referee is one game lobby's Episode III battle state (spec.md §4.11
// "ep3_server"). It is safe for concurrent use from a single
// dispatch goroutine plus occasional read-only status queries.
type Referee struct {
	mu sync.Mutex

	mapID int
	rules Rules

	decks map[int]*DeckEntry
	seats map[int]*SeatState

	phase       Phase
	round       int
	activeSeat  int
	lastDice    [2]int
	team1EXP    int
	team2EXP    int
}

// NewReferee constructs a referee for mapID with the given rules. Seats
// are added via Register before the battle can leave PhaseRegistration.
func NewReferee(mapID int, rules Rules) *Referee {
	return &Referee{
		mapID: mapID,
		rules: rules,
		decks: make(map[int]*DeckEntry),
		seats: make(map[int]*SeatState),
		phase: PhaseRegistration,
	}
}

// MapID returns the selected battle map.
func (r *Referee) MapID() int { return r.mapID }

// Rules returns the battle's fixed ruleset.
func (r *Referee) Rules() Rules { return r.rules }

// Phase returns the referee's current phase.
func (r *Referee) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Round returns the current round number, starting at 0 before play
// begins.
func (r *Referee) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

// Register adds a seat's deck during PhaseRegistration. Returns
// ErrWrongPhase once registration has closed.
func (r *Referee) Register(entry DeckEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRegistration {
		return &ErrWrongPhase{Have: r.phase, Want: PhaseRegistration}
	}
	r.decks[entry.SeatID] = &entry
	r.seats[entry.SeatID] = &SeatState{HP: startingHP(r.rules), HandSize: startingHandSize}
	return nil
}

const startingHandSize = 6

func startingHP(rules Rules) int {
	if rules.HPType == HPTypeCommon {
		return commonHP
	}
	return defaultHP
}

const (
	defaultHP = 8
	commonHP  = 20
)

// BeginSetup transitions registration into setup once every expected
// seat has registered (spec.md §4.11 phase order REGISTRATION → SETUP).
func (r *Referee) BeginSetup(expectedSeats int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseRegistration {
		return &ErrWrongPhase{Have: r.phase, Want: PhaseRegistration}
	}
	if len(r.decks) < expectedSeats {
		return fmt.Errorf("ep3: only %d of %d seats registered", len(r.decks), expectedSeats)
	}
	r.phase = PhaseSetup
	return nil
}

// SeatReady marks a seat ready during setup. Once every registered seat
// is ready, the referee advances to the first turn's dice roll.
func (r *Referee) SeatReady(seatID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseSetup {
		return &ErrWrongPhase{Have: r.phase, Want: PhaseSetup}
	}
	seat, ok := r.seats[seatID]
	if !ok {
		return fmt.Errorf("ep3: unknown seat %d", seatID)
	}
	seat.Ready = true
	if r.allReadyLocked() {
		r.round = 1
		r.phase = PhaseDiceRoll
	}
	return nil
}

func (r *Referee) allReadyLocked() bool {
	for _, s := range r.seats {
		if !s.Forfeited && !s.Ready {
			return false
		}
	}
	return true
}

// RollDice resolves the active seat's dice roll and advances to
// movement. diceFunc lets callers inject a deterministic source for
// tests; production code passes a real random roller.
func (r *Referee) RollDice(seatID int, diceFunc func(min, max int) int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseDiceRoll {
		return 0, &ErrWrongPhase{Have: r.phase, Want: PhaseDiceRoll}
	}
	result := diceFunc(r.rules.DiceMin, r.rules.DiceMax)
	seat, ok := r.seats[seatID]
	if !ok {
		return 0, fmt.Errorf("ep3: unknown seat %d", seatID)
	}
	seat.DiceResult = result
	r.activeSeat = seatID
	r.phase = PhaseMovement
	return result, nil
}

// AdvanceToActionSelect moves from movement into the active seat's
// card-play sub-phase.
func (r *Referee) AdvanceToActionSelect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseMovement {
		return &ErrWrongPhase{Have: r.phase, Want: PhaseMovement}
	}
	r.phase = PhaseActionSelect
	return nil
}

// PlayCard records that the active seat committed to playing a card
// from its hand (effect resolution is a downstream collaborator; this
// only tracks hand size and phase transition).
func (r *Referee) PlayCard(seatID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseActionSelect {
		return &ErrWrongPhase{Have: r.phase, Want: PhaseActionSelect}
	}
	if seatID != r.activeSeat {
		return fmt.Errorf("ep3: seat %d acted out of turn (active seat %d)", seatID, r.activeSeat)
	}
	seat, ok := r.seats[seatID]
	if !ok {
		return fmt.Errorf("ep3: unknown seat %d", seatID)
	}
	if seat.HandSize > 0 {
		seat.HandSize--
	}
	r.phase = PhaseActionResolve
	return nil
}

// ApplyDamage lets the (external) card-effect resolver report HP
// changes once it has computed them; the referee only tracks the
// resulting seat state and checks for a battle-ending KO.
func (r *Referee) ApplyDamage(seatID int, damage int) (forfeited bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seat, ok := r.seats[seatID]
	if !ok {
		return false, fmt.Errorf("ep3: unknown seat %d", seatID)
	}
	seat.HP -= damage
	if seat.HP <= 0 {
		seat.HP = 0
		seat.Forfeited = true
	}
	return seat.Forfeited, nil
}

// EndTurn advances to the next round's dice roll, or ends the battle if
// only one team still has an un-forfeited seat.
func (r *Referee) EndTurn(nextSeat int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseEnded {
		return
	}
	if winner, over := r.checkWinLocked(); over {
		r.phase = PhaseEnded
		r.distributeEXPLocked(winner)
		return
	}
	r.round++
	r.activeSeat = nextSeat
	r.phase = PhaseDiceRoll
}

func (r *Referee) checkWinLocked() (winningTeam int, over bool) {
	team1Alive, team2Alive := 0, 0
	for seatID, s := range r.seats {
		if s.Forfeited {
			continue
		}
		if seatID%2 == 0 {
			team1Alive++
		} else {
			team2Alive++
		}
	}
	switch {
	case team1Alive == 0 && team2Alive == 0:
		return 0, true
	case team1Alive == 0:
		return 2, true
	case team2Alive == 0:
		return 1, true
	default:
		return 0, false
	}
}

func (r *Referee) distributeEXPLocked(winningTeam int) {
	const winnerEXP, loserEXP = 10, 3
	for seatID := range r.seats {
		team := 1
		if seatID%2 != 0 {
			team = 2
		}
		gain := loserEXP
		if team == winningTeam {
			gain = winnerEXP
		}
		if team == 1 {
			r.team1EXP += gain
		} else {
			r.team2EXP += gain
		}
		r.seats[seatID].EXP += gain
	}
}

// Ended reports whether the battle has concluded.
func (r *Referee) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == PhaseEnded
}

// TeamEXP returns each team's accumulated battle EXP (spec.md §4.11
// "per-team EXP").
func (r *Referee) TeamEXP() (team1, team2 int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.team1EXP, r.team2EXP
}

// Seat returns a copy of a seat's current state.
func (r *Referee) Seat(seatID int) (SeatState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok {
		return SeatState{}, false
	}
	return *s, true
}
