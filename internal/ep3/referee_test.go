package ep3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedDice(n int) func(min, max int) int {
	return func(min, max int) int { return n }
}

func twoSeatRules() Rules {
	return Rules{TimeLimitSeconds: 300, DiceMin: 1, DiceMax: 6}
}

func TestRegisterRejectsOnceRegistrationClosed(t *testing.T) {
	r := NewReferee(1, twoSeatRules())
	require.NoError(t, r.Register(DeckEntry{SeatID: 0, PlayerName: "Alice"}))
	require.NoError(t, r.Register(DeckEntry{SeatID: 1, PlayerName: "Bob"}))
	require.NoError(t, r.BeginSetup(2))

	err := r.Register(DeckEntry{SeatID: 2, PlayerName: "Carol"})
	var wrongPhase *ErrWrongPhase
	require.ErrorAs(t, err, &wrongPhase)
	require.Equal(t, PhaseSetup, wrongPhase.Have)
	require.Equal(t, PhaseRegistration, wrongPhase.Want)
}

func TestBeginSetupRequiresEveryExpectedSeat(t *testing.T) {
	r := NewReferee(1, twoSeatRules())
	require.NoError(t, r.Register(DeckEntry{SeatID: 0, PlayerName: "Alice"}))

	err := r.BeginSetup(2)
	require.Error(t, err)
	require.Equal(t, PhaseRegistration, r.Phase())
}

func registeredPair(t *testing.T) *Referee {
	t.Helper()
	r := NewReferee(1, twoSeatRules())
	require.NoError(t, r.Register(DeckEntry{SeatID: 0, PlayerName: "Alice"}))
	require.NoError(t, r.Register(DeckEntry{SeatID: 1, PlayerName: "Bob"}))
	require.NoError(t, r.BeginSetup(2))
	return r
}

func TestSeatReadyAdvancesToDiceRollOnceAllReady(t *testing.T) {
	r := registeredPair(t)

	require.NoError(t, r.SeatReady(0))
	require.Equal(t, PhaseSetup, r.Phase())

	require.NoError(t, r.SeatReady(1))
	require.Equal(t, PhaseDiceRoll, r.Phase())
	require.Equal(t, 1, r.Round())
}

func TestRollDiceAdvancesToMovementAndRecordsResult(t *testing.T) {
	r := registeredPair(t)
	require.NoError(t, r.SeatReady(0))
	require.NoError(t, r.SeatReady(1))

	result, err := r.RollDice(0, fixedDice(4))
	require.NoError(t, err)
	require.Equal(t, 4, result)
	require.Equal(t, PhaseMovement, r.Phase())

	seat, ok := r.Seat(0)
	require.True(t, ok)
	require.Equal(t, 4, seat.DiceResult)
}

func TestPlayCardRejectsOutOfTurnSeat(t *testing.T) {
	r := registeredPair(t)
	require.NoError(t, r.SeatReady(0))
	require.NoError(t, r.SeatReady(1))
	_, err := r.RollDice(0, fixedDice(3))
	require.NoError(t, err)
	require.NoError(t, r.AdvanceToActionSelect())

	err = r.PlayCard(1)
	require.Error(t, err)
	require.Equal(t, PhaseActionSelect, r.Phase())
}

func TestPlayCardDecrementsHandSize(t *testing.T) {
	r := registeredPair(t)
	require.NoError(t, r.SeatReady(0))
	require.NoError(t, r.SeatReady(1))
	_, err := r.RollDice(0, fixedDice(3))
	require.NoError(t, err)
	require.NoError(t, r.AdvanceToActionSelect())

	require.NoError(t, r.PlayCard(0))
	require.Equal(t, PhaseActionResolve, r.Phase())

	seat, ok := r.Seat(0)
	require.True(t, ok)
	require.Equal(t, startingHandSize-1, seat.HandSize)
}

func TestApplyDamageForfeitsSeatAtZeroHP(t *testing.T) {
	r := registeredPair(t)
	forfeited, err := r.ApplyDamage(1, defaultHP+5)
	require.NoError(t, err)
	require.True(t, forfeited)

	seat, ok := r.Seat(1)
	require.True(t, ok)
	require.Equal(t, 0, seat.HP)
}

func TestApplyDamageCommonHPRuleSetsHigherStartingHP(t *testing.T) {
	r := NewReferee(1, Rules{DiceMin: 1, DiceMax: 6, HPType: HPTypeCommon})
	require.NoError(t, r.Register(DeckEntry{SeatID: 0, PlayerName: "Alice"}))

	seat, ok := r.Seat(0)
	require.True(t, ok)
	require.Equal(t, commonHP, seat.HP)
}

func TestEndTurnEndsBattleWhenOneTeamFullyForfeited(t *testing.T) {
	r := registeredPair(t)
	_, err := r.ApplyDamage(1, defaultHP)
	require.NoError(t, err)

	r.EndTurn(0)
	require.True(t, r.Ended())

	team1EXP, team2EXP := r.TeamEXP()
	require.Equal(t, 10, team1EXP)
	require.Equal(t, 3, team2EXP)
}

func TestEndTurnAdvancesRoundWhenBattleContinues(t *testing.T) {
	r := registeredPair(t)
	r.EndTurn(1)
	require.False(t, r.Ended())
	require.Equal(t, PhaseDiceRoll, r.Phase())
}

func TestEndTurnIsNoopOnceEnded(t *testing.T) {
	r := registeredPair(t)
	_, err := r.ApplyDamage(1, defaultHP)
	require.NoError(t, err)
	r.EndTurn(0)
	require.True(t, r.Ended())

	team1Before, team2Before := r.TeamEXP()
	r.EndTurn(0)
	team1After, team2After := r.TeamEXP()
	require.Equal(t, team1Before, team1After)
	require.Equal(t, team2Before, team2After)
}

func TestSeatUnknownIDReturnsFalse(t *testing.T) {
	r := registeredPair(t)
	_, ok := r.Seat(99)
	require.False(t, ok)
}
