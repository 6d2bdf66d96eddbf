package ep3

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func identityShuffle(ids []string) {}

func TestCreateAndEnterTeam(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("weekend-cup")
	require.NoError(t, err)

	require.NoError(t, idx.EnterTeam("weekend-cup", Team{ID: "t1", Name: "Hunters", Members: []uint32{1, 2}}))

	tour, err := idx.Get("weekend-cup")
	require.NoError(t, err)
	require.Len(t, tour.Teams, 1)
	require.Equal(t, TournamentRegistration, tour.State)
}

func TestEnterTeamRejectsDuplicateID(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t1", Name: "A"}))

	err = idx.EnterTeam("cup", Team{ID: "t1", Name: "B"})
	require.ErrorIs(t, err, ErrDuplicateTeam)
}

func TestEnterTeamRejectedAfterSeeding(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t1", Name: "A"}))
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t2", Name: "B"}))
	require.NoError(t, idx.Seed("cup", identityShuffle))

	err = idx.EnterTeam("cup", Team{ID: "t3", Name: "C"})
	require.ErrorIs(t, err, ErrTournamentNotRegistering)
}

// TestSeedPadsBracketWithCOMTeams covers spec.md §4.11's "COM team
// auto-population": 3 entrants round up to a 4-slot bracket, with the
// fourth slot filled by an auto-generated COM team.
func TestSeedPadsBracketWithCOMTeams(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t1", Name: "A"}))
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t2", Name: "B"}))
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t3", Name: "C"}))

	require.NoError(t, idx.Seed("cup", identityShuffle))

	tour, err := idx.Get("cup")
	require.NoError(t, err)
	require.Equal(t, TournamentActive, tour.State)
	require.Len(t, tour.Teams, 4)
	comCount := 0
	for _, team := range tour.Teams {
		if team.IsCOM {
			comCount++
		}
	}
	require.Equal(t, 1, comCount)
	require.Len(t, tour.Rounds, 1)
	require.Len(t, tour.Rounds[0], 2)
}

// TestRecordMatchResultAdvancesWinnerAndDistributesEX covers spec.md
// §4.11's "match progression ... and EX-result value distribution at
// match end" across a 4-team bracket to completion.
func TestRecordMatchResultAdvancesWinnerAndDistributesEX(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	for _, id := range []string{"t1", "t2", "t3", "t4"} {
		require.NoError(t, idx.EnterTeam("cup", Team{ID: id, Name: id}))
	}
	require.NoError(t, idx.Seed("cup", identityShuffle))

	tour, err := idx.Get("cup")
	require.NoError(t, err)
	round0 := tour.Rounds[0]

	require.NoError(t, idx.RecordMatchResult("cup", 0, 0, round0[0].Team1ID, 100))
	require.NoError(t, idx.RecordMatchResult("cup", 0, 1, round0[1].Team1ID, 100))

	tour, err = idx.Get("cup")
	require.NoError(t, err)
	require.Len(t, tour.Rounds, 2)
	final := tour.Rounds[1][0]
	require.Equal(t, round0[0].Team1ID, final.Team1ID)
	require.Equal(t, round0[1].Team1ID, final.Team2ID)
	require.False(t, final.Played)
	require.Equal(t, TournamentActive, tour.State)

	require.NoError(t, idx.RecordMatchResult("cup", 1, 0, final.Team1ID, 500))

	tour, err = idx.Get("cup")
	require.NoError(t, err)
	require.Equal(t, TournamentComplete, tour.State)
	require.Equal(t, final.Team1ID, tour.Rounds[1][0].WinnerID)
	require.Equal(t, uint32(500), tour.Rounds[1][0].EXAwarded)
}

func TestRecordMatchResultRejectsNonCompetitor(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t1", Name: "A"}))
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t2", Name: "B"}))
	require.NoError(t, idx.Seed("cup", identityShuffle))

	err = idx.RecordMatchResult("cup", 0, 0, "not-a-team", 10)
	require.Error(t, err)
}

func TestRecordMatchResultRejectsReplay(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t1", Name: "A"}))
	require.NoError(t, idx.EnterTeam("cup", Team{ID: "t2", Name: "B"}))
	require.NoError(t, idx.Seed("cup", identityShuffle))

	tour, err := idx.Get("cup")
	require.NoError(t, err)
	winner := tour.Rounds[0][0].Team1ID

	require.NoError(t, idx.RecordMatchResult("cup", 0, 0, winner, 10))
	err = idx.RecordMatchResult("cup", 0, 0, winner, 10)
	require.Error(t, err)
}

// TestTournamentPersistsAcrossIndexReload covers spec.md §4.11's "A
// tournament persists through server restarts": a fresh TournamentIndex
// rooted at the same directory sees the bracket after Load.
func TestTournamentPersistsAcrossIndexReload(t *testing.T) {
	dir := t.TempDir()
	idx1 := NewTournamentIndex(dir)
	_, err := idx1.Create("cup")
	require.NoError(t, err)
	require.NoError(t, idx1.EnterTeam("cup", Team{ID: "t1", Name: "A", Members: []uint32{7}}))
	require.NoError(t, idx1.EnterTeam("cup", Team{ID: "t2", Name: "B", Members: []uint32{8}}))
	require.NoError(t, idx1.Seed("cup", identityShuffle))

	require.FileExists(t, filepath.Join(dir, "cup.json"))

	idx2 := NewTournamentIndex(dir)
	require.NoError(t, idx2.Load())

	tour, err := idx2.Get("cup")
	require.NoError(t, err)
	require.Equal(t, TournamentActive, tour.State)
	require.Len(t, tour.Teams, 2)
	require.Len(t, tour.Rounds, 1)
}

func TestNamesSortedAlphabetically(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Create("zeta")
	require.NoError(t, err)
	_, err = idx.Create("alpha")
	require.NoError(t, err)

	require.Equal(t, []string{"alpha", "zeta"}, idx.Names())
}

func TestGetUnknownTournament(t *testing.T) {
	idx := NewTournamentIndex(t.TempDir())
	_, err := idx.Get("nope")
	require.ErrorIs(t, err, ErrTournamentNotFound)
}
