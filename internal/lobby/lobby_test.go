package lobby

import (
	"testing"

	"github.com/fuzzpoint/psoserver/internal/session"
	"github.com/fuzzpoint/psoserver/internal/version"
	"github.com/stretchr/testify/require"
)

func newTestClient(v version.Version) *session.Client {
	return session.NewClient(nil, v, session.LobbyServer)
}

func TestSlotConsistency(t *testing.T) {
	l := New(1000)
	l.Versions = 1 << uint(version.BB)
	for i := 0; i < MaxLobbyClients; i++ {
		c := newTestClient(version.BB)
		slot, err := l.Add(c)
		require.NoError(t, err)
		require.Equal(t, slot, c.SlotID)
		require.Equal(t, l.ID, c.LobbyID)
	}
	for i := 0; i < l.Capacity(); i++ {
		c := l.ClientAt(i)
		require.NotNil(t, c)
		require.Equal(t, i, c.SlotID)
	}
	_, err := l.Add(newTestClient(version.BB))
	require.ErrorIs(t, err, ErrLobbyFull)
}

func TestLeaderReassignedOnRemove(t *testing.T) {
	l := New(1)
	l.Versions = 1 << uint(version.BB)
	a := newTestClient(version.BB)
	b := newTestClient(version.BB)
	_, _ = l.Add(a)
	_, _ = l.Add(b)
	require.True(t, l.IsLeader(a))

	l.Remove(a)
	require.True(t, l.IsLeader(b))
}

func TestCrossLobbyMoveEmptiesNonPersistentSource(t *testing.T) {
	reg := NewRegistry()
	src := NewGame(0, 0, Episode1, ModeNormal, 0)
	src.Versions = 1 << uint(version.BB)
	id := reg.CreateGame(src)

	dest := reg.DefaultLobbies()[0]
	dest.Versions = 1 << uint(version.BB)

	a := newTestClient(version.BB)
	b := newTestClient(version.BB)
	_, _ = src.Add(a)
	_, _ = src.Add(b)

	_, err := ChangeClientLobby(reg, src, dest, a)
	require.NoError(t, err)
	require.True(t, reg.Contains(id)) // still present, b remains

	_, err = ChangeClientLobby(reg, src, dest, b)
	require.NoError(t, err)

	reg.Tick()
	require.False(t, reg.Contains(id))
}

func TestFloorItemUniqueIDs(t *testing.T) {
	m := NewFloorItemManager()
	seen := map[uint32]bool{}
	for slot := 0; slot < 4; slot++ {
		for i := 0; i < 5; i++ {
			id, err := m.Add(slot, [12]byte{}, 0, 0, 0, 0xFFFF)
			require.NoError(t, err)
			require.False(t, seen[id], "duplicate floor item id %d", id)
			seen[id] = true
		}
	}
	serverID, err := m.Add(-1, [12]byte{}, 0, 0, 0, 0xFFFF)
	require.NoError(t, err)
	require.False(t, seen[serverID])
}

func TestFloorItemRemoveAndFindNearest(t *testing.T) {
	m := NewFloorItemManager()
	id1, _ := m.Add(0, [12]byte{}, 2, 100, 200, 0xFFFF)
	id2, _ := m.Add(0, [12]byte{}, 2, 105, 205, 0xFFFF)

	nearest := m.FindNearest(2, 100, 200)
	require.Equal(t, id1, nearest.ID)

	_, err := m.Remove(id1)
	require.NoError(t, err)
	nearest = m.FindNearest(2, 100, 200)
	require.Equal(t, id2, nearest.ID)

	_, err = m.Remove(id1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestEnemyKillIdempotentAndEXPShares(t *testing.T) {
	set := NewEnemySet()
	set.Populate(1, 0x42)
	set.RegisterHit(1, 0)
	set.RegisterHit(1, 2)
	set.RegisterHit(1, 2) // last hit

	result, ok := set.Kill(1)
	require.True(t, ok)
	require.Len(t, result.Recipients, 2)

	shareBySlot := map[int]float64{}
	for _, r := range result.Recipients {
		shareBySlot[r.ClientSlot] = r.EXPShare()
	}
	require.Equal(t, 1.0, shareBySlot[2])
	require.InDelta(t, 0.77, shareBySlot[0], 0.001)

	_, ok = set.Kill(1)
	require.False(t, ok, "killing an already-killed enemy must be a no-op")
}

func TestSwitchAssistReplay(t *testing.T) {
	s := NewSwitchState()
	s.SetEnabled(0, SwitchKey{Floor: 1, Number: 5})
	key, ok := s.LastEnabled(0)
	require.True(t, ok)
	require.Equal(t, SwitchKey{Floor: 1, Number: 5}, key)
}

func TestItemCreatorDeterministic(t *testing.T) {
	c1 := NewItemCreator(0xAAAA, 3)
	c2 := NewItemCreator(0xAAAA, 3)
	for i := 0; i < 10; i++ {
		d1, ok1 := c1.RollEnemyDrop(5)
		d2, ok2 := c2.RollEnemyDrop(5)
		require.Equal(t, ok1, ok2)
		require.Equal(t, d1, d2)
	}
}

func TestChallengeRank(t *testing.T) {
	p := &ChallengeParams{GoldSeconds: 60, SilverSeconds: 120, BronzeSeconds: 180}
	require.Equal(t, RankGold, p.ComputeRank(50))
	require.Equal(t, RankSilver, p.ComputeRank(100))
	require.Equal(t, RankBronze, p.ComputeRank(150))
	require.Equal(t, RankNone, p.ComputeRank(200))
}
