package lobby

import "sync"

// Enemy is part of a map's fixed enemy set (spec.md §3 "Enemy").
type Enemy struct {
	Index      uint32
	Type       uint32
	LastHitBy  int // client slot id, -1 if never hit
	HitMask    uint32 // bit per client slot that has hit this enemy
	Killed     bool
}

// EnemySet is a game's map_state: the fixed per-map enemy population,
// keyed by index (spec.md §3, §4.5 "Experience award").
type EnemySet struct {
	mu      sync.Mutex
	enemies map[uint32]*Enemy
}

// NewEnemySet constructs an empty set; populate it via Populate after
// loading the version's map files for (episode, difficulty, variations).
func NewEnemySet() *EnemySet {
	return &EnemySet{enemies: make(map[uint32]*Enemy)}
}

// Populate installs enemy n at the given fixed map index.
func (s *EnemySet) Populate(index uint32, enemyType uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enemies[index] = &Enemy{Index: index, Type: enemyType, LastHitBy: -1}
}

// Get returns the enemy at index, or nil.
func (s *EnemySet) Get(index uint32) *Enemy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enemies[index]
}

// RegisterHit records that clientSlot hit the enemy at index, becoming
// the last-hit attacker.
func (s *EnemySet) RegisterHit(index uint32, clientSlot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enemies[index]
	if !ok {
		return
	}
	e.LastHitBy = clientSlot
	e.HitMask |= 1 << uint(clientSlot)
}

// KillResult describes the EXP recipients computed when an enemy
// transitions from unkilled to killed (spec.md §4.5).
type KillResult struct {
	Recipients []KillRecipient
}

// KillRecipient is one client's share of a kill's experience award: full
// EXP for the last-hit attacker, 77% for every other client whose hit-mask
// bit is set (spec.md §4.5).
type KillRecipient struct {
	ClientSlot int
	FullShare  bool
}

// lastHitShare is the fraction of full EXP awarded to every contributor
// that is not the last-hit attacker (spec.md §4.5: "77% EXP").
const lastHitShare = 0.77

// Kill marks the enemy at index killed and returns the EXP recipients, or
// ok=false if the enemy was already killed (a kill notification must be
// idempotent — spec.md §4.5: "enemy state shows the enemy unkilled").
func (s *EnemySet) Kill(index uint32) (result KillResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.enemies[index]
	if !exists || e.Killed {
		return KillResult{}, false
	}
	e.Killed = true
	for slot := 0; slot < MaxLobbyClients; slot++ {
		if e.HitMask&(1<<uint(slot)) == 0 {
			continue
		}
		result.Recipients = append(result.Recipients, KillRecipient{
			ClientSlot: slot,
			FullShare:  slot == e.LastHitBy,
		})
	}
	return result, true
}

// EXPShare returns the fraction of an enemy's base EXP value a recipient
// earns: 1.0 for the last-hit attacker, lastHitShare for everyone else.
func (r KillRecipient) EXPShare() float64 {
	if r.FullShare {
		return 1.0
	}
	return lastHitShare
}
