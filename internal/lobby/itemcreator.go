package lobby

import "math/rand/v2"

// itemTypeMeseta is the item-data tag byte used by this implementation
// for a Meseta drop. The exact byte values retail uses per version are
// not reproduced here (out of scope per spec.md's exclusion of
// per-card/per-item effect tables); what matters for the testable
// property in spec.md §8 is that two ItemCreators seeded identically
// produce an identical sequence of drops.
const itemTypeMeseta = 0x04

// ItemCreator generates deterministic item drops from a seeded RNG, so
// that a replay (or a second client observing the same SERVER_SHARED
// drop) reproduces the same result (spec.md §4.5).
type ItemCreator struct {
	rng       *rand.Rand
	sectionID int
}

// NewItemCreator constructs an ItemCreator seeded by seed, parameterized
// by sectionID (0-9, selects the loot/personality profile per spec.md's
// glossary).
func NewItemCreator(seed uint32, sectionID int) *ItemCreator {
	return &ItemCreator{
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(sectionID))),
		sectionID: sectionID,
	}
}

// RollMeseta returns a Meseta FloorItem payload for amount.
func RollMeseta(amount uint32) [12]byte {
	var data [12]byte
	data[0] = itemTypeMeseta
	data[4] = byte(amount)
	data[5] = byte(amount >> 8)
	data[6] = byte(amount >> 16)
	data[7] = byte(amount >> 24)
	return data
}

// DropChanceForEnemy is the probability (0..1) that killing enemyType
// drops anything at all, before consulting the rare/common tables. This
// stands in for the per-version common-item-set + rare-item-table
// consultation spec.md describes; the full table data is an external
// asset (§6 "Item and stat tables"), not reproduced in source.
const DropChanceForEnemy = 0.5

// RollEnemyDrop decides whether killing an enemy of the given type drops
// an item, and if so what. ok is false when nothing drops.
func (c *ItemCreator) RollEnemyDrop(enemyType uint32) (data [12]byte, ok bool) {
	if c.rng.Float64() >= DropChanceForEnemy {
		return data, false
	}
	// A meseta amount derived from the enemy type and a random factor,
	// standing in for the version's common-item-set table.
	amount := (enemyType%10 + 1) * 10 * uint32(1+c.rng.IntN(10))
	return RollMeseta(amount), true
}

// RollBoxDrop is the box-opening analog of RollEnemyDrop.
func (c *ItemCreator) RollBoxDrop() (data [12]byte, ok bool) {
	if c.rng.Float64() >= DropChanceForEnemy {
		return data, false
	}
	amount := uint32(10 + c.rng.IntN(200))
	return RollMeseta(amount), true
}
