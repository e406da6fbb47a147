package combat

import (
	"math"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

const (
	// UnarmedDamage is the fixed base damage of an attacker with no weapon.
	UnarmedDamage = 5
	// PlayerJitter is the ±fraction applied to player-dealt damage.
	PlayerJitter = 0.15
	// MonsterJitter is the ±fraction applied to monster-dealt damage.
	MonsterJitter = 0.20
	// MaxDamage caps a single hit.
	MaxDamage = math.MaxInt32
)

// DamageRoll is the input to RollDamage.
type DamageRoll struct {
	// Min and Max bound the base damage draw (inclusive).
	Min int
	Max int
	// Strength scales base damage by 1 + Strength*0.05.
	Strength int
	// Dexterity drives the critical-hit chance.
	Dexterity int
	// Resistance is the defender's resistance fraction in [0, 1).
	Resistance float64
	// Jitter is the ±fraction of random spread applied last.
	Jitter float64
}

// Unarmed returns a DamageRoll for an attacker with no weapon.
func Unarmed(attacker Attributes, resistance float64) DamageRoll {
	return DamageRoll{
		Min:        UnarmedDamage,
		Max:        UnarmedDamage,
		Strength:   attacker.Strength,
		Dexterity:  attacker.Dexterity,
		Resistance: resistance,
		Jitter:     PlayerJitter,
	}
}

// Damage is the outcome of one damage roll.
type Damage struct {
	Amount   int
	Critical bool
}

// RollDamage computes one hit.
//
// The draws happen in a fixed order: base (Intn), critical trial (Float64),
// jitter (Float64, only when Jitter > 0).
//
// Precondition: src must be non-nil.
// Postcondition: 1 <= result.Amount <= MaxDamage.
func RollDamage(src dice.Source, r DamageRoll) Damage {
	min, max := r.Min, r.Max
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	base := float64(dice.Between(src, min, max))

	dmg := base * (1 + nonNegative(r.Strength)*strengthDamageStep)

	crit := src.Float64() < CriticalChance(r.Dexterity)
	if crit {
		dmg *= criticalMultiplier
	}

	res := math.Max(0, math.Min(1, r.Resistance))
	dmg *= 1 - res
	dmg *= dice.Spread(src, r.Jitter)

	amount := int(math.Floor(math.Min(dmg, MaxDamage)))
	if amount < 1 {
		amount = 1
	}
	return Damage{Amount: amount, Critical: crit}
}
