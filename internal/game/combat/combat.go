// Package combat implements the pure damage and derived-stat formulas shared
// by players and monsters. Nothing in this package holds state; randomness is
// always injected as a dice.Source.
package combat

import "math"

// Attributes holds the six core attributes of a character or monster.
type Attributes struct {
	Strength     int `yaml:"strength" json:"strength"`
	Dexterity    int `yaml:"dexterity" json:"dexterity"`
	Intelligence int `yaml:"intelligence" json:"intelligence"`
	Constitution int `yaml:"constitution" json:"constitution"`
	Wisdom       int `yaml:"wisdom" json:"wisdom"`
	Vitality     int `yaml:"vitality" json:"vitality"`
}

// Add returns the element-wise sum of a and b.
func (a Attributes) Add(b Attributes) Attributes {
	return Attributes{
		Strength:     a.Strength + b.Strength,
		Dexterity:    a.Dexterity + b.Dexterity,
		Intelligence: a.Intelligence + b.Intelligence,
		Constitution: a.Constitution + b.Constitution,
		Wisdom:       a.Wisdom + b.Wisdom,
		Vitality:     a.Vitality + b.Vitality,
	}
}

// Increase adds delta to the attribute named by name.
//
// Postcondition: Returns false, leaving a unchanged, when name is not one of
// strength, dexterity, intelligence, constitution, wisdom, vitality.
func (a *Attributes) Increase(name string, delta int) bool {
	switch name {
	case "strength":
		a.Strength += delta
	case "dexterity":
		a.Dexterity += delta
	case "intelligence":
		a.Intelligence += delta
	case "constitution":
		a.Constitution += delta
	case "wisdom":
		a.Wisdom += delta
	case "vitality":
		a.Vitality += delta
	default:
		return false
	}
	return true
}

const (
	maxCriticalChance  = 0.25
	maxPhysicalResist  = 0.40
	maxMagicResist     = 0.50
	critChancePerDex   = 0.005
	physResistPerCon   = 0.0075
	magicResistPerWis  = 0.01
	strengthDamageStep = 0.05
	criticalMultiplier = 1.5
)

func nonNegative(v int) float64 {
	if v < 0 {
		return 0
	}
	return float64(v)
}

// CriticalChance returns min(0.25, dex*0.005).
//
// Postcondition: 0 <= result <= 0.25; monotonically non-decreasing in dex.
func CriticalChance(dex int) float64 {
	return math.Min(maxCriticalChance, nonNegative(dex)*critChancePerDex)
}

// PhysicalResistance returns min(0.40, con*0.0075).
//
// Postcondition: 0 <= result <= 0.40; monotonically non-decreasing in con.
func PhysicalResistance(con int) float64 {
	return math.Min(maxPhysicalResist, nonNegative(con)*physResistPerCon)
}

// MagicResistance returns min(0.50, wis*0.01).
//
// Postcondition: 0 <= result <= 0.50; monotonically non-decreasing in wis.
func MagicResistance(wis int) float64 {
	return math.Min(maxMagicResist, nonNegative(wis)*magicResistPerWis)
}

// DamageKind selects which resistance applies to incoming damage.
type DamageKind string

const (
	Physical DamageKind = "physical"
	Magic    DamageKind = "magic"
)

// ResistanceFor returns the defender's resistance against damage of kind.
// Unknown kinds are treated as physical.
func ResistanceFor(kind DamageKind, defender Attributes) float64 {
	if kind == Magic {
		return MagicResistance(defender.Wisdom)
	}
	return PhysicalResistance(defender.Constitution)
}

// MaxHealth returns the starting health pool of a character:
// 100 + (level-1)*10 + vitality*5.
//
// Precondition: level >= 1.
func MaxHealth(level, vitality int) int {
	return 100 + (level-1)*10 + vitality*5
}

// MaxMana returns the starting mana pool of a character:
// 50 + (level-1)*5 + intelligence*3 + wisdom*2.
//
// Precondition: level >= 1.
func MaxMana(level, intelligence, wisdom int) int {
	return 50 + (level-1)*5 + intelligence*3 + wisdom*2
}
