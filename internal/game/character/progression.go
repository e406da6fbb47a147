package character

import (
	"fmt"
	"math"
)

// Carryover selects what happens to surplus experience on level-up.
type Carryover string

const (
	// Carry keeps surplus experience; one award can cross several levels.
	Carry Carryover = "carry"
	// Reset zeroes experience on level-up; one award crosses at most one level.
	Reset Carryover = "reset"
)

// ParseCarryover validates a configured carryover policy name.
func ParseCarryover(s string) (Carryover, error) {
	switch Carryover(s) {
	case Carry, Reset:
		return Carryover(s), nil
	default:
		return "", fmt.Errorf("unknown experience carryover policy %q", s)
	}
}

// XPForLevel returns the experience needed to advance from level:
// floor(100 * 1.5^(level-1)). Levels below one are treated as one.
//
// Postcondition: strictly increasing in level.
func XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// LevelUp reports the levels crossed by one experience award.
type LevelUp struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Levels returns the number of levels gained.
func (l LevelUp) Levels() int { return l.To - l.From }

// Gained reports whether at least one level was gained.
func (l LevelUp) Gained() bool { return l.To > l.From }

// GainExperience adds amount and applies every level-up it earns under policy.
//
// Precondition: amount >= 0.
// Postcondition: Experience < XPForLevel(Level) under Carry.
func (c *Character) GainExperience(amount int, policy Carryover) LevelUp {
	res := LevelUp{From: c.Level, To: c.Level}
	if amount <= 0 {
		return res
	}
	c.Experience += amount
	switch policy {
	case Reset:
		if c.Experience >= XPForLevel(c.Level) {
			c.Experience = 0
			c.levelUp()
		}
	default:
		for c.Experience >= XPForLevel(c.Level) {
			c.Experience -= XPForLevel(c.Level)
			c.levelUp()
		}
	}
	res.To = c.Level
	return res
}

// levelUp grants +1 strength, dexterity, constitution and intelligence,
// +10 max health, +5 max mana, and restores both pools.
func (c *Character) levelUp() {
	c.Level++
	c.Attributes.Strength++
	c.Attributes.Dexterity++
	c.Attributes.Constitution++
	c.Attributes.Intelligence++
	c.Health.Max += 10
	c.Mana.Max += 5
	c.Health.Restore()
	c.Mana.Restore()
}

// ApplyDeathPenalty moves the character to respawnZone with half health and
// loses xpPenalty of its current experience, rounding the remainder down.
//
// Precondition: 0 <= xpPenalty <= 1.
func (c *Character) ApplyDeathPenalty(respawnZone string, xpPenalty float64) {
	c.ZoneID = respawnZone
	c.Health.Current = c.Health.Max / 2
	if c.Experience > 0 && xpPenalty > 0 {
		kept := math.Floor(float64(c.Experience)*(1-xpPenalty) + 1e-9)
		c.Experience = int(math.Max(0, kept))
	}
}
