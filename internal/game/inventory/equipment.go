package inventory

// Slot identifies an equipment slot.
type Slot string

const (
	SlotHead     Slot = "head"
	SlotBody     Slot = "body"
	SlotLegs     Slot = "legs"
	SlotFeet     Slot = "feet"
	SlotHands    Slot = "hands"
	SlotMainHand Slot = "mainHand"
	SlotOffHand  Slot = "offHand"
)

var slotDisplayNames = map[Slot]string{
	SlotHead:     "Head",
	SlotBody:     "Body",
	SlotLegs:     "Legs",
	SlotFeet:     "Feet",
	SlotHands:    "Hands",
	SlotMainHand: "Main Hand",
	SlotOffHand:  "Off Hand",
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	_, ok := slotDisplayNames[s]
	return ok
}

// DisplayName returns the human-readable label for the slot, or the raw
// identifier when unknown.
func (s Slot) DisplayName() string {
	if label, ok := slotDisplayNames[s]; ok {
		return label
	}
	return string(s)
}

// Equipment maps occupied slots to the item template id worn in them.
type Equipment map[Slot]string

// Clone returns an independent copy.
func (e Equipment) Clone() Equipment {
	out := make(Equipment, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// MainHand returns the item id in the main-hand slot, or "" when empty.
func (e Equipment) MainHand() string {
	return e[SlotMainHand]
}
