package quest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyActive is returned when accepting a quest that is in progress.
	ErrAlreadyActive = errors.New("quest already accepted")
	// ErrAlreadyCompleted is returned when accepting a finished non-repeatable quest.
	ErrAlreadyCompleted = errors.New("quest already completed")
	// ErrCoolingDown is returned when a repeatable quest was completed too recently.
	ErrCoolingDown = errors.New("quest is not available again yet")
	// ErrPrerequisites is returned when a prerequisite quest is not completed.
	ErrPrerequisites = errors.New("you have not completed the prerequisite quests")
	// ErrNotActive is returned when a quest is not in progress.
	ErrNotActive = errors.New("quest not found or not active")
	// ErrIncomplete is returned when turning in a quest with open objectives.
	ErrIncomplete = errors.New("not all quest objectives are completed")
)

// Completion logs one turn-in of a repeatable quest.
type Completion struct {
	QuestID     string    `json:"questId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Journal holds a character's quest records in acceptance order plus the
// completion log of repeatable quests.
type Journal struct {
	Records     []*Progress  `json:"records"`
	Completions []Completion `json:"completions,omitempty"`
}

// Record returns the record for questID, or nil.
func (j *Journal) Record(questID string) *Progress {
	for _, p := range j.Records {
		if p.QuestID == questID {
			return p
		}
	}
	return nil
}

// Active returns the active records in acceptance order.
func (j *Journal) Active() []*Progress {
	var out []*Progress
	for _, p := range j.Records {
		if p.Status == StatusActive {
			out = append(out, p)
		}
	}
	return out
}

// HasCompleted reports whether questID was ever turned in.
func (j *Journal) HasCompleted(questID string) bool {
	if p := j.Record(questID); p != nil && p.Status == StatusCompleted {
		return true
	}
	for _, c := range j.Completions {
		if c.QuestID == questID {
			return true
		}
	}
	return false
}

// LastCompletion returns the latest logged completion time of questID.
func (j *Journal) LastCompletion(questID string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, c := range j.Completions {
		if c.QuestID == questID && (!found || c.CompletedAt.After(last)) {
			last, found = c.CompletedAt, true
		}
	}
	if !found {
		if p := j.Record(questID); p != nil && p.Status == StatusCompleted {
			return p.CompletedAt, true
		}
	}
	return last, found
}

// CanStart checks everything except level about accepting t at now.
//
// Postcondition: Returns nil, or one of ErrAlreadyActive, ErrAlreadyCompleted,
// ErrCoolingDown, ErrPrerequisites.
func (j *Journal) CanStart(t *Template, now time.Time) error {
	if p := j.Record(t.ID); p != nil {
		switch {
		case p.Status == StatusActive:
			return ErrAlreadyActive
		case p.Status == StatusCompleted && !t.Repeatable:
			return ErrAlreadyCompleted
		}
	}
	if t.Repeatable && t.RepeatCooldown() > 0 {
		if last, ok := j.LastCompletion(t.ID); ok && now.Before(last.Add(t.RepeatCooldown())) {
			return ErrCoolingDown
		}
	}
	for _, pre := range t.Prerequisites {
		if !j.HasCompleted(pre) {
			return ErrPrerequisites
		}
	}
	return nil
}

// Available reports whether t should be offered to a character of level in zoneID.
// Quests up to two levels above the character are offered.
func (j *Journal) Available(t *Template, level int, zoneID string, now time.Time) bool {
	if !t.Active || t.Level > level+2 || !t.AvailableIn(zoneID) {
		return false
	}
	return j.CanStart(t, now) == nil
}

// Start accepts t. A failed, abandoned or completed-repeatable record is reset
// in place; otherwise a new record is appended.
//
// Precondition: CanStart(t, now) returned nil.
// Postcondition: Returns the active record.
func (j *Journal) Start(t *Template, now time.Time) *Progress {
	if p := j.Record(t.ID); p != nil {
		p.reset(t, now)
		return p
	}
	p := NewProgress(t, now)
	j.Records = append(j.Records, p)
	return p
}

// Abandon moves an active record to abandoned.
//
// Postcondition: Returns ErrNotActive when questID is not active.
func (j *Journal) Abandon(questID string) error {
	p := j.Record(questID)
	if p == nil || p.Status != StatusActive {
		return ErrNotActive
	}
	p.Status = StatusAbandoned
	return nil
}

// Fail moves an active record to failed.
func (j *Journal) Fail(questID string) error {
	p := j.Record(questID)
	if p == nil || p.Status != StatusActive {
		return ErrNotActive
	}
	p.Status = StatusFailed
	return nil
}

// ReadyToComplete returns the active record for questID when all of its
// objectives are complete.
//
// Postcondition: Returns ErrNotActive or ErrIncomplete otherwise.
func (j *Journal) ReadyToComplete(questID string) (*Progress, error) {
	p := j.Record(questID)
	if p == nil || p.Status != StatusActive {
		return nil, ErrNotActive
	}
	if !p.AllComplete() {
		return nil, ErrIncomplete
	}
	return p, nil
}

// MarkCompleted transitions questID to completed at now and, for repeatable
// quests, appends a completion log entry.
func (j *Journal) MarkCompleted(t *Template, now time.Time) error {
	p, err := j.ReadyToComplete(t.ID)
	if err != nil {
		return fmt.Errorf("completing %q: %w", t.ID, err)
	}
	p.Status = StatusCompleted
	p.Percent = 100
	p.CompletedAt = now
	if t.Repeatable {
		j.Completions = append(j.Completions, Completion{QuestID: t.ID, CompletedAt: now})
	}
	return nil
}

// ApplyEvent forwards a gameplay event to every active record.
//
// Postcondition: Returns the records that changed.
func (j *Journal) ApplyEvent(eventType ObjectiveType, target string, amount int) []*Progress {
	var changed []*Progress
	for _, p := range j.Records {
		if p.ApplyEvent(eventType, target, amount) {
			changed = append(changed, p)
		}
	}
	return changed
}

// Clone returns a deep copy of j.
func (j *Journal) Clone() Journal {
	out := Journal{Completions: append([]Completion(nil), j.Completions...)}
	if j.Records != nil {
		out.Records = make([]*Progress, len(j.Records))
		for i, p := range j.Records {
			out.Records[i] = p.Clone()
		}
	}
	return out
}
