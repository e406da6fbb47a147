package quest

import "time"

// Status is the lifecycle state of a character's quest record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

// ObjectiveProgress tracks one objective of an accepted quest.
//
// Invariant: 0 <= Current <= Required; Completed == (Current >= Required).
type ObjectiveProgress struct {
	Type        ObjectiveType `json:"type"`
	Target      string        `json:"target"`
	Description string        `json:"description"`
	Required    int           `json:"required"`
	Current     int           `json:"current"`
	Completed   bool          `json:"completed"`
}

// Progress is a character's record of one quest.
type Progress struct {
	QuestID     string              `json:"questId"`
	Title       string              `json:"title"`
	Status      Status              `json:"status"`
	Objectives  []ObjectiveProgress `json:"objectives"`
	Percent     int                 `json:"progress"`
	StartedAt   time.Time           `json:"startedAt"`
	CompletedAt time.Time           `json:"completedAt,omitzero"`
}

// NewProgress returns a fresh active record for t started at now.
//
// Postcondition: every objective has Current 0 and Completed false.
func NewProgress(t *Template, now time.Time) *Progress {
	p := &Progress{QuestID: t.ID}
	p.reset(t, now)
	return p
}

func (p *Progress) reset(t *Template, now time.Time) {
	p.Title = t.Title
	p.Status = StatusActive
	p.Percent = 0
	p.StartedAt = now
	p.CompletedAt = time.Time{}
	p.Objectives = make([]ObjectiveProgress, len(t.Objectives))
	for i, o := range t.Objectives {
		p.Objectives[i] = ObjectiveProgress{
			Type:        o.Type,
			Target:      o.Target,
			Description: o.Description,
			Required:    o.Required,
		}
	}
}

// ApplyEvent advances every uncompleted objective matching eventType and
// target by amount, clamping at the requirement. Only active records move.
//
// Precondition: amount >= 1.
// Postcondition: Returns true when at least one objective changed.
func (p *Progress) ApplyEvent(eventType ObjectiveType, target string, amount int) bool {
	if p.Status != StatusActive || amount < 1 {
		return false
	}
	updated := false
	for i := range p.Objectives {
		o := &p.Objectives[i]
		if o.Completed || o.Type != eventType || o.Target != target {
			continue
		}
		o.Current += amount
		if o.Current >= o.Required {
			o.Current = o.Required
			o.Completed = true
		}
		updated = true
	}
	if updated {
		p.Percent = p.percent()
	}
	return updated
}

// percent returns floor(sum(current) / sum(required) * 100).
func (p *Progress) percent() int {
	var cur, req int
	for _, o := range p.Objectives {
		cur += o.Current
		req += o.Required
	}
	if req == 0 {
		return 100
	}
	return cur * 100 / req
}

// AllComplete reports whether every objective is complete.
func (p *Progress) AllComplete() bool {
	for _, o := range p.Objectives {
		if !o.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of p.
func (p *Progress) Clone() *Progress {
	c := *p
	c.Objectives = append([]ObjectiveProgress(nil), p.Objectives...)
	return &c
}
