package dice

import "go.uber.org/zap"

// Roller wraps a Source and logs every draw at debug level, giving an audit
// trail for combat and loot outcomes.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs each draw to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn draws from the wrapped source and logs the bound and result.
//
// Precondition: n > 0.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice intn", zap.Int("n", n), zap.Int("value", v))
	return v
}

// Float64 draws from the wrapped source and logs the result.
func (r *Roller) Float64() float64 {
	v := r.src.Float64()
	r.logger.Debug("dice float", zap.Float64("value", v))
	return v
}
