package game

// ReviewReason says why a strategy review was triggered.
type ReviewReason int

const (
	ReviewNone ReviewReason = iota
	// ReviewPeriodic is the fixed review cadence.
	ReviewPeriodic
	// ReviewEmergency fires on a sustained zero-acceptance streak: a
	// miscalibrated strategy can silently stall quota progress for an
	// arbitrarily long stretch, and the periodic cadence alone is not
	// guaranteed to catch that quickly enough.
	ReviewEmergency
)

func (r ReviewReason) String() string {
	switch r {
	case ReviewPeriodic:
		return "periodic"
	case ReviewEmergency:
		return "emergency"
	default:
		return "none"
	}
}

// SchedulerConfig tunes when strategy reviews happen.
type SchedulerConfig struct {
	// Interval is the periodic review cadence in arrivals.
	Interval int
	// EmergencyAfter is the arrival index past which the zero-acceptance
	// emergency may fire.
	EmergencyAfter int
	// EmergencyWindow is the number of recent decisions inspected for the
	// zero-acceptance condition.
	EmergencyWindow int
}

// DefaultSchedulerConfig matches the reference tuning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:        100,
		EmergencyAfter:  450,
		EmergencyWindow: 25,
	}
}

// Scheduler decides when to consult the strategy provider. The emergency
// path fires at most once per stall: after firing it disarms until an
// admission re-enters the decision window.
type Scheduler struct {
	cfg    SchedulerConfig
	recent []bool
	armed  bool
}

// NewScheduler creates a scheduler. Zero config fields fall back to the
// defaults.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.EmergencyAfter <= 0 {
		cfg.EmergencyAfter = def.EmergencyAfter
	}
	if cfg.EmergencyWindow <= 0 {
		cfg.EmergencyWindow = def.EmergencyWindow
	}
	return &Scheduler{
		cfg:    cfg,
		recent: make([]bool, 0, cfg.EmergencyWindow),
		armed:  true,
	}
}

// Observe records one decision outcome. An admission re-arms the emergency
// trigger.
func (s *Scheduler) Observe(admitted bool) {
	s.recent = append(s.recent, admitted)
	if len(s.recent) > s.cfg.EmergencyWindow {
		s.recent = s.recent[1:]
	}
	if admitted {
		s.armed = true
	}
}

// ShouldReview reports whether a review is due before deciding on the
// arrival at personIndex, and why. At most one review fires per arrival.
func (s *Scheduler) ShouldReview(personIndex int) ReviewReason {
	if personIndex > 0 && personIndex%s.cfg.Interval == 0 {
		return ReviewPeriodic
	}
	if s.emergency(personIndex) {
		s.armed = false
		return ReviewEmergency
	}
	return ReviewNone
}

func (s *Scheduler) emergency(personIndex int) bool {
	if !s.armed || personIndex <= s.cfg.EmergencyAfter {
		return false
	}
	if len(s.recent) < s.cfg.EmergencyWindow {
		return false
	}
	for _, admitted := range s.recent {
		if admitted {
			return false
		}
	}
	return true
}
