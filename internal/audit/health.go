package audit

import "math"

// HealthBreakdown shows the sub-scores of the health formula
type HealthBreakdown struct {
	Ordering  float64 `json:"ordering"`
	Integrity float64 `json:"integrity"`
	Staleness float64 `json:"staleness"`
	Tagging   float64 `json:"tagging"`
}

// Report is the full audit result
type Report struct {
	TotalNotes      int              `json:"total_notes"`
	TotalEntries    int              `json:"total_entries"`
	HealthScore     float64          `json:"health_score"`
	HealthBreakdown HealthBreakdown  `json:"health_breakdown"`
	Integrity       *IntegrityReport `json:"integrity"`
	Staleness       *StalenessReport `json:"staleness"`
}

// Config holds audit parameters
type Config struct {
	StaleDays int64
	NowMs     int64 // zero means time.Now
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{StaleDays: 90}
}

// Check runs all checks and computes a composite health score in [0,1]
func Check(snap *Snapshot, config *Config) *Report {
	if config == nil {
		config = DefaultConfig()
	}
	integrity := ComputeIntegrity(snap)
	staleness := ComputeStaleness(snap, config.StaleDays, config.NowMs)

	total := float64(len(snap.Notes))
	ordering, integ, stale, tagging := 1.0, 1.0, 1.0, 1.0

	if total > 0 {
		ordering = clamp(1.0-math.Min(float64(len(integrity.OrderingViolations))/total, 0.2)*5.0, 0, 1)
		other := len(integrity.OrphanEntries) + len(integrity.MalformedTags) + len(integrity.NewerThanParent)
		integ = clamp(1.0-math.Min(float64(other)/total, 0.1)*10.0, 0, 1)
		stale = clamp(1.0-math.Min(float64(staleness.StaleCount)/total, 0.5)*2.0, 0, 1)
		tagging = clamp(1.0-math.Min(float64(staleness.UntaggedCount)/total, 0.5)*2.0, 0, 1)
	} else if len(integrity.OrphanEntries) > 0 {
		integ = 0
	}

	healthScore := 0.35*ordering + 0.25*integ + 0.20*stale + 0.20*tagging

	return &Report{
		TotalNotes:   len(snap.Notes),
		TotalEntries: len(snap.Entries),
		HealthScore:  healthScore,
		HealthBreakdown: HealthBreakdown{
			Ordering:  ordering,
			Integrity: integ,
			Staleness: stale,
			Tagging:   tagging,
		},
		Integrity: integrity,
		Staleness: staleness,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
