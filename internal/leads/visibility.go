package leads

import "time"

// VisibilityWindow is how long after creation a lead stays offerable.
const VisibilityWindow = 48 * time.Hour

// VisibilityStatus explains whether a lead is currently offerable to
// sellers, with reasons suitable for annotation in listing responses.
type VisibilityStatus struct {
	Offerable bool     `json:"offerable"`
	Reasons   []string `json:"reasons,omitempty"`
}

// Offerable reports whether the lead may be shown to sellers right now:
// younger than the visibility window, with slots left, and not terminal.
// Pure predicate, shared by the listing filter and the per-lead endpoint.
func Offerable(l *Lead, now time.Time) bool {
	return now.Sub(l.CreatedAt) <= VisibilityWindow &&
		l.AvailableSlots > 0 &&
		(l.Status == StatusNew || l.Status == StatusInProgress)
}

// Visibility evaluates the predicate and collects the failing conditions.
func Visibility(l *Lead, now time.Time) VisibilityStatus {
	var reasons []string
	if now.Sub(l.CreatedAt) > VisibilityWindow {
		reasons = append(reasons, "older than 48h")
	}
	if l.AvailableSlots <= 0 {
		reasons = append(reasons, "no available slots")
	}
	if l.Status != StatusNew && l.Status != StatusInProgress {
		reasons = append(reasons, "status "+string(l.Status))
	}
	return VisibilityStatus{Offerable: len(reasons) == 0, Reasons: reasons}
}
