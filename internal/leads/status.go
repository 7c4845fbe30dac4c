package leads

// Status is the lead lifecycle state. Purchases only ever drive new →
// in-progress; closed and cancelled are terminal and reachable solely via
// administrative override.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusClosed     Status = "closed"
	StatusCancelled  Status = "cancelled"
)

// legacyStatusMap translates stale values still present in older rows.
var legacyStatusMap = map[string]Status{
	"active":  StatusInProgress,
	"pending": StatusNew,
	"sold":    StatusClosed,
}

// NormalizeStatus is a total function from arbitrary stored strings to a
// valid Status. Known legacy aliases are mapped; anything unrecognized
// defaults to StatusNew. Applied at the storage boundary on every read so
// no other code ever sees a raw status string.
func NormalizeStatus(raw string) Status {
	switch Status(raw) {
	case StatusNew, StatusInProgress, StatusClosed, StatusCancelled:
		return Status(raw)
	}
	if mapped, ok := legacyStatusMap[raw]; ok {
		return mapped
	}
	return StatusNew
}

// ParseStatus maps user-supplied status strings for the administrative
// override path. Unlike NormalizeStatus it does not default unknown values:
// an admin writing garbage should hear about it.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusNew, StatusInProgress, StatusClosed, StatusCancelled:
		return Status(raw), true
	}
	if mapped, ok := legacyStatusMap[raw]; ok {
		return mapped, true
	}
	return "", false
}

// Terminal reports whether the status admits no further purchases.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}
