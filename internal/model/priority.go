package model

// Priority is the case priority derived from the extracted urgency field.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityRank maps priorities to ordinal ranks for comparison.
// Higher rank means more urgent.
var priorityRank = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns the ordinal rank of p, or -1 for unrecognized values.
func (p Priority) Rank() int {
	r, ok := priorityRank[p]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether p ranks at or above other. Unrecognized values
// rank below every valid priority.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank() && p.Rank() >= 0
}

// PriorityFromUrgency maps the free-text urgency field onto the ordinal
// priority scale. Unset or unrecognized urgency defaults to medium.
func PriorityFromUrgency(urgency string) Priority {
	switch Priority(NormalizeCompany(urgency)) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	case PriorityCritical:
		return PriorityCritical
	default:
		return PriorityMedium
	}
}
