package pipeline

import "github.com/rotisserie/eris"

// ErrConfigurationGap marks a missing escalation-table entry for a required
// (company, category) lookup. It is fatal for the session: the case gets an
// error result instead of an invented specialist.
var ErrConfigurationGap = eris.New("escalation target not configured")

// ErrAborted marks a session cancelled at a turn boundary. Aborted sessions
// produce no result.
var ErrAborted = eris.New("session aborted")

// IsConfigurationGap reports whether err stems from a missing escalation
// mapping.
func IsConfigurationGap(err error) bool {
	return eris.Is(err, ErrConfigurationGap)
}
