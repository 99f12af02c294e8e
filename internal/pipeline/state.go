package pipeline

import "errors"

// State is a pipeline stage.
type State string

// Pipeline states in cycle order.
const (
	StateIdle        State = "IDLE"
	StateFetching    State = "FETCHING"
	StateCurating    State = "CURATING"
	StateScraping    State = "SCRAPING"
	StateSummarizing State = "SUMMARIZING"
	StatePersisting  State = "PERSISTING"
	StatePublishing  State = "PUBLISHING"
)

// ErrBusy is returned when a cycle is requested while one is running. The
// request is dropped, not queued.
var ErrBusy = errors.New("pipeline cycle already running")

// FallbackLevel records how far enrichment degraded in a cycle.
type FallbackLevel int

const (
	// FallbackNone means scraping and summarization completed.
	FallbackNone FallbackLevel = iota
	// FallbackSnippets means articles were summarized from feed snippets.
	FallbackSnippets
	// FallbackRaw means articles were persisted without any summary.
	FallbackRaw
)

func (l FallbackLevel) String() string {
	switch l {
	case FallbackNone:
		return "none"
	case FallbackSnippets:
		return "snippets"
	case FallbackRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name in JSON reports.
func (l FallbackLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
