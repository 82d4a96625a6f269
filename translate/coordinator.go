package translate

import "strings"

const (
	// MaxCacheSize is how many coordinator fragments are held back before
	// deciding between a handoff and visible output.
	MaxCacheSize = 3

	// HandoffMarker prefixes coordinator output that transfers control to
	// the planner instead of answering the user.
	HandoffMarker = "handoff"
)

// coordinatorBuffer holds the first coordinator fragments of a run until
// it can tell a handoff from user-visible text.
type coordinatorBuffer struct {
	fragments []string
	handoff   bool
}

// push accepts the next fragment and returns the text to emit, if any.
//
// While fewer than MaxCacheSize fragments are buffered the fragment is
// appended. A buffer whose concatenation starts with HandoffMarker marks the
// run as a handoff. Filling the buffer without the marker flushes the
// concatenation once; after that every fragment passes through alone unless
// a handoff was seen.
func (b *coordinatorBuffer) push(fragment string) (string, bool) {
	if len(b.fragments) < MaxCacheSize {
		b.fragments = append(b.fragments, fragment)
		joined := strings.Join(b.fragments, "")
		if strings.HasPrefix(joined, HandoffMarker) {
			b.handoff = true
			return "", false
		}
		if len(b.fragments) < MaxCacheSize {
			return "", false
		}
		return joined, true
	}

	if b.handoff {
		return "", false
	}
	return fragment, true
}
