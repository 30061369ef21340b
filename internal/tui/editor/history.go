package editor

const maxHistory = 100

// history keeps executed queries for recall. pos == len(entries) means the
// user is editing a fresh query, saved in draft while browsing.
type history struct {
	entries []string
	pos     int
	draft   string
}

func (h *history) push(query string) {
	if n := len(h.entries); n == 0 || h.entries[n-1] != query {
		h.entries = append(h.entries, query)
		if len(h.entries) > maxHistory {
			h.entries = h.entries[len(h.entries)-maxHistory:]
		}
	}
	h.pos = len(h.entries)
	h.draft = ""
}

// prev steps back, remembering current as the draft on the first step.
func (h *history) prev(current string) (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	if h.pos == len(h.entries) {
		h.draft = current
	}
	h.pos--
	return h.entries[h.pos], true
}

func (h *history) next() (string, bool) {
	if h.pos >= len(h.entries) {
		return "", false
	}
	h.pos++
	if h.pos == len(h.entries) {
		return h.draft, true
	}
	return h.entries[h.pos], true
}
