package browse

// History is a navigation stack of query strings with a cursor, the way a
// browser keeps pushed entries. Entries are stored encoded so that replaying
// one always goes through the same parser as a deep link.
type History struct {
	entries []string
	pos     int
}

// NewHistory starts a history at the given query string.
func NewHistory(initial string) *History {
	return &History{entries: []string{initial}}
}

// Push adds an entry after the cursor, dropping any forward entries.
// Pushing the current entry again is a no-op.
func (h *History) Push(query string) {
	if h.entries[h.pos] == query {
		return
	}
	h.entries = append(h.entries[:h.pos+1], query)
	h.pos++
}

// Replace overwrites the current entry.
func (h *History) Replace(query string) {
	h.entries[h.pos] = query
}

// Current returns the entry under the cursor.
func (h *History) Current() string {
	return h.entries[h.pos]
}

// Back moves the cursor back one entry.
func (h *History) Back() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	return h.entries[h.pos], true
}

// Forward moves the cursor forward one entry.
func (h *History) Forward() (string, bool) {
	if h.pos+1 >= len(h.entries) {
		return "", false
	}
	h.pos++
	return h.entries[h.pos], true
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }
