package nav

// History is a back/forward stack of "#" paths. Pushing drops any forward
// entries.
type History struct {
	entries []string
	index   int
}

// NewHistory starts with a single entry.
func NewHistory(initial string) *History {
	return &History{entries: []string{normalizeHash(initial)}}
}

// Push appends path after the current entry.
func (h *History) Push(path string) {
	h.entries = append(h.entries[:h.index+1], normalizeHash(path))
	h.index = len(h.entries) - 1
}

// Replace overwrites the current entry.
func (h *History) Replace(path string) {
	h.entries[h.index] = normalizeHash(path)
}

// Back moves one entry back and returns it.
func (h *History) Back() (string, bool) {
	if !h.CanBack() {
		return "", false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves one entry forward and returns it.
func (h *History) Forward() (string, bool) {
	if !h.CanForward() {
		return "", false
	}
	h.index++
	return h.entries[h.index], true
}

func (h *History) CanBack() bool { return h.index > 0 }
func (h *History) CanForward() bool { return h.index < len(h.entries)-1 }

// Current returns the current entry.
func (h *History) Current() string {
	return h.entries[h.index]
}

// Entries returns a copy of the stack.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

func normalizeHash(path string) string {
	if len(path) > 0 && path[0] == '#' {
		return path
	}
	return "#" + path
}
