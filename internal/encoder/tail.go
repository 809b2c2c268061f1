package encoder

import "strings"

// tailBuffer keeps the last maxBytes of appended lines.
type tailBuffer struct {
	lines    []string
	size     int
	maxBytes int
}

func newTailBuffer(maxBytes int) *tailBuffer {
	return &tailBuffer{maxBytes: maxBytes}
}

func (t *tailBuffer) WriteLine(line string) {
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > t.maxBytes && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "\n")
}
