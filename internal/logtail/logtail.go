package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line. Lines that are not JSON keep only Raw.
type Entry struct {
	Time    string
	Level   string
	Message string
	Fields  map[string]any
	Raw     string
}

// Parse decodes a structured log line. Both the verbose and the short pslog
// key names are accepted.
func Parse(line string) Entry {
	payload := map[string]any{}
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return Entry{Raw: line}
	}
	e := Entry{Raw: line, Fields: payload}
	e.Time = firstString(payload, "time", "ts")
	e.Level = strings.ToLower(firstString(payload, "level", "lvl"))
	e.Message = firstString(payload, "message", "msg")
	for _, k := range []string{"time", "ts", "level", "lvl", "message", "msg"} {
		delete(e.Fields, k)
	}
	return e
}

func firstString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok {
			return v
		}
	}
	return ""
}

var levelRank = map[string]int{
	"trace": 0,
	"debug": 1,
	"info":  2,
	"warn":  3,
	"error": 4,
	"fatal": 5,
	"panic": 6,
}

// Filter keeps entries at or above minLevel. Unparsed lines and unknown
// levels are always kept.
func Filter(entries []Entry, minLevel string) []Entry {
	floor, ok := levelRank[strings.ToLower(strings.TrimSpace(minLevel))]
	if !ok {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		rank, known := levelRank[e.Level]
		if !known || rank >= floor {
			out = append(out, e)
		}
	}
	return out
}

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	fieldKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AFFF"))
	fieldValue  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AFFF"))
	levelStyles = map[string]lipgloss.Style{
		"debug": lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true),
		"info":  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F")).Bold(true),
		"warn":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// Format renders an entry as a single human-readable line. Fields are
// sorted by key.
func Format(e Entry) string {
	if e.Fields == nil && e.Level == "" && e.Message == "" {
		return e.Raw
	}
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(timeStyle.Render(e.Time))
		b.WriteString(" ")
	}
	level := strings.ToUpper(e.Level)
	if style, ok := levelStyles[e.Level]; ok {
		level = style.Render(level)
	}
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(fieldKey.Render(k))
		b.WriteString("=")
		b.WriteString(fieldValue.Render(fmt.Sprint(e.Fields[k])))
	}
	return b.String()
}
