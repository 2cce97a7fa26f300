// Package logtail reads the tail of the client log file and renders it for a
// terminal.
//
// The client logs structured JSON lines (see package logging) because the
// TUI owns the terminal while it runs. `adindex logs` uses this package to
// show them afterwards:
//
//	lines, err := logtail.Read(cfg.LogFile, 200)
//	entries := make([]logtail.Entry, 0, len(lines))
//	for _, line := range lines {
//		entries = append(entries, logtail.Parse(line))
//	}
//	for _, e := range logtail.Filter(entries, "warn") {
//		fmt.Println(logtail.Format(e))
//	}
//
// # Reading
//
// Read keeps a ring buffer of maxLines entries and scans the file once, so
// memory stays proportional to the number of lines returned rather than the
// size of the file. A missing file yields no lines and no error.
//
// # Parsing
//
// Parse accepts both key sets pslog can emit (time/level/message and
// ts/lvl/msg). Lines that are not JSON, such as a panic trace appended by the
// runtime, are kept verbatim and survive any level filter.
package logtail
