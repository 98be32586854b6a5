package frontend

import "strings"

// word is one whitespace-delimited token of a source line.
type word struct {
	text string
	col  int // 1-based byte column
}

// scanner splits a single source line into words.
type scanner struct {
	line string
	pos  int // byte offset of the next unread character
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f'
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.line) {
		return 0
	}
	return s.line[s.pos]
}

func (s *scanner) skipWhitespace() {
	for s.pos < len(s.line) && isSpace(s.peek()) {
		s.pos++
	}
}

// next returns the next word on the line. A word starting with '#' begins a
// comment and ends the line.
func (s *scanner) next() (word, bool) {
	s.skipWhitespace()
	if s.pos >= len(s.line) || s.peek() == '#' {
		s.pos = len(s.line)
		return word{}, false
	}
	start := s.pos
	for s.pos < len(s.line) && !isSpace(s.peek()) {
		s.pos++
	}
	return word{text: s.line[start:s.pos], col: start + 1}, true
}

// words returns every word of line up to any comment.
func words(line string) []word {
	s := scanner{line: line}
	var out []word
	for {
		w, ok := s.next()
		if !ok {
			return out
		}
		out = append(out, w)
	}
}

// splitLines splits src on '\n'. A trailing newline does not start an extra
// line.
func splitLines(src string) []string {
	lines := strings.Split(src, "\n")
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
