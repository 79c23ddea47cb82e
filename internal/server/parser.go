package server

import (
	"strconv"
	"strings"
)

// tokens is a cursor over the whitespace-separated fields of a text frame.
// The first field is the verb; handlers bind the rest with the typed next*
// helpers and finish with done() to enforce exact arity.
type tokens struct {
	fields []string
	pos    int
}

func tokenize(frame []byte) *tokens {
	return &tokens{fields: strings.Fields(string(frame)), pos: 1}
}

// verb returns the command verb, or "" for an empty frame.
func (t *tokens) verb() string {
	if len(t.fields) == 0 {
		return ""
	}
	return t.fields[0]
}

// text returns the command as sent, normalized to single spaces. Used when
// relaying device-control commands verbatim.
func (t *tokens) text() string {
	return strings.Join(t.fields, " ")
}

// done reports whether every argument token was consumed.
func (t *tokens) done() bool {
	return t.pos == len(t.fields)
}

func (t *tokens) next() (string, bool) {
	if t.pos >= len(t.fields) {
		return "", false
	}
	tok := t.fields[t.pos]
	t.pos++
	return tok, true
}

func (t *tokens) nextString() (string, bool) {
	return t.next()
}

func (t *tokens) nextInt() (int, bool) {
	tok, ok := t.next()
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (t *tokens) nextFloat() (float64, bool) {
	tok, ok := t.next()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
