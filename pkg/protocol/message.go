// Package protocol speaks the hub's colon-framed text protocol:
//
//	TO:VERB:NOUN[:ARG...]:FROM
//
// Frames are single-line; every field is a token of letters, digits, '_',
// '.' or '-'. TO may also be ALL or a two-digit hex node id.
package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Broadcast addresses every shard on the hub.
const Broadcast = "ALL"

type Message struct {
	To   string
	Verb string
	Noun string
	Args []string
	From string
}

var (
	tokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	hexIDRe = regexp.MustCompile(`^[0-9A-F]{2}$`)
)

func isToken(s string) bool { return tokenRe.MatchString(s) }

func isHexID(s string) bool { return hexIDRe.MatchString(strings.ToUpper(s)) }

// Token upper-cases s and replaces anything outside the token alphabet with
// '_', so free text can travel as a NOUN or ARG.
func Token(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "NONE"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Parse decodes one frame. VERB and NOUN are upper-cased.
func Parse(line string) (*Message, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return nil, errors.New("empty message")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return nil, fmt.Errorf("invalid whitespace present")
	}

	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return nil, fmt.Errorf("too few fields: got %d, want >= 4", len(parts))
	}

	m := &Message{
		To:   parts[0],
		Verb: strings.ToUpper(parts[1]),
		Noun: strings.ToUpper(parts[2]),
		Args: append([]string(nil), parts[3:len(parts)-1]...),
		From: parts[len(parts)-1],
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every field against the token rules.
func (m *Message) Validate() error {
	if !isToken(m.To) && !isHexID(m.To) && m.To != Broadcast {
		return fmt.Errorf("invalid TO token: %q", m.To)
	}
	if !isToken(m.From) && !isHexID(m.From) {
		return fmt.Errorf("invalid FROM token: %q", m.From)
	}
	if !isToken(m.Noun) || !isToken(m.Verb) {
		return fmt.Errorf("invalid NOUN/VERB: %q %q", m.Noun, m.Verb)
	}
	for i, a := range m.Args {
		if !isToken(a) {
			return fmt.Errorf("invalid ARG[%d]: %q", i, a)
		}
	}
	return nil
}

func (m *Message) String() string {
	parts := make([]string, 0, 4+len(m.Args))
	parts = append(parts, m.To, m.Verb, m.Noun)
	parts = append(parts, m.Args...)
	parts = append(parts, m.From)
	return strings.Join(parts, ":")
}

// Reply builds the answer to m, addressed back to its sender.
func (m *Message) Reply(from, verb, noun string, args ...string) *Message {
	return &Message{To: m.From, Verb: verb, Noun: noun, Args: args, From: from}
}

// Ok builds an OK reply.
func (m *Message) Ok(from, noun string, args ...string) *Message {
	return m.Reply(from, "OK", noun, args...)
}

// Error builds an ERR reply carrying reason as NOUN.
func (m *Message) Error(from, reason string, args ...string) *Message {
	return m.Reply(from, "ERR", Token(reason), args...)
}
