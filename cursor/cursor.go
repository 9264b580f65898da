// Package cursor implements the opaque pagination tokens handed out by the
// thread connection API. A token is base64("<kind>:<id>").
package cursor

import (
	"encoding/base64"
	"strings"

	"github.com/tracelit/tracelit/errors"
)

const (
	KindThread = "Thread"
	KindScore  = "Score"
)

type Token struct {
	Kind string
	ID   string
}

func (t Token) Encode() string {
	return base64.StdEncoding.EncodeToString([]byte(t.Kind + ":" + t.ID))
}

func Encode(kind, id string) string {
	return Token{Kind: kind, ID: id}.Encode()
}

// Decode parses a well-formed token. Malformed base64 or a missing delimiter
// is an error here; callers that must accept bare entity ids use
// DecodeLenient instead.
func Decode(s string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Token{}, errors.Wrapf(errors.ErrInvalidParams, "malformed cursor %q", s)
	}

	kind, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Token{}, errors.Wrapf(errors.ErrInvalidParams, "cursor %q has no kind delimiter", s)
	}

	return Token{Kind: kind, ID: id}, nil
}

// DecodeLenient extracts the entity id from a token, falling back to
// treating the whole input as a bare id when it is not a well-formed token.
// Clients historically sent both forms interchangeably.
func DecodeLenient(s string) string {
	token, err := Decode(s)
	if err != nil {
		return s
	}
	return token.ID
}
