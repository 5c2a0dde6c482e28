package token

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a tiktoken BPE encoding. Counts are exact for
// models tokenized with the chosen encoding and a close proxy for the rest.
type Tiktoken struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktoken loads the named encoding (DefaultEncoding when empty). Loading
// pulls the BPE ranks, so construction can fail offline — callers may fall
// back to the Estimator.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &Tiktoken{enc: enc, name: encoding}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Encoding returns the encoding name, for health/startup reporting.
func (t *Tiktoken) Encoding() string { return t.name }
