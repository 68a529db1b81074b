package workflow

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens in collaborator prompts and responses for
// the run's resource metrics.
type TokenCounter interface {
	Count(text string) int
}

const defaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a tiktoken encoding, initialized
// lazily on first use (the encoding data may be downloaded). When the
// encoding cannot be initialized it falls back to a character-based
// estimate rather than failing the run.
type TiktokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// NewTiktokenCounter creates a counter for the given encoding name.
// An empty name selects cl100k_base.
func NewTiktokenCounter(encoding string) *TiktokenCounter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	return &TiktokenCounter{encoding: encoding}
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = err
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// Count returns the token count of text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if err := c.init(); err != nil {
		return estimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// estimateTokens approximates ~4 characters per token, minimum one
// token for non-empty text.
func estimateTokens(text string) int {
	n := len([]rune(text)) / 4
	if n < 1 {
		return 1
	}
	return n
}
