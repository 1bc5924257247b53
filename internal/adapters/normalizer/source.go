// Package normalizer implements source text normalization for the
// comparison engine: comments are stripped and whitespace runs are
// collapsed so that formatting noise does not inflate edit distances.
package normalizer

import (
	"github.com/baditaflorin/go_code_similarity/internal/pool"
	"github.com/baditaflorin/go_code_similarity/internal/ports"
)

// SourceNormalizer strips // and /* */ comments, collapses every
// whitespace run to a single space, and trims the ends. String, char and
// backtick literals are preserved verbatim, including any comment-looking
// content inside them.
type SourceNormalizer struct {
	bytePool *pool.BufferPool
}

// NewSourceNormalizer creates a normalizer with a shared scratch-buffer
// pool so corpus-scale normalization does not allocate per fragment.
func NewSourceNormalizer() ports.Normalizer {
	return &SourceNormalizer{
		bytePool: pool.NewBufferPool(8192),
	}
}

// Lexer states for Normalize.
const (
	stCode = iota
	stLineComment
	stBlockComment
	stString
	stChar
	stRawString
)

// Normalize returns the normalized form of text.
func (n *SourceNormalizer) Normalize(text string) string {
	if len(text) == 0 {
		return ""
	}

	buffer := n.bytePool.Get()
	defer n.bytePool.Put(buffer)
	if cap(*buffer) < len(text) {
		*buffer = make([]byte, 0, len(text))
	}
	out := (*buffer)[:0]

	state := stCode
	lastWasSpace := true // leading whitespace is dropped
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch state {
		case stCode:
			switch {
			case c == '/' && i+1 < len(text) && text[i+1] == '/':
				state = stLineComment
				i++
			case c == '/' && i+1 < len(text) && text[i+1] == '*':
				state = stBlockComment
				i++
			case c == '"':
				state = stString
				out = append(out, c)
				lastWasSpace = false
			case c == '\'':
				state = stChar
				out = append(out, c)
				lastWasSpace = false
			case c == '`':
				state = stRawString
				out = append(out, c)
				lastWasSpace = false
			case isSpace(c):
				if !lastWasSpace {
					out = append(out, ' ')
					lastWasSpace = true
				}
			default:
				out = append(out, c)
				lastWasSpace = false
			}

		case stLineComment:
			if c == '\n' {
				state = stCode
				// The comment swallowed its trailing newline; keep the
				// token boundary it provided.
				if !lastWasSpace {
					out = append(out, ' ')
					lastWasSpace = true
				}
			}

		case stBlockComment:
			if c == '*' && i+1 < len(text) && text[i+1] == '/' {
				state = stCode
				i++
				if !lastWasSpace {
					out = append(out, ' ')
					lastWasSpace = true
				}
			}

		case stString, stChar:
			out = append(out, c)
			lastWasSpace = false
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if (state == stString && c == '"') || (state == stChar && c == '\'') {
				state = stCode
			}

		case stRawString:
			out = append(out, c)
			lastWasSpace = false
			if c == '`' {
				state = stCode
			}
		}
	}

	// Trim a single trailing collapsed space.
	if len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}

	return string(out)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
