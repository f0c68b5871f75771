// Package sse implements an incremental parser for the line-oriented
// Server-Sent-Events stream returned by the upstream completion API.
package sse

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// maxResidualBytes bounds the buffered tail of an unterminated
	// line. No real completion frame comes near this; past it the line
	// is dropped rather than held for the life of the stream.
	maxResidualBytes = 1 << 20
)

// Parser turns successive byte chunks of an SSE stream into
// content-delta tokens. A chunk may contain zero, one, or many
// newline-terminated frames and may end mid-frame: the trailing
// incomplete line is kept as a residual and prepended to the next
// chunk, so a frame split across two reads is never lost or doubled.
type Parser struct {
	residual string
	dropping bool
	logger   zerolog.Logger
}

// NewParser creates a parser. Malformed data lines are logged on the
// given logger and skipped.
func NewParser(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// streamChunk is the subset of the upstream chunk payload the parser
// cares about. Content is a pointer so an absent field (role-only or
// finish chunks) can be told apart from an empty delta.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Feed consumes one byte chunk and returns the content tokens carried
// by every complete frame it finishes. Tokens come out in stream order
// and each is emitted exactly once.
func (p *Parser) Feed(chunk []byte) []string {
	data := p.residual + string(chunk)
	p.residual = ""

	if p.dropping {
		// Discarding the remainder of an over-long line.
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			return nil
		}
		data = data[i+1:]
		p.dropping = false
	}

	lines := strings.Split(data, "\n")
	p.residual = lines[len(lines)-1]
	if len(p.residual) > maxResidualBytes {
		p.logger.Warn().Int("bytes", len(p.residual)).Msg("dropping over-long unterminated stream line")
		p.residual = ""
		p.dropping = true
	}

	var tokens []string
	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == doneSentinel {
			// Stream-end marker, not a token.
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			p.logger.Debug().Err(err).Str("line", line).Msg("skipping malformed stream line")
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != nil {
			tokens = append(tokens, *chunk.Choices[0].Delta.Content)
		}
	}
	return tokens
}
