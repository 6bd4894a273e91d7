package http1

import (
	"bytes"
	"io"

	"github.com/indigo-web/tandem/http/status"
)

type chunkedParserState uint8

const (
	eChunkLength chunkedParserState = iota
	eChunkExt
	eChunkLengthCR
	eChunkBody
	eChunkBodyDone
	eChunkBodyCRLF
	eChunkTrailer
	eChunkTrailerCRLF
	eChunkTrailerFieldLine
)

// maxChunkLengthDigits keeps the chunk length far from overflowing int64. The actual
// limit is the configured maximal chunk size, anyway.
const maxChunkLengthDigits = 15

type chunkedParser struct {
	// trailer field lines are accumulated in the head buffer of the parser and count
	// towards the same limit as the headers do
	p            *Parser
	state        chunkedParserState
	lengthDigits uint8
	chunkLength  int64
}

func newChunkedParser(p *Parser) chunkedParser {
	return chunkedParser{p: p, state: eChunkLength}
}

func (c *chunkedParser) reset() {
	c.state = eChunkLength
	c.lengthDigits = 0
	c.chunkLength = 0
}

// Parse returns a chunk when it's ready, nil otherwise. The returned extra is nil if all
// the data was consumed. io.EOF signals that the body is complete, including trailers.
// The parser resets automatically.
func (c *chunkedParser) Parse(data []byte) (chunk, extra []byte, err error) {
	switch c.state {
	case eChunkLength:
		goto chunkLength
	case eChunkExt:
		goto chunkExt
	case eChunkLengthCR:
		goto chunkLengthCR
	case eChunkBody:
		goto chunkBody
	case eChunkBodyDone:
		goto chunkBodyDone
	case eChunkBodyCRLF:
		goto chunkBodyCRLF
	case eChunkTrailer:
		goto trailer
	case eChunkTrailerCRLF:
		goto chunkTrailerCRLF
	case eChunkTrailerFieldLine:
		goto chunkTrailerFieldLine
	default:
		panic("unreachable code")
	}

chunkLength:
	for i := 0; i < len(data); i++ {
		switch char := data[i]; char {
		case '\r', '\n', ';':
			if c.lengthDigits == 0 {
				return nil, nil, status.ErrBadChunk
			}

			switch char {
			case '\r':
				data = data[i+1:]
			case '\n':
				data = data[i:]
			case ';':
				data = data[i+1:]
				goto chunkExt
			}

			goto chunkLengthCR
		default:
			val := unhex(char)
			if val == 0xFF {
				return nil, nil, status.ErrBadChunk
			}

			if c.lengthDigits++; c.lengthDigits > maxChunkLengthDigits {
				return nil, nil, status.ErrBadChunk
			}

			c.chunkLength = (c.chunkLength << 4) | int64(val)
			if c.chunkLength > c.p.cfg.Body.MaxChunkSize {
				return nil, nil, status.ErrChunkTooLarge
			}
		}
	}

	c.state = eChunkLength
	return nil, nil, nil

chunkExt:
	{
		// chunk extensions are skipped entirely
		boundary := bytes.IndexAny(data, "\r\n")
		if boundary == -1 {
			c.state = eChunkExt
			return nil, nil, nil
		}

		terminator := data[boundary]
		data = data[boundary+1:]
		if terminator == '\r' {
			goto chunkLengthCR
		}

		goto chunkLengthDone
	}

chunkLengthCR:
	if len(data) == 0 {
		c.state = eChunkLengthCR
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBadChunk
	}

	data = data[1:]
	// fallthrough to chunkLengthDone

chunkLengthDone:
	c.lengthDigits = 0
	if c.chunkLength == 0 {
		goto trailer
	}

	// fallthrough to chunkBody

chunkBody:
	{
		n := min(c.chunkLength, int64(len(data)))
		c.chunkLength -= n
		chunk = data[:n]

		if c.chunkLength == 0 {
			c.state = eChunkBodyDone
		} else {
			c.state = eChunkBody
		}

		return chunk, data[n:], nil
	}

chunkBodyDone:
	// omit len(data) == 0 check, as the parser never feeds empty data.
	switch data[0] {
	case '\r':
		data = data[1:]
		goto chunkBodyCRLF
	case '\n':
		data = data[1:]
		goto chunkLength
	default:
		return nil, nil, status.ErrBadChunk
	}

chunkBodyCRLF:
	if len(data) == 0 {
		c.state = eChunkBodyCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBadChunk
	}

	data = data[1:]
	goto chunkLength

trailer:
	if len(data) == 0 {
		c.state = eChunkTrailer
		return nil, nil, nil
	}

	switch data[0] {
	case '\r':
		data = data[1:]
		goto chunkTrailerCRLF
	case '\n':
		c.reset()
		return nil, data[1:], io.EOF
	default:
		// we've got some field lines
		goto chunkTrailerFieldLine
	}

chunkTrailerCRLF:
	if len(data) == 0 {
		c.state = eChunkTrailerCRLF
		return nil, nil, nil
	}

	if data[0] != '\n' {
		return nil, nil, status.ErrBareCR
	}

	c.reset()
	return nil, data[1:], io.EOF

chunkTrailerFieldLine:
	{
		line, rest, err := c.p.line(data)
		switch {
		case err != nil:
			return nil, nil, err
		case rest == nil:
			c.state = eChunkTrailerFieldLine
			return nil, nil, nil
		}

		if err = c.p.trailer(line); err != nil {
			return nil, nil, err
		}

		data = rest
		goto trailer
	}
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	default:
		return 0xFF
	}
}
