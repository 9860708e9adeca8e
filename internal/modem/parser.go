package modem

import (
	"bufio"
	"io"
	"strings"
)

// Parser reads the modem daemon byte stream and emits Events.
type Parser struct {
	scanner *bufio.Scanner
}

// NewParser creates a Parser that reads from the given reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{scanner: bufio.NewScanner(r)}
}

// Next reads the next block from the stream. Returns the event and
// true, or a zero Event and false at EOF.
func (p *Parser) Next() (Event, bool) {
	var headers []header

	for p.scanner.Scan() {
		line := strings.TrimRight(p.scanner.Text(), "\r")

		// Blank line terminates a block.
		if line == "" {
			if len(headers) > 0 {
				return Event{headers: headers}, true
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			// Lines without a colon (the greeting banner) are skipped
			// between blocks and kept verbatim inside one.
			if len(headers) == 0 {
				continue
			}
			headers = append(headers, header{Value: line})
			continue
		}
		headers = append(headers, header{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}

	if len(headers) > 0 {
		return Event{headers: headers}, true
	}
	return Event{}, false
}

// ParseAll reads every remaining block from the stream.
func (p *Parser) ParseAll() []Event {
	var events []Event
	for {
		evt, ok := p.Next()
		if !ok {
			break
		}
		events = append(events, evt)
	}
	return events
}

// ParseBytes parses all blocks from a byte slice.
func ParseBytes(data []byte) []Event {
	return NewParser(strings.NewReader(string(data))).ParseAll()
}
