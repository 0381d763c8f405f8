package agent

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	// execution traces can be large, so the line buffer is generous
	maxLineSize = 1024 * 1024
)

// Scanner reads an SSE stream and yields decoded events. Lines that are not
// well-formed SSE, and data payloads that fail to decode, are skipped; the
// stream only fails when the underlying reader does.
type Scanner struct {
	scanner   *bufio.Scanner
	eventName string
}

func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: sc}
}

// Next returns the next decoded event. It returns io.EOF when the stream is
// exhausted, or the reader's error if it failed mid-stream.
func (s *Scanner) Next() (Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case strings.HasPrefix(line, "event:"):
			s.eventName = strings.TrimSpace(line[len("event:"):])

		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(line[len("data:"):])
			if payload == "" {
				continue
			}
			if payload == "[DONE]" {
				return DoneEvent{}, nil
			}

			ev, ok := decodeEvent(s.eventName, []byte(payload))
			if !ok {
				log.Debug().
					Str("event", s.eventName).
					Int("payload_bytes", len(payload)).
					Msg("Skipping undecodable stream event")
				continue
			}
			return ev, nil

		default:
			// comments, blank separators, anything else
			continue
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
