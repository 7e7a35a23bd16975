package extraction

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RawRecord is one line of the extraction job's output: the key correlating
// back to the originating file and the raw text payload. The payload is not
// parsed here; recovering invoice JSON out of it is the recovery parser's
// job. Err is set when the line could not be interpreted or when the service
// reported an error for that file.
type RawRecord struct {
	Key  string
	Text string
	Err  error
}

// resultLine models the outer shape of one output line. The format is the
// extraction service's fixed contract.
type resultLine struct {
	Key      string `json:"key"`
	Response *struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Text string `json:"text"`
	} `json:"response"`
	Error json.RawMessage `json:"error"`
}

// ResultScanner streams a newline-delimited result blob into RawRecords.
// It is single-pass and never loads the whole blob in memory. A line that
// fails outer JSON parsing is surfaced as a RawRecord with Err set rather
// than aborting the scan: one bad line must not fail the batch.
type ResultScanner struct {
	sc  *bufio.Scanner
	rec RawRecord
}

// NewResultScanner creates a scanner over the service output stream.
func NewResultScanner(r io.Reader) *ResultScanner {
	sc := bufio.NewScanner(r)
	// Result lines carry whole model responses; the default 64KB token
	// limit is too small.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ResultScanner{sc: sc}
}

// Scan advances to the next non-blank line. It returns false when the
// stream is exhausted or unreadable.
func (s *ResultScanner) Scan() bool {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		s.rec = decodeLine(line)
		return true
	}
	return false
}

// Record returns the record produced by the last successful Scan.
func (s *ResultScanner) Record() RawRecord {
	return s.rec
}

// Err returns the first error encountered reading the underlying stream.
func (s *ResultScanner) Err() error {
	return s.sc.Err()
}

func decodeLine(line string) RawRecord {
	var rl resultLine
	if err := json.Unmarshal([]byte(line), &rl); err != nil {
		return RawRecord{Err: fmt.Errorf("malformed result line: %w", err)}
	}

	if len(rl.Error) > 0 && string(rl.Error) != "null" {
		return RawRecord{Key: rl.Key, Err: &RecordError{Message: errorMessage(rl.Error)}}
	}

	if rl.Response == nil {
		return RawRecord{Key: rl.Key, Err: fmt.Errorf("malformed result line: no response or error")}
	}

	// Multi-part candidate responses are concatenated; simple responses use
	// the flat text field.
	if len(rl.Response.Candidates) > 0 {
		var b strings.Builder
		for _, part := range rl.Response.Candidates[0].Content.Parts {
			b.WriteString(part.Text)
		}
		return RawRecord{Key: rl.Key, Text: b.String()}
	}
	return RawRecord{Key: rl.Key, Text: rl.Response.Text}
}

// errorMessage extracts a human-readable message from the service's error
// value, which may be a bare string or an object with a message field.
func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
