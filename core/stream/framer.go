package stream

import "strings"

const dataField = "data:"

// Framer reassembles server-sent event records from arbitrarily split text
// chunks.
//
// A record is every `data:` fragment seen since the previous blank line,
// concatenated without separators. Chunk boundaries carry no meaning: a
// record may span many chunks and one chunk may hold many records.
type Framer struct {
	// carry holds the unterminated tail of the last chunk.
	carry string
	// data holds fragments of the record being assembled.
	data    strings.Builder
	hasData bool
}

func NewFramer() *Framer {
	return &Framer{}
}

// Push feeds the next chunk and returns the payloads of all records it
// completed, in order.
func (f *Framer) Push(chunk string) []string {
	if chunk == "" {
		return nil
	}

	buffered := f.carry + chunk

	var records []string
	for {
		newline := strings.IndexByte(buffered, '\n')
		if newline < 0 {
			break
		}

		line := strings.TrimSuffix(buffered[:newline], "\r")
		buffered = buffered[newline+1:]

		if record, ok := f.line(line); ok {
			records = append(records, record)
		}
	}

	f.carry = buffered
	return records
}

// line processes one complete line and reports a finished record payload.
func (f *Framer) line(line string) (string, bool) {
	if line == "" {
		if !f.hasData {
			return "", false
		}
		record := f.data.String()
		f.data.Reset()
		f.hasData = false
		return record, true
	}

	// Comments and other SSE fields (event:, id:, retry:) carry nothing the
	// chat protocol uses.
	fragment, ok := strings.CutPrefix(line, dataField)
	if !ok {
		return "", false
	}
	fragment = strings.TrimPrefix(fragment, " ")

	f.data.WriteString(fragment)
	f.hasData = true
	return "", false
}

// Close ends the stream. Anything not terminated by a blank line is
// incomplete by definition and dropped; the return value reports whether
// something was.
func (f *Framer) Close() (dropped bool) {
	dropped = f.hasData || f.carry != ""
	f.carry = ""
	f.data.Reset()
	f.hasData = false
	return dropped
}
