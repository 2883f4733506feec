package stream

import "strings"

// FrameDecoder reassembles blank-line-terminated records from a chunked
// text stream. Chunks may split a record anywhere, including mid-line;
// no record is surfaced until its terminating blank line has arrived.
// One decoder serves exactly one stream.
type FrameDecoder struct {
	buf strings.Builder
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a chunk and returns every record completed by it, in
// order. Whitespace-only records (keep-alive blank lines) are skipped.
// A trailing record whose delimiter never arrives stays buffered and is
// simply never returned.
func (d *FrameDecoder) Feed(chunk string) []string {
	d.buf.WriteString(chunk)

	var records []string
	s := d.buf.String()
	for {
		end, next := recordEnd(s)
		if end < 0 {
			break
		}
		rec := strings.TrimSuffix(s[:end], "\r")
		s = s[next:]
		if strings.TrimSpace(rec) != "" {
			records = append(records, rec)
		}
	}
	d.buf.Reset()
	d.buf.WriteString(s)
	return records
}

// recordEnd finds the first blank-line delimiter: a newline followed by
// another, optionally CR-prefixed, newline. It returns the record end
// offset and the offset where the remainder starts, or (-1, -1).
func recordEnd(s string) (int, int) {
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		if s[i+1] == '\n' {
			return i, i + 2
		}
		if s[i+1] == '\r' && i+2 < len(s) && s[i+2] == '\n' {
			return i, i + 3
		}
	}
	return -1, -1
}
