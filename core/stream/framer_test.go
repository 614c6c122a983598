package stream

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

const sampleStream = "data: {\"type\":\"start\"}\n\n" +
	"data: {\"type\":\"text\",\"text\":\"Hi \"}\n\n" +
	": keepalive\n\n" +
	"data: {\"type\":\"audio\",\n" +
	"data: \"text\":\"Hi there.\",\"audio\":\"SUQzBAAAAAAA\"}\n\n" +
	"data: {\"type\":\"text\",\"text\":\"héllo ✓\"}\r\n\r\n" +
	"data: {\"type\":\"end\"}\n\n"

func pushAll(chunks ...string) []string {
	framer := NewFramer()
	var records []string
	for _, chunk := range chunks {
		records = append(records, framer.Push(chunk)...)
	}
	framer.Close()
	return records
}

func TestFramerAssemblesRecords(t *testing.T) {
	records := pushAll(sampleStream)

	expected := []string{
		`{"type":"start"}`,
		`{"type":"text","text":"Hi "}`,
		`{"type":"audio","text":"Hi there.","audio":"SUQzBAAAAAAA"}`,
		`{"type":"text","text":"héllo ✓"}`,
		`{"type":"end"}`,
	}
	if !slices.Equal(records, expected) {
		t.Fatalf("expected records %q, got %q", expected, records)
	}
}

func TestFramerIsSplitInvariant(t *testing.T) {
	expected := pushAll(sampleStream)

	for i := 0; i <= len(sampleStream); i++ {
		if got := pushAll(sampleStream[:i], sampleStream[i:]); !slices.Equal(got, expected) {
			t.Fatalf("split at %d: expected %q, got %q", i, expected, got)
		}
	}

	bytewise := make([]string, 0, len(sampleStream))
	for i := range len(sampleStream) {
		bytewise = append(bytewise, sampleStream[i:i+1])
	}
	if got := pushAll(bytewise...); !slices.Equal(got, expected) {
		t.Fatalf("byte by byte: expected %q, got %q", expected, got)
	}

	random := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		var chunks []string
		rest := sampleStream
		for rest != "" {
			n := min(1+random.IntN(16), len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		if got := pushAll(chunks...); !slices.Equal(got, expected) {
			t.Fatalf("random split %q: expected %q, got %q", chunks, expected, got)
		}
	}
}

func TestFramerRecordSplitMidLine(t *testing.T) {
	records := pushAll("data: {\"typ", "e\":\"end\"}\n\n")

	if len(records) != 1 || records[0] != `{"type":"end"}` {
		t.Fatalf("expected a single end record, got %q", records)
	}
}

func TestFramerManyRecordsInOneChunk(t *testing.T) {
	framer := NewFramer()
	records := framer.Push("data: a\n\ndata: b\n\ndata: c\n\n")

	if !slices.Equal(records, []string{"a", "b", "c"}) {
		t.Fatalf("expected three records from one chunk, got %q", records)
	}
}

func TestFramerIgnoresBlankLinesWithoutData(t *testing.T) {
	records := pushAll("\n\n\nevent: message\nid: 4\n\n")

	if len(records) != 0 {
		t.Fatalf("expected no records, got %q", records)
	}
}

func TestFramerDropsUnterminatedTail(t *testing.T) {
	framer := NewFramer()
	records := framer.Push("data: {\"type\":\"end\"}\n\ndata: {\"type\":\"start\"}\n")

	if len(records) != 1 {
		t.Fatalf("expected only the terminated record, got %q", records)
	}
	if !framer.Close() {
		t.Fatalf("expected Close to report the dropped tail")
	}
	if framer.Close() {
		t.Fatalf("expected a second Close to have nothing to drop")
	}
}

func TestFramerKeepsPayloadVerbatim(t *testing.T) {
	records := pushAll("data:  two spaces\n\n")

	if want := " two spaces"; len(records) != 1 || records[0] != want {
		t.Fatalf("expected only the first space to be stripped, got %q", strings.Join(records, "|"))
	}
}
