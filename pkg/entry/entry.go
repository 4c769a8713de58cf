package entry

import "github.com/tinylib/msgp/msgp"

//go:generate msgp

// LogEntry is a single line read off a log stream, prior to event
// classification. Produced by pkg/format/pkg/scanner.
type LogEntry struct {
	Line      string  `msg:"l" json:"l"`
	Stream    string  `msg:"s" json:"s"`
	Timestamp int64   `msg:"t" json:"t"`
	Matches   [][]int `msg:"m,omitempty" json:"m,omitempty"`
}

// Uses msgpack size as an estimate;  not exactly right.
// Cannot use e.MsgSize() because it doesn't properly account for omitted matches

func (z LogEntry) Size() (s int) {
	// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
	s = 1 + 2 + msgp.StringPrefixSize + len(z.Line) + 2 + msgp.StringPrefixSize + len(z.Stream) + 2 + msgp.Int64Size

	if z.Matches != nil {
		s += 2 + msgp.ArrayHeaderSize
		for za0001 := range z.Matches {
			s += msgp.ArrayHeaderSize + (len(z.Matches[za0001]) * (msgp.IntSize))
		}
	}
	return

	//return e.Msgsize()
}

type LogList []LogEntry

// Event is a single, immutable occurrence on the stream the CEP engine
// consumes. It is produced from a LogEntry by pkg/ingest, which tags the
// line with the placeholder event type(s) it matches and decodes its
// payload.
type Event struct {
	EventType    string         `msg:"y" json:"y"`
	Timestamp    int64          `msg:"t" json:"t"`
	Payload      map[string]any `msg:"-" json:"-"`
	Line         string         `msg:"l" json:"l"`
	ArrivalIndex int64          `msg:"a" json:"a"`
}

// Uses msgpack size as an estimate; payload is not wire-encoded (pkg/ingest
// decodes it from Line at classification time), so it does not contribute
// to Size.
func (z Event) Size() (s int) {
	s = 1 + 2 + msgp.StringPrefixSize + len(z.EventType) + 2 + msgp.StringPrefixSize + len(z.Line) +
		2 + msgp.Int64Size + 2 + msgp.Int64Size
	return
}

type EventList []Event
