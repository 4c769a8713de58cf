package ingest

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/prequel-dev/prequel-cep/pkg/entry"
)

// Rule binds one pattern placeholder's event type to the criterion that
// decides whether a raw log line counts as an occurrence of it.
type Rule struct {
	EventType string
	Match     MatchFunc
}

// Classifier tags every line a stream produces with the event type(s)
// whose rule it satisfies, decoding a shared JSON payload once per line
// regardless of how many rules match it.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a Classifier from rules in the order a pattern's
// placeholders were declared. A line may satisfy more than one rule —
// each produces its own Event, since the same occurrence can fill more
// than one placeholder across different patterns.
func NewClassifier(rules ...Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify runs every rule against e.Line and returns one entry.Event per
// match, in rule order. arrivalIndex is the caller's monotonic event
// counter, stamped onto every produced Event unchanged (spec.md §3:
// ArrivalIndex breaks timestamp ties in encounter order).
func (c *Classifier) Classify(e entry.LogEntry, arrivalIndex int64) []entry.Event {
	var (
		out     []entry.Event
		payload map[string]any
		decoded bool
	)
	for _, r := range c.rules {
		if !r.Match(e.Line) {
			continue
		}
		if !decoded {
			payload = decodePayload(e.Line)
			decoded = true
		}
		out = append(out, entry.Event{
			EventType:    r.EventType,
			Timestamp:    e.Timestamp,
			Payload:      payload,
			Line:         e.Line,
			ArrivalIndex: arrivalIndex,
		})
	}
	return out
}

// decodePayload best-effort decodes line as a JSON object for predicate
// binding. A line that isn't a JSON object yields a nil Payload, not a
// decode error. The placeholder is still bound (to the nil map), so no
// UnboundNameError is raised for it; a predicate reading one of its
// fields gets whatever its GetAttr returns for a nil map.
func decodePayload(line string) map[string]any {
	var v map[string]any
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		log.Trace().Err(err).Str("line", line).Msg("ingest: line is not a JSON object, payload left empty")
		return nil
	}
	return v
}
