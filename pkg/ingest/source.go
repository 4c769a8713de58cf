package ingest

import (
	"io"

	"github.com/prequel-dev/prequel-cep/pkg/entry"
	"github.com/prequel-dev/prequel-cep/pkg/format"
	"github.com/prequel-dev/prequel-cep/pkg/scanner"
)

// ReadSeeker is the minimum a log source must support for ReadFile: an
// io.Reader plus the ability to rewind to the start once the first line
// has been consumed for format detection. *os.File satisfies it, as does
// bytes.Reader/strings.Reader for tests.
type ReadSeeker interface {
	io.Reader
	io.Seeker
}

// ReadFile auto-detects rs's on-disk log format from its first line
// (pkg/format.Detect), rewinds to the start, and scans the whole stream
// forward (pkg/scanner.ScanForward), classifying every produced LogEntry
// against c's rules and handing every resulting Event to sink in
// encounter order. This is the on-disk counterpart to feeding synthetic
// events straight into a cep.Engine: it is the path a file-tailing or
// one-shot-file-replay caller drives in front of the tree engine.
//
// arrivalIndex starts at 0 and increments once per scanned line,
// regardless of how many rules that line satisfies, matching
// Classify's own per-line counter semantics (spec.md §3's ArrivalIndex
// tie-break).
//
// sink returning a non-nil error stops the scan and that error is
// returned from ReadFile; a scan/parse error from the underlying format
// (a line that doesn't parse under the detected format) is tolerated the
// same way pkg/scanner already tolerates it for a bare ScanForward call —
// logged and skipped, never fatal to the whole file.
func (c *Classifier) ReadFile(rs ReadSeeker, sink func(entry.Event) error, opts ...scanner.ScanOptT) error {
	factory, _, err := format.Detect(rs)
	if err != nil {
		return err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var (
		parser       = factory.New()
		arrivalIndex int64
		sinkErr      error
	)

	scanF := func(le entry.LogEntry) (stop bool) {
		events := c.Classify(le, arrivalIndex)
		arrivalIndex++
		for _, ev := range events {
			if sinkErr = sink(ev); sinkErr != nil {
				return true
			}
		}
		return false
	}

	if err := scanner.ScanForward(rs, parser.ReadEntry, scanF, opts...); err != nil {
		return err
	}
	return sinkErr
}
