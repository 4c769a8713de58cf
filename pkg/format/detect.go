package format

import (
	"bufio"
	"errors"
	"io"

	"github.com/prequel-dev/prequel-cep/internal/pkg/pool"
	"github.com/prequel-dev/prequel-cep/pkg/entry"
)

// LogEntry is the raw, pre-classification record every ParserI produces
// from one line of input.
type LogEntry = entry.LogEntry

type FactoryI interface {
	New() ParserI
	String() string
}

type ParserI interface {
	ReadTimestamp(rdr io.Reader) (int64, error)
	ReadEntry(line []byte) (LogEntry, error)
}

type DetectFormatFunc func(line []byte) (FactoryI, int64, error)

var supportedFormats = []DetectFormatFunc{
	detectJSON,
	detectCri,
}

const (
	FactoryJSON       = "json"
	FactoryRegex      = "regex"
	FactoryJSONCustom = "json_custom"
	FactoryCRI        = "cri"
)

const (
	DefBufferSize = 4 << 10 // 4K
	MaxRecordSize = pool.MaxRecordSize
)

func Detect(rdr io.Reader) (FactoryI, int64, error) {

	var (
		elist = []error{ErrFormatDetect}
		lr    = io.LimitReader(rdr, MaxRecordSize)
		bio   = bufio.NewReaderSize(lr, DefBufferSize)
	)

	line, err := bio.ReadBytes('\n')
	if err != nil {
		return nil, -1, err
	}

	for _, try := range supportedFormats {
		fmt, ts, err := try(line)
		if err == nil {
			return fmt, ts, err
		}
		elist = append(elist, err)
	}

	return nil, -1, errors.Join(elist...)
}
