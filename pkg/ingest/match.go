// Package ingest turns raw, timestamped log lines into the typed
// cep.Event values the tree engine consumes: a Rule names the event type
// a line must be tagged with if a MatchFunc accepts it, and a Classifier
// runs every rule against each line in turn.
//
// Grounded on pkg/match/match.go's term-matcher family in the teacher
// repo, minus the flat state-machine shell that used to consume it.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
	"github.com/rs/zerolog/log"
)

// ErrEmptyTerm is returned by NewMatchFunc for the empty string.
var ErrEmptyTerm = errors.New("empty term")

// MatchFunc reports whether a raw log line satisfies a placeholder's
// matching criterion.
type MatchFunc func(line string) bool

// NewMatchFunc compiles term into a MatchFunc. term is interpreted as:
// a jq query over decoded JSON ("jq_json:<query>") or YAML
// ("jq_yaml:<query>"), a regular expression (anything containing a
// regex metacharacter), or else a plain substring match.
func NewMatchFunc(term string) (m MatchFunc, err error) {
	switch {
	case term == "":
		err = ErrEmptyTerm
	case strings.HasPrefix(term, "jq_"):
		if m, err = makeJqMatch(term); err != nil {
			err = fmt.Errorf("fail jq compile %q: %w", term, err)
		}
	case isRegex(term):
		if m, err = makeRegexMatch(term); err != nil {
			err = fmt.Errorf("fail regex compile %q: %w", term, err)
		}
	default:
		m = makeRawMatch(term)
	}
	return
}

func isRegex(v string) bool {
	return regexp.QuoteMeta(v) != v
}

func makeRawMatch(s string) MatchFunc {
	return func(line string) bool { return strings.Contains(line, s) }
}

func makeRegexMatch(term string) (MatchFunc, error) {
	exp, err := regexp.Compile(term)
	if err != nil {
		return nil, err
	}
	return func(line string) bool { return exp.MatchString(line) }, nil
}

type unmarshalFuncT func(string) (any, error)

// memoizedUnmarshal avoids re-decoding the same line once per jq rule
// when several placeholders' conditions run against it.
func memoizedUnmarshal(decode func([]byte, any) error) unmarshalFuncT {
	var (
		lastLine  string
		lastValue any
		lastErr   error
		primed    bool
	)
	return func(line string) (any, error) {
		if primed && line == lastLine {
			return lastValue, lastErr
		}
		primed = true
		lastLine = line
		lastErr = decode([]byte(line), &lastValue)
		return lastValue, lastErr
	}
}

func makeJsonUnmarshal() unmarshalFuncT { return memoizedUnmarshal(json.Unmarshal) }
func makeYamlUnmarshal() unmarshalFuncT { return memoizedUnmarshal(yaml.Unmarshal) }

func makeJqMatch(term string) (MatchFunc, error) {
	var unmarshal unmarshalFuncT
	switch {
	case strings.HasPrefix(term, "jq_json:"):
		unmarshal = makeJsonUnmarshal()
	case strings.HasPrefix(term, "jq_yaml:"):
		unmarshal = makeYamlUnmarshal()
	default:
		return nil, errors.New("unknown jq format")
	}
	term = term[8:]

	query, err := gojq.Parse(term)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	return jqMatchFunc(term, code, unmarshal), nil
}

func jqMatchFunc(term string, code *gojq.Code, unmarshal unmarshalFuncT) MatchFunc {
	return func(line string) (match bool) {
		v, err := unmarshal(line)
		if err != nil {
			log.Debug().Err(err).Str("line", line).Msg("ingest: fail parse payload for jq match")
			return false
		}
		iter := code.Run(v)
		for {
			res, ok := iter.Next()
			if !ok {
				break
			}
			if err, ok := res.(error); ok {
				if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
					break
				}
				log.Debug().Err(err).Str("line", line).Str("term", term).Msg("ingest: jq query failed")
				return false
			}
			if res == nil {
				continue
			}
			if b, ok := res.(bool); ok {
				if b {
					match = true
				}
				continue
			}
			match = true
		}
		return
	}
}
