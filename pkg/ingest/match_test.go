package ingest

import "testing"

func TestNewMatchFuncEmptyTerm(t *testing.T) {
	if _, err := NewMatchFunc(""); err != ErrEmptyTerm {
		t.Errorf("expected ErrEmptyTerm, got %v", err)
	}
}

func TestNewMatchFuncRawSubstring(t *testing.T) {
	m, err := NewMatchFunc("connection refused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m("2026-01-01 ERROR connection refused by peer") {
		t.Error("expected raw substring match to succeed")
	}
	if m("2026-01-01 INFO all good") {
		t.Error("expected raw substring match to fail on unrelated line")
	}
}

func TestNewMatchFuncRegex(t *testing.T) {
	m, err := NewMatchFunc(`ERROR \d+`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m("got ERROR 500 from upstream") {
		t.Error("expected regex match to succeed")
	}
	if m("got ERROR from upstream") {
		t.Error("expected regex match to fail without a trailing number")
	}
}

func TestNewMatchFuncJqJson(t *testing.T) {
	m, err := NewMatchFunc(`jq_json:.level == "error"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m(`{"level":"error","msg":"boom"}`) {
		t.Error("expected jq_json match to succeed for level=error")
	}
	if m(`{"level":"info","msg":"fine"}`) {
		t.Error("expected jq_json match to fail for level=info")
	}
}

func TestNewMatchFuncJqYaml(t *testing.T) {
	m, err := NewMatchFunc(`jq_yaml:.status == "failed"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m("status: failed\nreason: timeout") {
		t.Error("expected jq_yaml match to succeed for status=failed")
	}
	if m("status: ok\n") {
		t.Error("expected jq_yaml match to fail for status=ok")
	}
}

func TestNewMatchFuncJqUnknownFormat(t *testing.T) {
	_, err := NewMatchFunc("jq_xml:.foo")
	if err == nil {
		t.Error("expected an error for an unrecognized jq_ prefix")
	}
}

func TestNewMatchFuncJqBadLineDoesNotMatch(t *testing.T) {
	m, err := NewMatchFunc(`jq_json:.level == "error"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m("not json at all") {
		t.Error("expected an undecodable line to fail the match rather than error")
	}
}

func TestMemoizedUnmarshalCachesSameLine(t *testing.T) {
	calls := 0
	unmarshal := memoizedUnmarshal(func(data []byte, v any) error {
		calls++
		return jsonUnmarshalStub(data, v)
	})

	if _, err := unmarshal(`{"a":1}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := unmarshal(`{"a":1}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the decode function to run once for a repeated line, ran %d times", calls)
	}

	if _, err := unmarshal(`{"a":2}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a new line to trigger a fresh decode, ran %d times", calls)
	}
}

func jsonUnmarshalStub(data []byte, v any) error {
	m, ok := v.(*any)
	if ok {
		*m = map[string]any{"raw": string(data)}
	}
	return nil
}
