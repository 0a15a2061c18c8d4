package har

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func TestParseNormalHAR(t *testing.T) {
	exchanges, err := Parse(filepath.Join("..", "..", "testdata", "sample.har"))
	if err != nil {
		t.Fatal(err)
	}
	if len(exchanges) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(exchanges))
	}
	if exchanges[0].Seq != 1 || exchanges[2].Seq != 3 {
		t.Fatalf("seq not assigned in original order")
	}
	if exchanges[0].RequestHeaders["x-dup"] != "second" {
		t.Fatalf("expected last value to win on duplicate headers, got %q", exchanges[0].RequestHeaders["x-dup"])
	}
	if exchanges[0].SetCookie != "route=abc; Path=/" {
		t.Fatalf("set-cookie not surfaced: %q", exchanges[0].SetCookie)
	}
	if len(exchanges[1].PostParams) != 2 || exchanges[1].PostParams[0].Name != "SAMLRequest" {
		t.Fatalf("post params not preserved in order: %+v", exchanges[1].PostParams)
	}
	if exchanges[0].Time == nil || *exchanges[0].Time != 12.5 {
		t.Fatalf("capture time not preserved")
	}
	if exchanges[2].Time != nil {
		t.Fatalf("absent capture time must stay unset, got %v", *exchanges[2].Time)
	}
}

func TestParseDeterministic(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "sample.har")
	first, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("loading the same archive twice produced different sequences")
	}
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse(filepath.Join("..", "..", "testdata", "malformed.har"))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestParseMissingEntries(t *testing.T) {
	_, err := Parse(filepath.Join("..", "..", "testdata", "missing-entries.har"))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive for missing log.entries, got %v", err)
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join("..", "..", "testdata", "not-exist.har"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
