package frontmatter_test

import (
	"errors"
	"testing"

	"vaspsweep/internal/frontmatter"
)

type meta struct {
	Prefix  string   `yaml:"prefix"`
	Bundles []string `yaml:"bundles"`
}

func TestEncodeDecode(t *testing.T) {
	m := meta{Prefix: "run", Bundles: []string{"ENCUT_300.00", "ENCUT_400.00"}}
	body := "# run\n\n- ENCUT_300.00\n"

	data, err := frontmatter.Encode(m, body)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got meta
	rest, err := frontmatter.Decode(data, &got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(rest) != body {
		t.Errorf("body mismatch: got %q want %q", rest, body)
	}
	if got.Prefix != "run" || len(got.Bundles) != 2 {
		t.Errorf("meta mismatch: %+v", got)
	}
}

func TestSplitCRLF(t *testing.T) {
	meta, body, err := frontmatter.Split([]byte("---\r\nprefix: run\r\n---\r\nhello\r\n"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if string(meta) != "prefix: run\n" {
		t.Errorf("meta = %q", meta)
	}
	if string(body) != "hello\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplitEmptyMeta(t *testing.T) {
	meta, body, err := frontmatter.Split([]byte("---\n---\nbody"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(meta) != 0 || string(body) != "body" {
		t.Errorf("got meta %q body %q", meta, body)
	}
}

func TestSplitNoBody(t *testing.T) {
	meta, body, err := frontmatter.Split([]byte("---\nx: 1\n---"))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if string(meta) != "x: 1\n" || len(body) != 0 {
		t.Errorf("got meta %q body %q", meta, body)
	}
}

func TestSplitMissingOpen(t *testing.T) {
	_, _, err := frontmatter.Split([]byte("no delimiter"))
	if !errors.Is(err, frontmatter.ErrNoFrontmatter) {
		t.Fatalf("expected ErrNoFrontmatter, got %v", err)
	}
}

func TestSplitMissingClose(t *testing.T) {
	_, _, err := frontmatter.Split([]byte("---\nprefix: run\n"))
	if err == nil {
		t.Fatal("expected error for missing closing delimiter")
	}
}
