package storage

import (
	"errors"
	"testing"
)

func TestDecode_RoundTrip(t *testing.T) {
	const text = "# Título\n\n> @project YYC³\n"
	for _, enc := range []Encoding{UTF8, UTF8BOM, UTF16LE, UTF16BE} {
		raw, err := Encode(text, enc)
		if err != nil {
			t.Fatalf("Encode(%s): %v", enc, err)
		}
		got, gotEnc, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s): %v", enc, err)
		}
		if got != text {
			t.Errorf("%s: text = %q, want %q", enc, got, text)
		}
		if gotEnc != enc {
			t.Errorf("encoding = %s, want %s", gotEnc, enc)
		}
	}
}

func TestDecode_BOMStripped(t *testing.T) {
	got, enc, err := Decode([]byte("\xEF\xBB\xBF# T\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "# T\n" || enc != UTF8BOM {
		t.Errorf("got %q (%s)", got, enc)
	}
}

func TestDecode_RejectsBinary(t *testing.T) {
	cases := [][]byte{
		{0x80, 0x81, 0x82},
		[]byte("text\x00with nul"),
		{0xFF, 0xFE, 0x41},
	}
	for _, raw := range cases {
		if _, _, err := Decode(raw); !errors.Is(err, ErrNotText) {
			t.Errorf("Decode(%q) err = %v, want ErrNotText", raw, err)
		}
	}
}

func TestEncode_UnknownEncoding(t *testing.T) {
	if _, err := Encode("x", Encoding("latin-1")); err == nil {
		t.Error("expected error for unknown encoding")
	}
}
