package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var compressed bytes.Buffer

	w, err := NewWriter(&compressed)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := []byte("id,name\n1,Ada\n2,Linus\n")
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(&compressed)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: got %q, want %q", got, payload)
	}
}

func TestDecompressTo(t *testing.T) {
	var compressed bytes.Buffer
	w, err := NewWriter(&compressed)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := []byte("a,b\n1,2\n")
	w.Write(payload)
	w.Close()

	var out bytes.Buffer
	if err := DecompressTo(&compressed, &out); err != nil {
		t.Fatalf("DecompressTo: %v", err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("DecompressTo mismatch: got %q, want %q", out.Bytes(), payload)
	}
}
