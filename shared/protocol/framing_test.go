package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		bodyLen int
	}{
		{"zero", 0},
		{"small", 42},
		{"large", 8096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, err := EncodeHeader(tt.bodyLen)
			if err != nil {
				t.Fatalf("EncodeHeader: %v", err)
			}
			if len(header) != TCPHeaderSize {
				t.Fatalf("len(header) = %d, want %d", len(header), TCPHeaderSize)
			}
			got, err := DecodeHeader(header)
			if err != nil {
				t.Fatalf("DecodeHeader: %v", err)
			}
			if got != tt.bodyLen {
				t.Fatalf("DecodeHeader = %d, want %d", got, tt.bodyLen)
			}
		})
	}
}

func TestEncodeHeaderLiteralLayout(t *testing.T) {
	header, err := EncodeHeader(42)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	want := []byte("0000000000000042") // 16 bytes, right-aligned
	if !bytes.Equal(header, want) {
		t.Fatalf("header = %q, want %q", header, want)
	}
}

func TestDecodeHeaderNonNumeric(t *testing.T) {
	_, err := DecodeHeader([]byte("not-a-number-001"))
	if !IsFramingError(err) {
		t.Fatalf("err = %v, want framing error", err)
	}
}

func TestDecodeHeaderWrongSize(t *testing.T) {
	_, err := DecodeHeader([]byte("123"))
	if !IsFramingError(err) {
		t.Fatalf("err = %v, want framing error", err)
	}
}

func TestEncodeFrame(t *testing.T) {
	body := []byte{1, 2, 3}
	frame, err := EncodeFrame(body)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(frame) != TCPHeaderSize+len(body) {
		t.Fatalf("len(frame) = %d, want %d", len(frame), TCPHeaderSize+len(body))
	}
	gotLen, err := DecodeHeader(frame[:TCPHeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if gotLen != len(body) {
		t.Fatalf("decoded body length = %d, want %d", gotLen, len(body))
	}
	if !bytes.Equal(frame[TCPHeaderSize:], body) {
		t.Fatalf("frame body = %v, want %v", frame[TCPHeaderSize:], body)
	}
}
