package remote

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestPktLineRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePacket(&buf, []byte("hello\n")); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if buf.String() != "000ahello\n" {
		t.Errorf("framing: %q", buf.String())
	}

	payload, flush, err := ReadPacket(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if flush || string(payload) != "hello\n" {
		t.Errorf("got %q flush=%v", payload, flush)
	}
}

func TestPktLineFlush(t *testing.T) {
	var buf bytes.Buffer
	WritePacket(&buf, []byte("x"))
	WriteFlush(&buf)

	br := bufio.NewReader(&buf)
	if _, flush, err := ReadPacket(br); err != nil || flush {
		t.Fatalf("first packet: flush=%v err=%v", flush, err)
	}
	if _, flush, err := ReadPacket(br); err != nil || !flush {
		t.Fatalf("expected flush, got flush=%v err=%v", flush, err)
	}
	if _, _, err := ReadPacket(br); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestPktLineRejectsBadLength(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("zzzz"))
	if _, _, err := ReadPacket(br); !errors.Is(err, ErrProtocol) {
		t.Errorf("expected ErrProtocol, got %v", err)
	}

	br = bufio.NewReader(strings.NewReader("0003"))
	if _, _, err := ReadPacket(br); !errors.Is(err, ErrProtocol) {
		t.Errorf("length below minimum: got %v", err)
	}

	br = bufio.NewReader(strings.NewReader("00ffshort"))
	if _, _, err := ReadPacket(br); !errors.Is(err, ErrProtocol) {
		t.Errorf("truncated payload: got %v", err)
	}
}

func TestPktLineRejectsOversizedPayload(t *testing.T) {
	if err := WritePacket(io.Discard, make([]byte, pktMaxPayload+1)); err == nil {
		t.Error("expected error for oversized payload")
	}
}

func TestWritePacketf(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePacketf(&buf, "%s %d", "v", 7); err != nil {
		t.Fatalf("WritePacketf: %v", err)
	}
	payload, _, err := ReadPacket(bufio.NewReader(&buf))
	if err != nil || string(payload) != "v 7" {
		t.Errorf("got %q, %v", payload, err)
	}
}
