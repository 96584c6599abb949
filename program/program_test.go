package program

import (
	"errors"
	"strings"
	"testing"

	"fordefi.com/solhost/pubkey"
)

func TestContextLogChargesMeter(t *testing.T) {
	id := pubkey.MustFromBase58("9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa")
	meter := NewMeter(1000)
	ctx := NewContext(id, nil, meter, 0)

	if err := ctx.Log("hello"); err != nil {
		t.Fatalf("Log: %v", err)
	}
	want := uint64(logBaseCost + 5*logPerByteCost)
	if meter.Used() != want {
		t.Fatalf("Used: got %d want %d", meter.Used(), want)
	}
	lines := ctx.Logs()
	if len(lines) != 1 || lines[0] != "hello" {
		t.Fatalf("Logs: got %v", lines)
	}
}

func TestContextLogExhaustsBudget(t *testing.T) {
	id := pubkey.MustFromBase58("9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa")
	meter := NewMeter(logBaseCost + 1)
	ctx := NewContext(id, nil, meter, 0)

	if err := ctx.Log("x"); err != nil {
		t.Fatalf("first Log: %v", err)
	}
	err := ctx.Log("y")
	if !errors.Is(err, ErrComputeExhausted) {
		t.Fatalf("second Log: got %v want ErrComputeExhausted", err)
	}
	if len(ctx.Logs()) != 1 {
		t.Fatalf("rejected log must not be recorded")
	}
	if meter.Remaining() != 0 {
		t.Fatalf("Remaining after exhaustion: got %d want 0", meter.Remaining())
	}
}

func TestMeterUnbounded(t *testing.T) {
	m := NewMeter(0)
	if err := m.Consume(1 << 40); err != nil {
		t.Fatalf("unmetered Consume: %v", err)
	}
	if m.Remaining() != 0 {
		t.Fatalf("unmetered Remaining: got %d want 0", m.Remaining())
	}
}

func TestLogBufferTruncation(t *testing.T) {
	b := NewLogBuffer(10)
	b.Append("12345")
	b.Append("67890")
	b.Append("overflow")
	if b.Truncated() == false {
		t.Fatalf("expected truncation")
	}
	lines := b.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines: got %d want 2", len(lines))
	}
	// Once truncated, the buffer stays truncated even for small records.
	b.Append("x")
	if len(b.Lines()) != 2 {
		t.Fatalf("truncated buffer must not accept records")
	}
}

func TestContextAccountsCopied(t *testing.T) {
	id := pubkey.MustFromBase58("9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa")
	ctx := NewContext(id, nil, NewMeter(0), 0)
	if got := ctx.Accounts(); len(got) != 0 {
		t.Fatalf("Accounts: got %d want 0", len(got))
	}
	if err := ctx.Logf("id=%s", ctx.ProgramID()); err != nil {
		t.Fatalf("Logf: %v", err)
	}
	if !strings.Contains(ctx.Logs()[0], id.String()) {
		t.Fatalf("Logf output missing identity")
	}
}
