package model

import (
	"encoding/json"
	"testing"
)

func TestSnapshot_InvokeRequest_JSONShape(t *testing.T) {
	req := InvokeRequest{
		ProgramID:   "9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa",
		Instruction: "initialize",
		Accounts:    []AccountRef{},
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"programId":"9Weyw3FD5WuXdXMcMMiCRusTQwNLZaMeWQPBKBpFFjwa","instruction":"initialize","accounts":[]}`
	if string(b) != want {
		t.Fatalf("JSON shape drift:\n got: %s\nwant: %s", b, want)
	}
}

func TestSnapshot_InvokeResponse_JSONShape(t *testing.T) {
	resp := InvokeResponse{Receipt: Receipt{
		ProgramID:     "GQxHpCW7Uv7DS2LxLS9sh7Tkstug27Ho14JiZTFJ3n2H",
		Instruction:   "initialize",
		Logs:          []string{"Greetings from Fordefi! GQxHpCW7Uv7DS2LxLS9sh7Tkstug27Ho14JiZTFJ3n2H"},
		UnitsConsumed: 165,
	}}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"receipt":{"programId":"GQxHpCW7Uv7DS2LxLS9sh7Tkstug27Ho14JiZTFJ3n2H","instruction":"initialize","logs":["Greetings from Fordefi! GQxHpCW7Uv7DS2LxLS9sh7Tkstug27Ho14JiZTFJ3n2H"],"unitsConsumed":165}}`
	if string(b) != want {
		t.Fatalf("JSON shape drift:\n got: %s\nwant: %s", b, want)
	}
}

func TestSnapshot_CodedError_JSONShape(t *testing.T) {
	ce := NewError(ErrAccountMismatch, "instruction \"initialize\" requires exactly 0 accounts, got 1")
	b, err := json.Marshal(ce)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"code":"ACCOUNT_MISMATCH","message":"instruction \"initialize\" requires exactly 0 accounts, got 1"}`
	if string(b) != want {
		t.Fatalf("JSON shape drift:\n got: %s\nwant: %s", b, want)
	}
}
