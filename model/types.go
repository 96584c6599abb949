package model

// AccountRef names an account supplied with an invocation.
type AccountRef struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// InvokeRequest asks the host to run one instruction.
//
// Exactly one of Instruction (a name, encoded by the host) or Data (raw
// selector-prefixed instruction bytes) MUST be set.
//
// JSON note: Data and Args are encoded as base64 by encoding/json.
type InvokeRequest struct {
	ProgramID   string       `json:"programId"`
	Instruction string       `json:"instruction,omitempty"`
	Args        []byte       `json:"args,omitempty"`
	Data        []byte       `json:"data,omitempty"`
	Accounts    []AccountRef `json:"accounts"`
}

// Receipt is the JSON projection of a successful invocation outcome.
type Receipt struct {
	ProgramID     string   `json:"programId"`
	Instruction   string   `json:"instruction"`
	Logs          []string `json:"logs"`
	UnitsConsumed uint64   `json:"unitsConsumed"`
	LogsTruncated bool     `json:"logsTruncated,omitempty"`
}

type InvokeResponse struct {
	Receipt Receipt `json:"receipt"`
}

// ManifestDocument carries canonical manifest bytes plus the bound CID.
type ManifestDocument struct {
	Bytes []byte `json:"bytes"`
	CID   string `json:"cid"`
}

// ProgramInfo describes one deployed program.
type ProgramInfo struct {
	ProgramID    string   `json:"programId"`
	Instructions []string `json:"instructions"`
}

type ListProgramsResponse struct {
	Programs []ProgramInfo `json:"programs"`
}
