package program

import (
	"fmt"

	"fordefi.com/solhost/instruction"
	"fordefi.com/solhost/pubkey"
)

// Compute cost of one log emission: a flat syscall charge plus one unit per
// payload byte.
const (
	logBaseCost     = 100
	logPerByteCost  = 1
	DefaultLogLimit = 10 * 1024
)

// Context is the per-invocation view a handler receives.
//
// It carries the invoked program's identity, the (already validated) account
// list, a log sink, and the compute meter. A Context never outlives its
// invocation.
type Context struct {
	programID pubkey.Pubkey
	accounts  []instruction.AccountMeta
	logs      *LogBuffer
	meter     *Meter
}

// NewContext assembles an invocation context. The runtime is the only
// expected caller; tests may construct contexts directly.
func NewContext(programID pubkey.Pubkey, accounts []instruction.AccountMeta, meter *Meter, logLimit int) *Context {
	if logLimit <= 0 {
		logLimit = DefaultLogLimit
	}
	return &Context{
		programID: programID,
		accounts:  append([]instruction.AccountMeta(nil), accounts...),
		logs:      NewLogBuffer(logLimit),
		meter:     meter,
	}
}

// ProgramID returns the identity of the program being invoked.
func (c *Context) ProgramID() pubkey.Pubkey { return c.programID }

// Accounts returns the validated account list for this invocation.
func (c *Context) Accounts() []instruction.AccountMeta {
	return append([]instruction.AccountMeta(nil), c.accounts...)
}

// Log emits one log record verbatim, charging compute for the emission.
func (c *Context) Log(msg string) error {
	if c.meter != nil {
		if err := c.meter.Consume(logBaseCost + logPerByteCost*uint64(len(msg))); err != nil {
			return err
		}
	}
	c.logs.Append(msg)
	return nil
}

// Logf formats and emits one log record.
func (c *Context) Logf(format string, args ...interface{}) error {
	return c.Log(fmt.Sprintf(format, args...))
}

// Logs returns the records emitted so far.
func (c *Context) Logs() []string { return c.logs.Lines() }

// LogsTruncated reports whether the buffer dropped records.
func (c *Context) LogsTruncated() bool { return c.logs.Truncated() }

// Meter returns the invocation's compute meter (nil when unmetered).
func (c *Context) Meter() *Meter { return c.meter }
