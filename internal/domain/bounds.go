package domain

import "fmt"

const (
	// MaxMemoryBytes is the absolute ceiling any single MemoryBytes value
	// may take, independent of any configured per-agent cap.
	MaxMemoryBytes uint64 = 1 << 30 // 1 GiB

	// MaxCPUFuel is the absolute ceiling any CPUFuel value may take.
	MaxCPUFuel uint64 = 1_000_000_000

	// MaxMessageSize is the absolute ceiling message content may take.
	MaxMessageSize int = 10 << 20 // 10 MiB

	// MinAgentNameLen and MaxAgentNameLen bound LocalAgent.Name.
	MinAgentNameLen = 1
	MaxAgentNameLen = 255

	// MinMaxAgents and MaxMaxAgents bound the MaxAgents configuration value.
	MinMaxAgents = 1
	MaxMaxAgents = 10_000

	// MinMaxImportFunctions and MaxMaxImportFunctions bound MaxImportFunctions.
	MinMaxImportFunctions = 1
	MaxMaxImportFunctions = 1_000

	// DefaultMaxAgents is the default MaxAgents preset value.
	DefaultMaxAgents = 1_000

	// DefaultMaxImportFunctions is the default MaxImportFunctions preset value.
	DefaultMaxImportFunctions = 10
)

// MemoryBytes is a validated byte quantity, never exceeding MaxMemoryBytes.
type MemoryBytes struct{ n uint64 }

// NewMemoryBytes validates n against MaxMemoryBytes.
func NewMemoryBytes(n uint64) (MemoryBytes, error) {
	if n > MaxMemoryBytes {
		return MemoryBytes{}, fmt.Errorf("domain: memory bytes %d exceeds cap %d", n, MaxMemoryBytes)
	}
	return MemoryBytes{n: n}, nil
}

// MemoryBytesFromMB validates a megabyte quantity and converts to bytes.
func MemoryBytesFromMB(mb uint64) (MemoryBytes, error) {
	return NewMemoryBytes(mb * (1 << 20))
}

func (m MemoryBytes) Bytes() uint64 { return m.n }

// CPUFuel is a validated fuel quantity, never exceeding MaxCPUFuel.
type CPUFuel struct{ n uint64 }

func NewCPUFuel(n uint64) (CPUFuel, error) {
	if n > MaxCPUFuel {
		return CPUFuel{}, fmt.Errorf("domain: cpu fuel %d exceeds cap %d", n, MaxCPUFuel)
	}
	return CPUFuel{n: n}, nil
}

func (f CPUFuel) Value() uint64 { return f.n }

// SaturatingAdd adds other to f, clamping at MaxCPUFuel rather than
// overflowing or erroring.
func (f CPUFuel) SaturatingAdd(other CPUFuel) CPUFuel {
	sum := f.n + other.n
	if sum > MaxCPUFuel || sum < f.n {
		return CPUFuel{n: MaxCPUFuel}
	}
	return CPUFuel{n: sum}
}

// MessageSize is a validated content-length quantity, 1..=MaxMessageSize.
type MessageSize struct{ n int }

func NewMessageSize(n int) (MessageSize, error) {
	if n <= 0 {
		return MessageSize{}, fmt.Errorf("domain: message content must not be empty")
	}
	if n > MaxMessageSize {
		return MessageSize{}, fmt.Errorf("domain: message size %d exceeds cap %d", n, MaxMessageSize)
	}
	return MessageSize{n: n}, nil
}

func (s MessageSize) Bytes() int { return s.n }

// AgentName is a validated agent display name, 1..=255 bytes.
type AgentName struct{ s string }

func NewAgentName(s string) (AgentName, error) {
	if len(s) < MinAgentNameLen || len(s) > MaxAgentNameLen {
		return AgentName{}, fmt.Errorf("domain: agent name length %d out of range [%d,%d]", len(s), MinAgentNameLen, MaxAgentNameLen)
	}
	return AgentName{s: s}, nil
}

func (n AgentName) String() string { return n.s }

// CapabilityName names a competence an agent advertises.
type CapabilityName struct{ s string }

func NewCapabilityName(s string) (CapabilityName, error) {
	if s == "" {
		return CapabilityName{}, fmt.Errorf("domain: capability name must not be empty")
	}
	return CapabilityName{s: s}, nil
}

func (c CapabilityName) String() string { return c.s }

// MaxAgents bounds how many agents a registry instance may hold.
type MaxAgents struct{ n int }

func NewMaxAgents(n int) (MaxAgents, error) {
	if n < MinMaxAgents || n > MaxMaxAgents {
		return MaxAgents{}, fmt.Errorf("domain: max agents %d out of range [%d,%d]", n, MinMaxAgents, MaxMaxAgents)
	}
	return MaxAgents{n: n}, nil
}

func (m MaxAgents) Value() int { return m.n }

// MaxImportFunctions bounds how many host functions a security profile
// may expose to a module.
type MaxImportFunctions struct{ n int }

func NewMaxImportFunctions(n int) (MaxImportFunctions, error) {
	if n < MinMaxImportFunctions || n > MaxMaxImportFunctions {
		return MaxImportFunctions{}, fmt.Errorf("domain: max import functions %d out of range [%d,%d]", n, MinMaxImportFunctions, MaxMaxImportFunctions)
	}
	return MaxImportFunctions{n: n}, nil
}

func (m MaxImportFunctions) Value() int { return m.n }

// MessageCount is a bounded, saturating counter used by the sandbox drain
// phase (distinct from a conversation's unbounded-until-capped message
// count).
type MessageCount struct{ n int }

// MaxDrainMessageCount is the per-sandbox-drain cap from the original
// system (restored from original_source; the distilled spec only says
// "decrements a remaining-count").
const MaxDrainMessageCount = 1_000

func NewMessageCount(n int) (MessageCount, error) {
	if n < 0 || n > MaxDrainMessageCount {
		return MessageCount{}, fmt.Errorf("domain: message count %d out of range [0,%d]", n, MaxDrainMessageCount)
	}
	return MessageCount{n: n}, nil
}

func (c MessageCount) Value() int { return c.n }

// Decrement returns the decremented count and true, or the zero value and
// false when already at zero (mirroring original_source's Option-returning
// decrement).
func (c MessageCount) Decrement() (MessageCount, bool) {
	if c.n == 0 {
		return MessageCount{}, false
	}
	return MessageCount{n: c.n - 1}, true
}

func (c MessageCount) IsZero() bool { return c.n == 0 }
