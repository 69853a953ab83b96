package powerbitom

import "sync"

// Invocation is the per-call context handed to an operation. Operations mark
// it failed before returning their message; the host inspects the flag.
type Invocation struct {
	Variables ParameterSet

	mu  sync.Mutex
	err error
}

func NewInvocation(vars ParameterSet) *Invocation {
	if vars == nil {
		vars = ParameterSet{}
	}
	return &Invocation{Variables: vars}
}

// Fail marks the invocation failed. The first error is kept.
func (inv *Invocation) Fail(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.err == nil {
		inv.err = err
	}
}

func (inv *Invocation) Failed() bool {
	return inv.Err() != nil
}

func (inv *Invocation) Err() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.err
}
