package regalloc

import (
	"fmt"

	"github.com/raymyers/ralph-x64/pkg/diag"
)

// scratchOrder is the preference order for AllocateAny. RAX is left out because
// it carries return values; handing it out would only cause save/restore churn.
var scratchOrder = []ID{RBX, RCX, RDX, RSI, RDI, R8, R9, R10, R11, R12, R13, R14, R15}

// Claim is an exclusive hold on a register at a width. Release it exactly once.
type Claim struct {
	ID    ID
	Width int

	pool      *Pool
	released  bool
	permanent bool
}

// Name returns the register name at the claimed width
func (c *Claim) Name() string {
	if name, ok := Name(c.ID, c.Width); ok {
		return name
	}
	return fmt.Sprintf("<%s:%d>", c.ID, c.Width)
}

// Permanent reports whether the claim is a fixture that is never released
func (c *Claim) Permanent() bool {
	return c.permanent
}

// Released reports whether the claim has been given back
func (c *Claim) Released() bool {
	return c.released
}

// Release gives the register back to its pool
func (c *Claim) Release() error {
	if c.pool == nil {
		return nil
	}
	return c.pool.Release(c)
}

// Pool tracks which registers are checked out and at what width
type Pool struct {
	allocatedAs [NumRegs]int
	holders     [NumRegs]int
	permanent   [NumRegs]bool
	rep         *diag.Reporter
}

// NewPool creates a pool with every register free
func NewPool(rep *diag.Reporter) *Pool {
	if rep == nil {
		rep = diag.NewReporter(diag.Continue, nil)
	}
	return &Pool{rep: rep}
}

// AllocatedAs returns the width id is checked out at, or 0 if it is free
func (p *Pool) AllocatedAs(id ID) int {
	if !id.Valid() {
		return 0
	}
	return p.allocatedAs[id]
}

// InUse reports whether id is checked out
func (p *Pool) InUse(id ID) bool {
	return p.AllocatedAs(id) != 0
}

// Request claims id at width. It fails if id is taken or its natural size is
// larger than width.
func (p *Pool) Request(id ID, width int) (*Claim, bool) {
	if !id.Valid() {
		p.rep.Unhandled("Request", "register index", int(id))
		return nil, false
	}
	if width == 0 {
		p.rep.Errorf("Request", "zero sized register requested, %s", id)
		width = 4
		if table[id].Size == 8 {
			width = 8
		}
	}
	if p.allocatedAs[id] != 0 || table[id].Size > width {
		return nil, false
	}
	p.allocatedAs[id] = width
	p.holders[id] = 1
	return &Claim{ID: id, Width: width, pool: p}, true
}

// Reserve takes id permanently, e.g. for the stack and frame pointers. Releasing
// a permanent claim is a no-op.
func (p *Pool) Reserve(id ID, width int) *Claim {
	c, ok := p.Request(id, width)
	if !ok {
		p.rep.Errorf("Reserve", "%s is not available for reservation", id)
		p.allocatedAs[id] = width
		p.holders[id]++
		c = &Claim{ID: id, Width: width, pool: p}
	}
	c.permanent = true
	p.permanent[id] = true
	return c
}

// AllocateAny claims the first free register in the scratch preference order.
// When none is free the pool is exhausted: the diagnostic is reported and RAX
// is handed out anyway, shared with its current holder if it has one.
func (p *Pool) AllocateAny(width int) (*Claim, error) {
	if width == 0 {
		return nil, p.rep.Errorf("AllocateAny", "zero sized register requested")
	}
	for _, id := range scratchOrder {
		if c, ok := p.Request(id, width); ok {
			return c, nil
		}
	}
	if c, ok := p.Request(RAX, width); ok {
		return c, nil
	}
	err := p.rep.Exhausted("AllocateAny", "no registers left")
	p.holders[RAX]++
	p.allocatedAs[RAX] = width
	return &Claim{ID: RAX, Width: width, pool: p}, err
}

// Release gives c back. Releasing twice is reported.
func (p *Pool) Release(c *Claim) error {
	if c == nil || c.permanent {
		return nil
	}
	if c.released {
		return p.rep.Errorf("Release", "double release of %s", c.Name())
	}
	c.released = true
	if p.holders[c.ID] == 0 {
		return p.rep.Errorf("Release", "release of free register %s", c.ID)
	}
	p.holders[c.ID]--
	if p.holders[c.ID] == 0 {
		p.allocatedAs[c.ID] = 0
	}
	return nil
}

// Scoped claims a register for the duration of fn and releases it afterwards,
// whether or not fn fails.
func (p *Pool) Scoped(width int, fn func(c *Claim) error) error {
	c, err := p.AllocateAny(width)
	if err != nil {
		if c != nil {
			p.Release(c)
		}
		return err
	}
	defer p.Release(c)
	return fn(c)
}

// Live returns the registers currently checked out, permanent ones excluded
func (p *Pool) Live() []ID {
	var live []ID
	for id := RAX; id < NumRegs; id++ {
		if p.allocatedAs[id] != 0 && !p.permanent[id] {
			live = append(live, id)
		}
	}
	return live
}

// Idle reports whether only permanent claims are outstanding
func (p *Pool) Idle() bool {
	return len(p.Live()) == 0
}
