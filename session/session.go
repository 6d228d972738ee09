// Package session implements C6, the per-connection client context: a
// named registry of result columns and catalog column references, plus
// the session-scoped "pending scans" list that backs shared-scan
// batching (spec.md §4.4/§5).
package session

import (
	"github.com/google/uuid"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
)

// GenCol is the "generalized column" sum type: an operand resolved to
// either a catalog-owned base column or a context-owned derived result,
// per the Design Notes' GenCol { Base(ColId), Derived(ResultId) }.
type GenCol struct {
	isBase  bool
	base    *catalog.Column
	derived result.Value
}

// Base wraps a catalog column reference as a GenCol.
func Base(c *catalog.Column) GenCol { return GenCol{isBase: true, base: c} }

// Derived wraps a session-local result as a GenCol.
func Derived(v result.Value) GenCol { return GenCol{isBase: false, derived: v} }

// IsBase reports whether this operand resolves to a catalog column.
func (g GenCol) IsBase() bool { return g.isBase }

// AsBase returns the underlying catalog column; panics if !IsBase().
func (g GenCol) AsBase() *catalog.Column {
	if !g.isBase {
		panic("session: AsBase called on a derived GenCol")
	}
	return g.base
}

// AsDerived returns the underlying result value; panics if IsBase().
func (g GenCol) AsDerived() result.Value {
	if g.isBase {
		panic("session: AsDerived called on a base GenCol")
	}
	return g.derived
}

// PendingScan is one queued select operator, accumulated on the context
// while in batch mode instead of executed immediately.
type PendingScan struct {
	Handle string
	Column *catalog.Column
	Lo, Hi int32
}

// Context is C6: a client context scoped to one connection/session. Name
// collisions overwrite (and, in a GC'd language, simply drop) the prior
// binding.
type Context struct {
	ID      string
	handles map[string]GenCol

	batchOpen bool
	batchCol  *catalog.Column
	pending   []PendingScan
}

// New returns an empty client context with a fresh session id.
func New() *Context {
	return &Context{
		ID:      uuid.NewString(),
		handles: map[string]GenCol{},
	}
}

// Bind registers a handle name, overwriting (freeing) any prior binding.
func (c *Context) Bind(name string, gc GenCol) {
	c.handles[name] = gc
}

// Get resolves a handle name to its bound operand.
func (c *Context) Get(name string) (GenCol, bool) {
	gc, ok := c.handles[name]
	return gc, ok
}

// OpenBatch enters shared-scan batch mode: subsequent selects over the
// same base column are queued rather than executed, until BatchExecute.
func (c *Context) OpenBatch() errs.Status {
	if c.batchOpen {
		return errs.Wrap(errs.KindInvariantViolation, "batch already open")
	}
	c.batchOpen = true
	c.batchCol = nil
	c.pending = nil
	return errs.OK()
}

// BatchOpen reports whether the session is currently in batch mode.
func (c *Context) BatchOpen() bool { return c.batchOpen }

// QueueScan adds one select operator to the pending batch. Only selects
// over the same base column may be queued together in one batch; queueing
// a select over a different column is an InvariantViolation.
func (c *Context) QueueScan(handle string, col *catalog.Column, lo, hi int32) errs.Status {
	if !c.batchOpen {
		return errs.Wrap(errs.KindInvariantViolation, "no batch is open")
	}
	if c.batchCol == nil {
		c.batchCol = col
	} else if c.batchCol != col {
		return errs.Wrap(errs.KindInvariantViolation, "batch_queries: mixed columns in one batch")
	}
	c.pending = append(c.pending, PendingScan{Handle: handle, Column: col, Lo: lo, Hi: hi})
	return errs.OK()
}

// DrainBatch closes batch mode and returns the queued scans for the
// executor to run as a single shared pass.
func (c *Context) DrainBatch() ([]PendingScan, errs.Status) {
	if !c.batchOpen {
		return nil, errs.Wrap(errs.KindInvariantViolation, "no batch is open")
	}
	out := c.pending
	c.batchOpen = false
	c.batchCol = nil
	c.pending = nil
	return out, errs.OK()
}
