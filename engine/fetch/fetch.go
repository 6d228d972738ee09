// Package fetch implements C8: gathering column[positions] into a new
// Int32 result, per spec.md §4.5.
package fetch

import (
	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
)

// Fetch produces a new Int32 result of the same length as positions, with
// entry i equal to column[positions[i]]. positions out of range of the
// column length is an InvariantViolation: the parser and selection engine
// should never emit such a position.
func Fetch(col *catalog.Column, positions result.Value) (result.Value, errs.Status) {
	if positions.Type != result.PositionIndex {
		return result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "fetch: positions argument must be a PositionIndex result")
	}
	ps := positions.Positions()
	out := make([]int32, len(ps))
	for i, p := range ps {
		if int(p) >= len(col.Data) {
			return result.Value{}, errs.Wrap(errs.KindInvariantViolation, "fetch: position %d out of range for column %q (len %d)", p, col.Name, len(col.Data))
		}
		out[i] = col.Data[p]
	}
	return result.NewInt32(out), errs.OK()
}
