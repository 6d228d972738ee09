// Package exec implements C12: the executor dispatch that maps a parsed
// query.Op to the C7-C11 engines, accumulating and returning status, per
// spec.md §4.9. It owns no state of its own beyond the catalog and the
// per-session client context it is handed.
package exec

import (
	"context"
	"strconv"
	"strings"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/aggregate"
	"github.com/rpcpool/coldb/engine/fetch"
	"github.com/rpcpool/coldb/engine/insert"
	"github.com/rpcpool/coldb/engine/join"
	"github.com/rpcpool/coldb/engine/selection"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/query"
	"github.com/rpcpool/coldb/result"
	"github.com/rpcpool/coldb/session"
)

// Executor dispatches parsed operators against a shared catalog.
type Executor struct {
	Cat *catalog.Catalog
}

// New returns an Executor bound to cat.
func New(cat *catalog.Catalog) *Executor {
	return &Executor{Cat: cat}
}

// Result is what one dispatched operator produces for the transport: a
// status and, for Print, the payload bytes to send back verbatim.
type Result struct {
	Status  errs.Status
	Payload string
}

// Run dispatches one operator within ctx, mutating sess's handle bindings
// and batch state as a side effect.
func (e *Executor) Run(ctx context.Context, sess *session.Context, op query.Op) Result {
	switch op.Kind {
	case query.CreateDB:
		return wrap(e.Cat.CreateDB(op.Args[0]))
	case query.CreateTable:
		return e.execCreateTable(op)
	case query.CreateColumn:
		return e.execCreateColumn(op)
	case query.CreateIndex:
		return e.execCreateIndex(op)
	case query.Insert:
		return e.execInsert(op)
	case query.Load:
		return wrap(errs.Wrap(errs.KindExecutionError, "load is handled by the persist/transport layer, not the executor"))
	case query.Select:
		return e.execSelect(sess, op)
	case query.SelectPositional:
		return e.execSelectPositional(sess, op)
	case query.Fetch:
		return e.execFetch(sess, op)
	case query.Sum:
		return e.execReduce(sess, op, aggregate.Sum)
	case query.Avg:
		return e.execReduce(sess, op, aggregate.Avg)
	case query.Min:
		return e.execMinMax(sess, op, aggregate.Min, aggregate.MinIndexed)
	case query.Max:
		return e.execMinMax(sess, op, aggregate.Max, aggregate.MaxIndexed)
	case query.Add:
		return e.execElementwise(sess, op, aggregate.Add)
	case query.Sub:
		return e.execElementwise(sess, op, aggregate.Sub)
	case query.HashJoin:
		return e.execJoin(ctx, sess, op, true)
	case query.NestedLoopJoin:
		return e.execJoin(ctx, sess, op, false)
	case query.Print:
		return e.execPrint(sess, op)
	case query.BatchBegin:
		return wrap(sess.OpenBatch())
	case query.BatchExecute:
		return e.execBatchExecute(sess)
	case query.Shutdown:
		return Result{Status: errs.Status{Kind: errs.KindShutdownServer, Message: "shutdown requested"}}
	default:
		return wrap(errs.Wrap(errs.KindUnknownCommand, "unhandled operator kind"))
	}
}

func wrap(st errs.Status) Result { return Result{Status: st} }

func (e *Executor) execCreateTable(op query.Op) Result {
	name, dbName, ncolsStr := op.Args[0], op.Args[1], op.Args[2]
	ncols, err := strconv.Atoi(ncolsStr)
	if err != nil {
		return wrap(errs.Wrap(errs.KindIncorrectFormat, "create(tbl,...): %q is not an integer column count", ncolsStr))
	}
	return wrap(e.Cat.CreateTable(dbName, name, ncols))
}

func (e *Executor) execCreateColumn(op query.Op) Result {
	name, tableRef := op.Args[0], op.Args[1]
	dbName, tableName, st := splitTableRef(tableRef)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	return wrap(e.Cat.CreateColumn(dbName, tableName, name, op.IndexKind, op.Clustered))
}

func (e *Executor) execCreateIndex(op query.Op) Result {
	dbName, tableName, colName, st := splitColRef(op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	return wrap(e.Cat.AddIndex(dbName, tableName, colName, op.IndexKind, op.Clustered))
}

func (e *Executor) execInsert(op query.Op) Result {
	dbName, tableName, st := splitTableRef(op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	tb, st := e.Cat.LookupTable(dbName, tableName)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	return wrap(insert.Row(tb, op.InsertValues))
}

func (e *Executor) execSelect(sess *session.Context, op query.Op) Result {
	dbName, tableName, colName, st := splitColRef(op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	col, st := e.Cat.Lookup(dbName, tableName, colName)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	lo, hi := selection.ResolveBounds(op.Lo, op.Hi)

	if sess.BatchOpen() {
		return wrap(sess.QueueScan(op.Handle, col, clampI32(lo), clampI32(hi)))
	}

	positions, st := selection.SelectColumn(col, lo, hi)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(result.NewPositions(positions)))
	return wrap(errs.OK())
}

func (e *Executor) execSelectPositional(sess *session.Context, op query.Op) Result {
	posOperand, st := resolveHandle(sess, op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	valOperand, st := resolveHandle(sess, op.Args[1])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	lo, hi := selection.ResolveBounds(op.Lo, op.Hi)
	out, st := selection.SelectPositional(posOperand, valOperand, lo, hi)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(out))
	return wrap(errs.OK())
}

func (e *Executor) execFetch(sess *session.Context, op query.Op) Result {
	dbName, tableName, colName, st := splitColRef(op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	col, st := e.Cat.Lookup(dbName, tableName, colName)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	positions, st := resolveHandle(sess, op.Args[1])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	out, st := fetch.Fetch(col, positions)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(out))
	return wrap(errs.OK())
}

func (e *Executor) execReduce(sess *session.Context, op query.Op, fn func(result.Value) (result.Value, errs.Status)) Result {
	v, st := e.resolveOperand(sess, op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	out, st := fn(v)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(out))
	return wrap(errs.OK())
}

// execMinMax dispatches to the scalar Min/Max when only one operand is
// given, or the indexed variant when a second handle is bound. Per spec §4.6
// and the original's col_bound_and_index (db_operations.c:1001-1009), the
// two-handle form binds (positions, values) in that order — op.Args[0] is
// the positions handle, op.Handle2 is the values handle the extremum is
// scanned over. The indexed variant's position output is registered under
// "<handle>_pos", a naming convention this implementation introduces since
// the grammar sketch leaves the exact binding of the two output vectors
// unspecified.
func (e *Executor) execMinMax(
	sess *session.Context,
	op query.Op,
	scalar func(result.Value) (result.Value, errs.Status),
	indexed func(positions, values result.Value) (result.Value, result.Value, errs.Status),
) Result {
	if op.Handle2 == "" {
		values, st := e.resolveOperand(sess, op.Args[0])
		if !st.Kind.IsOK() {
			return wrap(st)
		}
		out, st := scalar(values)
		if !st.Kind.IsOK() {
			return wrap(st)
		}
		sess.Bind(op.Handle, session.Derived(out))
		return wrap(errs.OK())
	}

	positions, st := resolveHandle(sess, op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	values, st := e.resolveOperand(sess, op.Handle2)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	val, pos, st := indexed(positions, values)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(val))
	sess.Bind(op.Handle+"_pos", session.Derived(pos))
	return wrap(errs.OK())
}

func (e *Executor) execElementwise(sess *session.Context, op query.Op, fn func(a, b result.Value) (result.Value, errs.Status)) Result {
	a, st := e.resolveOperand(sess, op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	b, st := e.resolveOperand(sess, op.Args[1])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	out, st := fn(a, b)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	sess.Bind(op.Handle, session.Derived(out))
	return wrap(errs.OK())
}

// execJoin expects four handles: left positions, left values, right
// positions, right values (all previously bound by select/fetch). The
// right side's output positions are registered under "<handle>_r" for the
// same reason execMinMax registers a second handle: the grammar sketch
// doesn't name the second output.
func (e *Executor) execJoin(ctx context.Context, sess *session.Context, op query.Op, hash bool) Result {
	if len(op.Args) != 4 {
		return wrap(errs.Wrap(errs.KindIncorrectFormat, "join requires 4 arguments: lpos,lval,rpos,rval"))
	}
	lpos, st := resolveHandle(sess, op.Args[0])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	lval, st := resolveHandle(sess, op.Args[1])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	rpos, st := resolveHandle(sess, op.Args[2])
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	rval, st := resolveHandle(sess, op.Args[3])
	if !st.Kind.IsOK() {
		return wrap(st)
	}

	var pairs []join.Pair
	if hash {
		var st errs.Status
		pairs, st = join.HashJoin(ctx, lval.Int32s(), rval.Int32s())
		if !st.Kind.IsOK() {
			return wrap(st)
		}
	} else {
		pairs = join.NestedLoopJoin(lval.Int32s(), rval.Int32s())
	}

	lp := lpos.Positions()
	rp := rpos.Positions()
	outL := make([]uint32, len(pairs))
	outR := make([]uint32, len(pairs))
	for i, p := range pairs {
		outL[i] = lp[p.Left]
		outR[i] = rp[p.Right]
	}
	sess.Bind(op.Handle, session.Derived(result.NewPositions(outL)))
	sess.Bind(op.Handle+"_r", session.Derived(result.NewPositions(outR)))
	return wrap(errs.OK())
}

func (e *Executor) execBatchExecute(sess *session.Context) Result {
	scans, st := sess.DrainBatch()
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	out, st := selection.RunBatch(scans)
	if !st.Kind.IsOK() {
		return wrap(st)
	}
	for handle, v := range out {
		sess.Bind(handle, session.Derived(v))
	}
	return wrap(errs.OK())
}

// execPrint renders one comma-joined row per tuple across all operands,
// newline-separated, per spec.md §6's print contract.
func (e *Executor) execPrint(sess *session.Context, op query.Op) Result {
	vals := make([]result.Value, len(op.Args))
	for i, h := range op.Args {
		v, st := resolveHandle(sess, h)
		if !st.Kind.IsOK() {
			return wrap(st)
		}
		vals[i] = v
	}
	if len(vals) == 0 {
		return wrap(errs.OK())
	}
	n := vals[0].Len()
	for _, v := range vals {
		if v.Len() != n {
			return wrap(errs.Wrap(errs.KindQueryUnsupported, "print: all arguments must share length"))
		}
	}

	var sb strings.Builder
	for row := 0; row < n; row++ {
		for i, v := range vals {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(v.AtString(row))
		}
		sb.WriteByte('\n')
	}
	return Result{Status: errs.OK(), Payload: sb.String()}
}

// resolveHandle resolves a session handle to its bound result value,
// fetching a base column's full data as an Int32 result if the handle was
// bound directly to a catalog column.
func resolveHandle(sess *session.Context, name string) (result.Value, errs.Status) {
	gc, ok := sess.Get(name)
	if !ok {
		return result.Value{}, errs.Wrap(errs.KindObjectNotFound, "handle %q not found", name)
	}
	if gc.IsBase() {
		return result.NewInt32(gc.AsBase().Data), errs.OK()
	}
	return gc.AsDerived(), errs.OK()
}

// resolveOperand resolves either a dotted base-column reference
// (db.table.col) or a session handle to a result value.
func (e *Executor) resolveOperand(sess *session.Context, token string) (result.Value, errs.Status) {
	if strings.Contains(token, ".") {
		dbName, tableName, colName, st := splitColRef(token)
		if !st.Kind.IsOK() {
			return result.Value{}, st
		}
		col, st := e.Cat.Lookup(dbName, tableName, colName)
		if !st.Kind.IsOK() {
			return result.Value{}, st
		}
		return result.NewInt32(col.Data), errs.OK()
	}
	return resolveHandle(sess, token)
}

func splitTableRef(ref string) (dbName, tableName string, st errs.Status) {
	parts := strings.Split(ref, ".")
	if len(parts) != 2 {
		return "", "", errs.Wrap(errs.KindIncorrectFormat, "expected db.table reference, got %q", ref)
	}
	return parts[0], parts[1], errs.OK()
}

func splitColRef(ref string) (dbName, tableName, colName string, st errs.Status) {
	parts := strings.Split(ref, ".")
	if len(parts) != 3 {
		return "", "", "", errs.Wrap(errs.KindIncorrectFormat, "expected db.table.col reference, got %q", ref)
	}
	return parts[0], parts[1], parts[2], errs.OK()
}

func clampI32(v int64) int32 {
	if v > 1<<31-1 {
		return 1<<31 - 1
	}
	if v < -(1 << 31) {
		return -(1 << 31)
	}
	return int32(v)
}
