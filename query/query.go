// Package query turns one line of the text query language into an
// operator tree the executor can dispatch, grounded in the source's
// parse_command/parse_create/parse_select family (original_source/src/parse.c):
// a thin prefix dispatch on the command keyword, then per-command argument
// splitting on the parenthesized, comma-separated argument list.
package query

import (
	"strconv"
	"strings"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
)

// Kind identifies which operator a parsed line represents.
type Kind int

const (
	CreateDB Kind = iota
	CreateTable
	CreateColumn
	CreateIndex
	Insert
	Select
	SelectPositional
	Fetch
	Sum
	Avg
	Min
	Max
	Add
	Sub
	HashJoin
	NestedLoopJoin
	Print
	BatchBegin
	BatchExecute
	Load
	Shutdown
)

// Op is the parsed form of one query line. Only the fields relevant to
// Kind are populated; the executor knows which to read for each Kind.
type Op struct {
	Kind Kind

	Handle  string   // assignment target, e.g. "p" in "p=select(...)"
	Args    []string // raw comma-split arguments, trimmed
	Handle2 string   // second handle operand, for two-handle min/max

	Lo, Hi       *int32 // resolved range bounds, nil means "null"
	InsertValues []int32

	IndexKind catalog.IndexKind
	Clustered bool
}

// Parse parses a single query line (no trailing newline) into an Op.
func Parse(line string) (Op, errs.Status) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "empty query")
	}

	handle := ""
	rest := line
	if eq := strings.IndexByte(line, '='); eq >= 0 && !strings.HasPrefix(line, "=") {
		// Only treat '=' as an assignment if it precedes the command's
		// opening paren, so e.g. a literal inside an argument never
		// confuses the split.
		if paren := strings.IndexByte(line, '('); paren < 0 || eq < paren {
			handle = strings.TrimSpace(line[:eq])
			rest = strings.TrimSpace(line[eq+1:])
		}
	}

	cmd, argStr, st := splitCommand(rest)
	if !st.Kind.IsOK() {
		return Op{}, st
	}
	args := splitArgs(argStr)

	switch {
	case cmd == "create":
		return parseCreate(args)
	case cmd == "relational_insert":
		return parseInsert(args)
	case cmd == "load":
		return Op{Kind: Load, Args: args}, errs.OK()
	case cmd == "select":
		return parseSelect(handle, args)
	case cmd == "fetch":
		return Op{Kind: Fetch, Handle: handle, Args: args}, errs.OK()
	case cmd == "sum":
		return Op{Kind: Sum, Handle: handle, Args: args}, errs.OK()
	case cmd == "avg":
		return Op{Kind: Avg, Handle: handle, Args: args}, errs.OK()
	case cmd == "min":
		return parseMinMax(Min, handle, args)
	case cmd == "max":
		return parseMinMax(Max, handle, args)
	case cmd == "add":
		return Op{Kind: Add, Handle: handle, Args: args}, errs.OK()
	case cmd == "sub":
		return Op{Kind: Sub, Handle: handle, Args: args}, errs.OK()
	case cmd == "hashjoin":
		return Op{Kind: HashJoin, Handle: handle, Args: args}, errs.OK()
	case cmd == "nestedloopjoin" || cmd == "nested_loop_join":
		return Op{Kind: NestedLoopJoin, Handle: handle, Args: args}, errs.OK()
	case cmd == "print":
		return Op{Kind: Print, Args: args}, errs.OK()
	case cmd == "batch_queries":
		return Op{Kind: BatchBegin}, errs.OK()
	case cmd == "batch_execute":
		return Op{Kind: BatchExecute}, errs.OK()
	case cmd == "shutdown":
		return Op{Kind: Shutdown}, errs.OK()
	default:
		return Op{}, errs.Wrap(errs.KindUnknownCommand, "unknown command %q", cmd)
	}
}

// splitCommand separates "name(args)" into ("name", "args"). A command
// with no parentheses (shutdown) or with empty ones (batch_queries())
// returns an empty argument string.
func splitCommand(s string) (string, string, errs.Status) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, "", errs.OK()
	}
	if !strings.HasSuffix(s, ")") {
		return "", "", errs.Wrap(errs.KindIncorrectFormat, "unterminated argument list in %q", s)
	}
	return s[:open], s[open+1 : len(s)-1], errs.OK()
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func parseCreate(args []string) (Op, errs.Status) {
	if len(args) == 0 {
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create: missing object kind")
	}
	switch args[0] {
	case "db":
		if len(args) != 2 {
			return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create(db,...) expects 2 arguments")
		}
		return Op{Kind: CreateDB, Args: []string{unquote(args[1])}}, errs.OK()
	case "tbl":
		if len(args) != 4 {
			return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create(tbl,...) expects 4 arguments")
		}
		return Op{Kind: CreateTable, Args: []string{unquote(args[1]), args[2], args[3]}}, errs.OK()
	case "col":
		if len(args) < 3 {
			return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create(col,...) expects at least 3 arguments")
		}
		op := Op{Kind: CreateColumn, Args: []string{unquote(args[1]), args[2]}}
		applyIndexArgs(&op, args[3:])
		return op, errs.OK()
	case "idx":
		if len(args) != 3 {
			return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create(idx,...) expects 3 arguments")
		}
		op := Op{Kind: CreateIndex, Args: []string{args[1]}}
		applyIndexArgs(&op, args[2:])
		return op, errs.OK()
	default:
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "create: unknown object kind %q", args[0])
	}
}

func applyIndexArgs(op *Op, rest []string) {
	for _, tok := range rest {
		switch tok {
		case "btree":
			op.IndexKind = catalog.IndexBTree
		case "sorted":
			op.IndexKind = catalog.IndexSorted
		case "clustered":
			op.Clustered = true
		case "unclustered":
			op.Clustered = false
		}
	}
}

func parseInsert(args []string) (Op, errs.Status) {
	if len(args) < 2 {
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "relational_insert requires a table and at least one value")
	}
	values := make([]int32, 0, len(args)-1)
	for _, a := range args[1:] {
		n, err := strconv.Atoi(a)
		if err != nil {
			return Op{}, errs.Wrap(errs.KindIncorrectFormat, "relational_insert: %q is not an integer", a)
		}
		values = append(values, int32(n))
	}
	return Op{Kind: Insert, Args: []string{args[0]}, InsertValues: values}, errs.OK()
}

func parseSelect(handle string, args []string) (Op, errs.Status) {
	switch len(args) {
	case 3:
		lo, hi, st := parseBounds(args[1], args[2])
		if !st.Kind.IsOK() {
			return Op{}, st
		}
		return Op{Kind: Select, Handle: handle, Args: []string{args[0]}, Lo: lo, Hi: hi}, errs.OK()
	case 4:
		lo, hi, st := parseBounds(args[2], args[3])
		if !st.Kind.IsOK() {
			return Op{}, st
		}
		return Op{Kind: SelectPositional, Handle: handle, Args: []string{args[0], args[1]}, Lo: lo, Hi: hi}, errs.OK()
	default:
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "select: expects 3 (col,lo,hi) or 4 (pos,val,lo,hi) arguments")
	}
}

func parseMinMax(kind Kind, handle string, args []string) (Op, errs.Status) {
	switch len(args) {
	case 1:
		return Op{Kind: kind, Handle: handle, Args: args}, errs.OK()
	case 2:
		return Op{Kind: kind, Handle: handle, Args: []string{args[0]}, Handle2: args[1]}, errs.OK()
	default:
		return Op{}, errs.Wrap(errs.KindIncorrectFormat, "min/max: expects 1 or 2 arguments")
	}
}

func parseBounds(loTok, hiTok string) (*int32, *int32, errs.Status) {
	lo, st := parseBound(loTok)
	if !st.Kind.IsOK() {
		return nil, nil, st
	}
	hi, st := parseBound(hiTok)
	if !st.Kind.IsOK() {
		return nil, nil, st
	}
	return lo, hi, errs.OK()
}

func parseBound(tok string) (*int32, errs.Status) {
	if tok == "null" {
		return nil, errs.OK()
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return nil, errs.Wrap(errs.KindIncorrectFormat, "%q is not an integer or null bound", tok)
	}
	v := int32(n)
	return &v, errs.OK()
}

func unquote(s string) string {
	return strings.Trim(s, `"`)
}
