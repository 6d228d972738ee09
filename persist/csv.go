package persist

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/insert"
	"github.com/rpcpool/coldb/errs"
)

// LoadFile implements `load("<path>")` from spec.md §6: the first line is a
// header of fully-qualified column names (db.table.col), and every
// remaining line is a comma-separated row of integers in that same column
// order. A header may span more than one table; each line is split back out
// per table and applied through insert.Row so every table's usual insert
// path (clustered shift or plain append, index maintenance included) runs
// exactly as if the row had arrived via relational_insert.
func LoadFile(cat *catalog.Catalog, path string) errs.Status {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.Wrap(errs.KindFileNotFound, "load: %s: %v", path, err)
		}
		return errs.Wrap(errs.KindExecutionError, "load: open %s: %v", path, err)
	}
	defer f.Close()

	info, _ := f.Stat()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		return errs.Wrap(errs.KindIncorrectFileFormat, "load: %s: missing header line", path)
	}
	header := strings.Split(scanner.Text(), ",")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := make([]*catalog.Column, len(header))
	tables := make([]*catalog.Table, len(header))
	for i, fq := range header {
		parts := strings.SplitN(fq, ".", 3)
		if len(parts) != 3 {
			return errs.Wrap(errs.KindIncorrectFileFormat, "load: %s: %q is not a db.table.col name", path, fq)
		}
		tb, st := cat.LookupTable(parts[0], parts[1])
		if !st.Kind.IsOK() {
			return st
		}
		col, ok := tb.Column(parts[2])
		if !ok {
			return errs.Wrap(errs.KindObjectNotFound, "load: %s: column %q not found", path, fq)
		}
		cols[i] = col
		tables[i] = tb
	}

	// group header columns by table, preserving each table's own column
	// order, so a row's values can be reassembled in insert.Row's expected
	// order even when the header interleaves two tables' columns.
	type group struct {
		tb      *catalog.Table
		headIdx []int // indices into header/cols, in tb.Columns order
	}
	var groups []group
	groupOf := map[*catalog.Table]int{}
	for i, tb := range tables {
		gi, ok := groupOf[tb]
		if !ok {
			gi = len(groups)
			groupOf[tb] = gi
			groups = append(groups, group{tb: tb})
		}
		groups[gi].headIdx = append(groups[gi].headIdx, i)
	}
	for gi := range groups {
		g := &groups[gi]
		ordered := make([]int, len(g.headIdx))
		copy(ordered, g.headIdx)
		sortByColumnOrder(ordered, cols, g.tb)
		g.headIdx = ordered
	}

	rows := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			return errs.Wrap(errs.KindIncorrectFileFormat, "load: %s: row %d has %d fields, want %d", path, rows+1, len(fields), len(header))
		}
		values := make([]int32, len(fields))
		for i, tok := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return errs.Wrap(errs.KindIncorrectFileFormat, "load: %s: row %d: %q is not an integer", path, rows+1, tok)
			}
			values[i] = int32(n)
		}

		for _, g := range groups {
			rowValues := make([]int32, len(g.headIdx))
			for i, hi := range g.headIdx {
				rowValues[i] = values[hi]
			}
			if st := insert.Row(g.tb, rowValues); !st.Kind.IsOK() {
				return st
			}
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return errs.Wrap(errs.KindExecutionError, "load: %s: %v", path, err)
	}

	if info != nil {
		klog.Infof("load: %s: %s rows from %s", path, humanize.Comma(int64(rows)), humanize.Bytes(uint64(info.Size())))
	}
	return errs.OK()
}

// sortByColumnOrder reorders idx (indices into cols/header) so they follow
// tb's own column ordering, matching insert.Row's positional contract.
func sortByColumnOrder(idx []int, cols []*catalog.Column, tb *catalog.Table) {
	rank := make(map[*catalog.Column]int, len(tb.Columns))
	for i, c := range tb.Columns {
		rank[c] = i
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && rank[cols[idx[j-1]]] > rank[cols[idx[j]]]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
}
