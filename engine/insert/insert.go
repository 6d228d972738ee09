// Package insert implements C11: the insert coordinator, covering both the
// no-primary-index append path and the clustered-primary path that must
// keep the table's physical row order consistent with the primary column,
// per spec.md §4.8.
package insert

import (
	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
)

// Row inserts one new row into tb. len(values) must equal the table's
// column count; values are positional, matching tb.Columns order.
func Row(tb *catalog.Table, values []int32) errs.Status {
	if len(values) != len(tb.Columns) {
		return errs.Wrap(errs.KindQueryUnsupported, "insert: table %q has %d columns, got %d values", tb.Name, len(tb.Columns), len(values))
	}

	primary, hasPrimary := tb.Primary()
	if !hasPrimary {
		return appendRow(tb, values)
	}
	return insertClustered(tb, primary, values)
}

// appendRow handles tables with no clustered primary column: every column
// simply grows by one at the end, and any secondary index is updated with
// the new trailing position.
func appendRow(tb *catalog.Table, values []int32) errs.Status {
	pos := uint32(len(tb.Columns[0].Data))
	for i, col := range tb.Columns {
		col.Data = append(col.Data, values[i])
		switch col.Kind {
		case catalog.IndexSorted:
			if st := col.Sorted.Insert(values[i], pos); !st.Kind.IsOK() {
				return st
			}
		case catalog.IndexBTree:
			if st := col.BTree.Insert(values[i], pos, false); !st.Kind.IsOK() {
				return st
			}
		}
	}
	tb.N++
	return errs.OK()
}

// insertClustered handles tables with a clustered primary column: the new
// row's position is wherever the primary column's sort order places it,
// every column's base array is shifted to make room there, and every
// secondary index (including the primary's own, if it is a B+-tree) has its
// stored positions shifted to match.
func insertClustered(tb *catalog.Table, primary *catalog.Column, values []int32) errs.Status {
	n := len(primary.Data)
	key := values[tb.PrimaryCol]

	var insertPos uint32
	switch primary.Kind {
	case catalog.IndexBTree:
		insertPos = primary.BTree.FindInsertPosition(key)
	case catalog.IndexSorted:
		insertPos = primary.Sorted.FindInsertPosition(key)
	default:
		return errs.Wrap(errs.KindInvariantViolation, "table %q's primary column %q has no index", tb.Name, primary.Name)
	}

	shift := insertPos < uint32(n)

	for i, col := range tb.Columns {
		col.Data = insertAt(col.Data, insertPos, values[i])
	}

	for i, col := range tb.Columns {
		switch {
		case col == primary && col.Kind == catalog.IndexBTree:
			if st := col.BTree.Insert(key, insertPos, shift); !st.Kind.IsOK() {
				return st
			}
		case col == primary:
			// clustered sorted index borrows the base array directly; the
			// insertAt above already repositioned it.
		case col.Kind == catalog.IndexSorted:
			if st := col.Sorted.Insert(values[i], insertPos); !st.Kind.IsOK() {
				return st
			}
		case col.Kind == catalog.IndexBTree:
			if st := col.BTree.Insert(values[i], insertPos, shift); !st.Kind.IsOK() {
				return st
			}
		}
	}

	tb.N++
	return errs.OK()
}

// insertAt inserts value at position pos in data, shifting the tail right
// by one.
func insertAt(data []int32, pos uint32, value int32) []int32 {
	data = append(data, 0)
	copy(data[pos+1:], data[pos:len(data)-1])
	data[pos] = value
	return data
}
