// Package catalog implements C1 (the column store) plus the database and
// table containers above it, per spec.md §3. Databases, tables, and
// columns are held in an arena addressed by small integer ids rather than
// pointers, and "current db" is an id, not a pointer — following the
// Design Notes' guidance for avoiding the source's db<->db linked list and
// column->table back-reference pointer cycles.
package catalog

import (
	"sync"

	"github.com/rpcpool/coldb/btree"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/sortedindex"
)

// IndexKind identifies which secondary structure, if any, a column has
// attached.
type IndexKind int

const (
	IndexNone IndexKind = iota
	IndexSorted
	IndexBTree
)

// Column is C1: a dense, fixed-schema i32 array with at most one
// secondary structure, per spec.md §3's Column invariant.
type Column struct {
	Name      string
	Data      []int32
	Clustered bool
	Kind      IndexKind
	Sorted    *sortedindex.Index
	BTree     *btree.Tree
}

// HasIndex reports whether the column carries a secondary structure.
func (c *Column) HasIndex() bool { return c.Kind != IndexNone }

// Table is an ordered list of columns sharing a common length N, with at
// most one primary (clustered) column.
type Table struct {
	Name       string
	Columns    []*Column
	colIndex   map[string]int
	N          int
	PrimaryCol int // index into Columns, -1 if none
}

// Column looks up a column by name within the table.
func (tb *Table) Column(name string) (*Column, bool) {
	i, ok := tb.colIndex[name]
	if !ok {
		return nil, false
	}
	return tb.Columns[i], true
}

// ColumnIndex returns the ordinal index of a column by name.
func (tb *Table) ColumnIndex(name string) (int, bool) {
	i, ok := tb.colIndex[name]
	return i, ok
}

// Primary returns the table's clustered primary column, if any.
func (tb *Table) Primary() (*Column, bool) {
	if tb.PrimaryCol < 0 {
		return nil, false
	}
	return tb.Columns[tb.PrimaryCol], true
}

// Db is a named set of tables with unique names.
type Db struct {
	Name       string
	Tables     []*Table
	tableIndex map[string]int
}

// Table looks up a table by name within the database.
func (d *Db) Table(name string) (*Table, bool) {
	i, ok := d.tableIndex[name]
	if !ok {
		return nil, false
	}
	return d.Tables[i], true
}

// Catalog is the process-wide, arena-backed database/table/column
// metadata store. It is mutated only via Create* and Insert (through
// engine/insert) or the bulk loader (through persist); a single RWMutex
// protects it so the model extends to a concurrent server per spec.md §5.
type Catalog struct {
	mu      sync.RWMutex
	dbs     []*Db
	dbIndex map[string]int
	current string // "" if no current db selected
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{dbIndex: map[string]int{}}
}

// CreateDB registers a new, empty database and makes it current.
func (c *Catalog) CreateDB(name string) errs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dbIndex[name]; ok {
		return errs.Wrap(errs.KindObjectAlreadyExist, "database %q already exists", name)
	}
	c.dbIndex[name] = len(c.dbs)
	c.dbs = append(c.dbs, &Db{Name: name, tableIndex: map[string]int{}})
	c.current = name
	return errs.OK()
}

// CurrentDB returns the database selected by the most recent CreateDB or
// UseDB call.
func (c *Catalog) CurrentDB() (*Db, errs.Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupDB(c.current)
}

// UseDB sets the current database by name, e.g. for a reloaded catalog.
func (c *Catalog) UseDB(name string) errs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dbIndex[name]; !ok {
		return errs.Wrap(errs.KindObjectNotFound, "database %q not found", name)
	}
	c.current = name
	return errs.OK()
}

func (c *Catalog) lookupDB(name string) (*Db, errs.Status) {
	i, ok := c.dbIndex[name]
	if !ok {
		return nil, errs.Wrap(errs.KindObjectNotFound, "database %q not found", name)
	}
	return c.dbs[i], errs.OK()
}

// LookupDB returns a database by name without changing "current".
func (c *Catalog) LookupDB(name string) (*Db, errs.Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookupDB(name)
}

// CreateTable registers a new table with no columns in db dbName; columns
// are attached afterward via CreateColumn. ncols is accepted but not
// stored: insert.Row checks a row's arity against the columns actually
// created, not against ncols.
func (c *Catalog) CreateTable(dbName, tableName string, ncols int) errs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, st := c.lookupDB(dbName)
	if !st.Kind.IsOK() {
		return st
	}
	if _, ok := db.tableIndex[tableName]; ok {
		return errs.Wrap(errs.KindObjectAlreadyExist, "table %q already exists", tableName)
	}
	db.tableIndex[tableName] = len(db.Tables)
	db.Tables = append(db.Tables, &Table{
		Name:       tableName,
		colIndex:   map[string]int{},
		PrimaryCol: -1,
	})
	_ = ncols // the wire protocol's declared arity; not stored or checked
	return errs.OK()
}

// CreateColumn attaches a new, empty column to a table, optionally with a
// secondary index. clustered columns become the table's (sole) primary
// column; a table may have at most one.
func (c *Catalog) CreateColumn(dbName, tableName, colName string, kind IndexKind, clustered bool) errs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, st := c.lookupDB(dbName)
	if !st.Kind.IsOK() {
		return st
	}
	ti, ok := db.tableIndex[tableName]
	if !ok {
		return errs.Wrap(errs.KindObjectNotFound, "table %q not found", tableName)
	}
	tb := db.Tables[ti]
	if _, ok := tb.colIndex[colName]; ok {
		return errs.Wrap(errs.KindObjectAlreadyExist, "column %q already exists", colName)
	}
	if clustered && tb.PrimaryCol >= 0 {
		return errs.Wrap(errs.KindQueryUnsupported, "table %q already has a primary column", tableName)
	}

	col := &Column{Name: colName, Clustered: clustered, Kind: kind}
	switch kind {
	case IndexSorted:
		if clustered {
			col.Sorted = sortedindex.NewClustered(&col.Data)
		} else {
			col.Sorted = sortedindex.NewUnclustered()
		}
	case IndexBTree:
		col.BTree = btree.New(btree.DefaultDegree, clustered)
	}

	tb.colIndex[colName] = len(tb.Columns)
	tb.Columns = append(tb.Columns, col)
	if clustered {
		tb.PrimaryCol = len(tb.Columns) - 1
	}
	return errs.OK()
}

// AddIndex attaches a secondary structure to an already-created column
// that has none; returns IndexAlreadyExists if the column is already
// indexed.
func (c *Catalog) AddIndex(dbName, tableName, colName string, kind IndexKind, clustered bool) errs.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, st := c.lookupDB(dbName)
	if !st.Kind.IsOK() {
		return st
	}
	tb, ok := db.Table(tableName)
	if !ok {
		return errs.Wrap(errs.KindObjectNotFound, "table %q not found", tableName)
	}
	col, ok := tb.Column(colName)
	if !ok {
		return errs.Wrap(errs.KindObjectNotFound, "column %q not found", colName)
	}
	if col.HasIndex() {
		return errs.Wrap(errs.KindIndexAlreadyExists, "column %q already has an index", colName)
	}
	if clustered && tb.PrimaryCol >= 0 {
		return errs.Wrap(errs.KindQueryUnsupported, "table %q already has a primary column", tableName)
	}

	col.Clustered = clustered
	col.Kind = kind
	switch kind {
	case IndexSorted:
		if clustered {
			col.Sorted = sortedindex.NewClustered(&col.Data)
		} else {
			ix := sortedindex.NewUnclustered()
			for pos, v := range col.Data {
				ix.Insert(v, uint32(pos))
			}
			col.Sorted = ix
		}
	case IndexBTree:
		col.BTree = btree.New(btree.DefaultDegree, clustered)
		if !clustered {
			for pos, v := range col.Data {
				col.BTree.Insert(v, uint32(pos), false)
			}
		}
	}
	if clustered {
		i, _ := tb.ColumnIndex(colName)
		tb.PrimaryCol = i
	}
	return errs.OK()
}

// Lookup resolves a db.table.col reference, already split at parse time,
// to its column.
func (c *Catalog) Lookup(dbName, tableName, colName string) (*Column, errs.Status) {
	db, st := c.LookupDB(dbName)
	if !st.Kind.IsOK() {
		return nil, st
	}
	tb, ok := db.Table(tableName)
	if !ok {
		return nil, errs.Wrap(errs.KindObjectNotFound, "table %q not found", tableName)
	}
	col, ok := tb.Column(colName)
	if !ok {
		return nil, errs.Wrap(errs.KindObjectNotFound, "column %q not found", colName)
	}
	return col, errs.OK()
}

// Databases returns every registered database, for the persist package's
// bulk dump path. The returned slice is the catalog's own backing array;
// callers must not mutate it while the server is live.
func (c *Catalog) Databases() []*Db {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbs
}

// CurrentName returns the name of the current database, or "" if none is
// selected, for persist to record which db a reloaded catalog should make
// current.
func (c *Catalog) CurrentName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// ReplaceFrom swaps c's entire database/table/column set for other's,
// under c's own lock, without copying other's mutex — used by the server's
// optional directory-watch reload path to hot-swap a freshly loaded
// catalog into the live *Catalog the rest of the process already holds a
// pointer to.
func (c *Catalog) ReplaceFrom(other *Catalog) {
	other.mu.RLock()
	dbs, dbIndex, current := other.dbs, other.dbIndex, other.current
	other.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dbs, c.dbIndex, c.current = dbs, dbIndex, current
}

// LookupTable resolves a db.table reference.
func (c *Catalog) LookupTable(dbName, tableName string) (*Table, errs.Status) {
	db, st := c.LookupDB(dbName)
	if !st.Kind.IsOK() {
		return nil, st
	}
	tb, ok := db.Table(tableName)
	if !ok {
		return nil, errs.Wrap(errs.KindObjectNotFound, "table %q not found", tableName)
	}
	return tb, errs.OK()
}
