// Package persist implements the external collaborators spec.md §6 treats
// as opaque byte streams: the catalog file, one file per table, one file
// per column, and one index file per indexed column. The core (catalog,
// btree, sortedindex, engine/*) never imports this package; persist only
// reads and writes the exported fields/methods those packages already
// expose, matching spec.md §1's framing of persistence as an external
// collaborator specified solely through the contracts the core consumes.
//
// Layout, grounded in the teacher's gsfa/store/index (JSON sidecar header +
// binary body) and indexes/uints.go (fixed-width record encoding) style:
//
//	<dir>/database.bin        variable-length, length-prefixed JSON records,
//	                          one per database ("storage group"), each
//	                          listing its tables and each table's column
//	                          names/kinds so the catalog skeleton can be
//	                          rebuilt before any column data is touched.
//	<dir>/<db>.<table>.tbl    fixed-size column records for that table.
//	<dir>/<db>.<table>.<col>.col   zstd-compressed raw i32 column data.
//	<dir>/<db>.<table>.<col>.idx   sorted keys/positions or B+-tree BFS nodes.
package persist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"k8s.io/klog/v2"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogFileName is the fixed name of the top-level catalog skeleton file
// within a database directory, per spec.md §6 ("./database/database.bin").
const CatalogFileName = "database.bin"

// columnMeta is one column's persisted metadata, part of both the catalog
// skeleton record and the per-table fixed-record file.
type columnMeta struct {
	Name      string
	Kind      catalog.IndexKind
	Clustered bool
}

type tableMeta struct {
	Name       string
	N          int
	PrimaryCol int
	Columns    []columnMeta
}

type dbRecord struct {
	Name   string
	Tables []tableMeta
}

// Save writes cat's entire state to dir: the catalog skeleton, then one
// table file, one column file per column, and one index file per indexed
// column. dir is created if it does not exist.
func Save(cat *catalog.Catalog, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: create %s: %w", dir, err)
	}

	f, err := os.Create(filepath.Join(dir, CatalogFileName))
	if err != nil {
		return fmt.Errorf("persist: create catalog file: %w", err)
	}
	defer f.Close()

	for _, db := range cat.Databases() {
		rec := dbRecord{Name: db.Name}
		for _, tb := range db.Tables {
			tm := tableMeta{Name: tb.Name, N: tb.N, PrimaryCol: tb.PrimaryCol}
			for _, col := range tb.Columns {
				tm.Columns = append(tm.Columns, columnMeta{Name: col.Name, Kind: col.Kind, Clustered: col.Clustered})
				if err := saveColumn(dir, db.Name, tb.Name, col); err != nil {
					return err
				}
				if err := saveIndex(dir, db.Name, tb.Name, col); err != nil {
					return err
				}
			}
			rec.Tables = append(rec.Tables, tm)
			if err := saveTableFile(dir, db.Name, tb.Name, tm.Columns); err != nil {
				return err
			}
		}
		if err := writeRecord(f, rec); err != nil {
			return err
		}
	}
	klog.V(2).Infof("persist: saved catalog to %s", dir)
	return nil
}

// Load rebuilds a catalog from a directory previously written by Save. An
// empty, freshly-created catalog is returned if dir has no catalog file
// yet (first run against an empty ./database).
func Load(dir string) (*catalog.Catalog, error) {
	cat := catalog.New()

	f, err := os.Open(filepath.Join(dir, CatalogFileName))
	if os.IsNotExist(err) {
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: open catalog file: %w", err)
	}
	defer f.Close()

	for {
		var rec dbRecord
		err := readRecord(f, &rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("persist: read catalog record: %w", err)
		}
		if st := cat.CreateDB(rec.Name); !st.Kind.IsOK() {
			return nil, statusErr(st)
		}
		for _, tm := range rec.Tables {
			if st := cat.CreateTable(rec.Name, tm.Name, len(tm.Columns)); !st.Kind.IsOK() {
				return nil, statusErr(st)
			}
			for _, cm := range tm.Columns {
				if st := cat.CreateColumn(rec.Name, tm.Name, cm.Name, cm.Kind, cm.Clustered); !st.Kind.IsOK() {
					return nil, statusErr(st)
				}
			}
			tb, st := cat.LookupTable(rec.Name, tm.Name)
			if !st.Kind.IsOK() {
				return nil, statusErr(st)
			}
			if err := checkTableFile(dir, rec.Name, tm.Name, tm.Columns); err != nil {
				return nil, err
			}
			for _, col := range tb.Columns {
				if err := loadColumn(dir, rec.Name, tm.Name, col); err != nil {
					return nil, err
				}
			}
			tb.N = tm.N
		}
	}
	klog.V(2).Infof("persist: loaded catalog from %s", dir)
	return cat, nil
}

// writeRecord appends one length-prefixed JSON record to w: a big-endian
// uint32 byte length followed by the JSON bytes, the "variable-length
// record stream" spec.md §6 calls for.
func writeRecord(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("persist: marshal record: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// readRecord reads one record written by writeRecord, returning io.EOF
// when the stream is exhausted cleanly at a record boundary.
func readRecord(r io.Reader, v any) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("persist: truncated record length prefix: %w", err)
		}
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("persist: truncated record body: %w", err)
	}
	return json.Unmarshal(buf, v)
}

// statusErr adapts an errs.Status into a plain error for callers outside
// the engine's Status-carrying convention (persist is an external
// collaborator and speaks plain Go errors at its boundary).
func statusErr(st errs.Status) error {
	if st.Kind.IsOK() {
		return nil
	}
	return st.Err()
}
