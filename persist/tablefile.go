package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpcpool/coldb/catalog"
)

// nameWidth is the fixed width of a column name field in a table file
// record; spec.md's catalog wording is only "fixed-size column records" and
// leaves the exact width unspecified, so this picks a width generous
// enough for any handle name (spec.md §3 caps handle names at 64 bytes,
// and a column name is never longer than a handle).
const nameWidth = 64

// tableRecordSize is one column's fixed-size on-disk record: a
// null-padded name, one byte of IndexKind, one byte of clustered-ness, and
// reserved padding for future fields without changing the record size.
const tableRecordSize = nameWidth + 1 + 1 + 6

func tableFilePath(dir, dbName, tableName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.tbl", dbName, tableName))
}

// saveTableFile writes one fixed-size record per column, matching
// spec.md §6's "one file per table (fixed-size column records)".
func saveTableFile(dir, dbName, tableName string, cols []columnMeta) error {
	f, err := os.Create(tableFilePath(dir, dbName, tableName))
	if err != nil {
		return fmt.Errorf("persist: create table file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, tableRecordSize)
	for _, c := range cols {
		clear(buf)
		if len(c.Name) > nameWidth {
			return fmt.Errorf("persist: column name %q exceeds %d bytes", c.Name, nameWidth)
		}
		copy(buf[:nameWidth], c.Name)
		buf[nameWidth] = byte(c.Kind)
		if c.Clustered {
			buf[nameWidth+1] = 1
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("persist: write table record: %w", err)
		}
	}
	return nil
}

// readTableFile reads back the fixed-size column records written by
// saveTableFile, for checkTableFile to cross-validate against the catalog
// skeleton on load.
func readTableFile(dir, dbName, tableName string) ([]columnMeta, error) {
	f, err := os.Open(tableFilePath(dir, dbName, tableName))
	if err != nil {
		return nil, fmt.Errorf("persist: open table file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, tableRecordSize)
	var out []columnMeta
	for {
		n, err := f.Read(buf)
		if n == 0 {
			break
		}
		if n < tableRecordSize {
			return nil, fmt.Errorf("persist: truncated table record (%d of %d bytes)", n, tableRecordSize)
		}
		end := 0
		for end < nameWidth && buf[end] != 0 {
			end++
		}
		out = append(out, columnMeta{
			Name:      string(buf[:end]),
			Kind:      catalog.IndexKind(buf[nameWidth]),
			Clustered: buf[nameWidth+1] != 0,
		})
		if err != nil {
			break
		}
	}
	return out, nil
}

// checkTableFile reads back the .tbl file written by saveTableFile and
// confirms it agrees with the column records just decoded from the
// catalog skeleton, so a hand-edited or truncated .tbl file is caught as
// a load-time error rather than silently diverging from database.bin.
func checkTableFile(dir, dbName, tableName string, want []columnMeta) error {
	got, err := readTableFile(dir, dbName, tableName)
	if err != nil {
		return fmt.Errorf("persist: table file for %s.%s: %w", dbName, tableName, err)
	}
	if len(got) != len(want) {
		return fmt.Errorf("persist: table file for %s.%s has %d columns, catalog has %d", dbName, tableName, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("persist: table file for %s.%s column %d mismatch: file has %+v, catalog has %+v", dbName, tableName, i, got[i], want[i])
		}
	}
	return nil
}
