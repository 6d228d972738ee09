package persist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rpcpool/coldb/btree"
	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/sortedindex"
)

func indexFilePath(dir, dbName, tableName, colName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s.idx", dbName, tableName, colName))
}

// saveIndex writes the on-disk index file for an indexed column, per
// spec.md §6: "for sorted: keys then positions; for B+-tree: node records
// in BFS order". A clustered column's index needs no file at all: a
// clustered sorted index only ever borrows the column's own base array,
// and a clustered B+-tree's positions are always the contiguous row range
// implied by the already-saved column data, so both rebuild for free from
// the .col file alone.
func saveIndex(dir, dbName, tableName string, col *catalog.Column) error {
	if col.Clustered {
		return nil
	}
	switch col.Kind {
	case catalog.IndexSorted:
		return saveSortedIndexFile(dir, dbName, tableName, col)
	case catalog.IndexBTree:
		return saveBTreeIndexFile(dir, dbName, tableName, col)
	default:
		return nil
	}
}

// saveSortedIndexFile writes an unclustered sorted index as two
// length-prefixed int32/uint32 arrays: keys then positions, per spec.md §6.
func saveSortedIndexFile(dir, dbName, tableName string, col *catalog.Column) error {
	f, err := os.Create(indexFilePath(dir, dbName, tableName, col.Name))
	if err != nil {
		return fmt.Errorf("persist: create index file: %w", err)
	}
	defer f.Close()

	keys := col.Sorted.Keys()
	positions := col.Sorted.Positions()
	if err := writeInt32Array(f, keys); err != nil {
		return err
	}
	return writeUint32Array(f, positions)
}

func loadSortedIndex(dir, dbName, tableName string, col *catalog.Column) error {
	if col.Clustered {
		col.Sorted = sortedindex.NewClustered(&col.Data)
		return nil
	}
	path := indexFilePath(dir, dbName, tableName, col.Name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		col.Sorted = sortedindex.BuildUnclustered(positionsToKV(col.Data))
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist: open index file %s: %w", path, err)
	}
	defer f.Close()

	keys, err := readInt32Array(f)
	if err != nil {
		return fmt.Errorf("persist: read sorted index keys: %w", err)
	}
	positions, err := readUint32Array(f)
	if err != nil {
		return fmt.Errorf("persist: read sorted index positions: %w", err)
	}
	col.Sorted = sortedindex.BuildUnclustered(keys, positions)
	return nil
}

// positionsToKV derives (keys, positions) from a column's own base array:
// entry i's position is simply i, since base_column[pos] == keys[i] is the
// index-base agreement invariant spec.md §8 pins down for every indexed
// column, clustered or not.
func positionsToKV(data []int32) ([]int32, []uint32) {
	positions := make([]uint32, len(data))
	for i := range positions {
		positions[i] = uint32(i)
	}
	return data, positions
}

// saveBTreeIndexFile writes a B+-tree's nodes in breadth-first order using
// btree.DumpBFS, one jsoniter-encoded, length-prefixed record per node,
// preceded by a small header recording the tree's construction parameters.
func saveBTreeIndexFile(dir, dbName, tableName string, col *catalog.Column) error {
	f, err := os.Create(indexFilePath(dir, dbName, tableName, col.Name))
	if err != nil {
		return fmt.Errorf("persist: create index file: %w", err)
	}
	defer f.Close()

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(col.BTree.MaxKeys()+1))
	if col.BTree.Clustered() {
		header[4] = 1
	}
	if _, err := f.Write(header[:]); err != nil {
		return err
	}
	for _, rec := range col.BTree.DumpBFS() {
		if err := writeRecord(f, rec); err != nil {
			return err
		}
	}
	return nil
}

func loadBTreeIndex(dir, dbName, tableName string, col *catalog.Column) error {
	path := indexFilePath(dir, dbName, tableName, col.Name)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		col.BTree = rebuildBTreeFromData(col, btree.DefaultDegree)
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist: open index file %s: %w", path, err)
	}
	defer f.Close()

	var header [8]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return fmt.Errorf("persist: read btree index header: %w", err)
	}
	maxDegree := int(binary.LittleEndian.Uint32(header[0:4]))
	clustered := header[4] != 0

	var records []btree.NodeRecord
	for {
		var rec btree.NodeRecord
		err := readRecord(f, &rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("persist: read btree node record: %w", err)
		}
		records = append(records, rec)
	}
	col.BTree = btree.LoadBFS(records, maxDegree, clustered)
	return nil
}

func rebuildBTreeFromData(col *catalog.Column, maxDegree int) *btree.Tree {
	t := btree.New(maxDegree, col.Clustered)
	for pos, key := range col.Data {
		t.Insert(key, uint32(pos), false)
	}
	return t
}

func writeInt32Array(w io.Writer, vs []int32) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(vs)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	_, err := w.Write(buf)
	return err
}

func readInt32Array(r io.Reader) ([]int32, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

func writeUint32Array(w io.Writer, vs []uint32) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(vs)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	_, err := w.Write(buf)
	return err
}

func readUint32Array(r io.Reader) ([]uint32, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out, nil
}
