package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"

	"github.com/rpcpool/coldb/catalog"
)

// columnMagicZstd tags a column file with its encoding so a future format
// change (e.g. turning compression off) doesn't silently misparse an
// older file.
const columnMagicZstd = "COLZ"

func columnFilePath(dir, dbName, tableName, colName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.%s.col", dbName, tableName, colName))
}

// saveColumn writes a column's raw i32 data as little-endian int32s,
// zstd-compressed (the teacher's klauspost/compress in its indexing
// commands is over bytes rather than over int32 columns, but the library
// itself is exactly the teacher's compression dependency), with an xxhash64
// checksum trailer so a reload can detect truncation or bit rot.
func saveColumn(dir, dbName, tableName string, col *catalog.Column) error {
	path := columnFilePath(dir, dbName, tableName, col.Name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create column file %s: %w", path, err)
	}
	defer f.Close()

	raw := make([]byte, 4*len(col.Data))
	for i, v := range col.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}

	var compressed bytes.Buffer
	zw, err := zstd.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("persist: create zstd writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return fmt.Errorf("persist: zstd compress column %s: %w", col.Name, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("persist: close zstd writer: %w", err)
	}

	checksum := xxhash.Sum64(raw)

	if _, err := f.WriteString(columnMagicZstd); err != nil {
		return err
	}
	var lenAndSum [16]byte
	binary.LittleEndian.PutUint64(lenAndSum[0:8], uint64(len(col.Data)))
	binary.LittleEndian.PutUint64(lenAndSum[8:16], checksum)
	if _, err := f.Write(lenAndSum[:]); err != nil {
		return err
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("persist: write column %s body: %w", col.Name, err)
	}
	return nil
}

// loadColumn reads a column file written by saveColumn back into col.Data,
// verifies its checksum, and rebuilds col's secondary index (if any) to
// match the restored data.
func loadColumn(dir, dbName, tableName string, col *catalog.Column) error {
	path := columnFilePath(dir, dbName, tableName, col.Name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // a freshly created, still-empty column has no file yet
		}
		return fmt.Errorf("persist: open column file %s: %w", path, err)
	}
	defer f.Close()

	// Column files are read start-to-finish exactly once during catalog
	// load, so hint the kernel for sequential readahead rather than the
	// random-access pattern the teacher's compactindexsized hints for its
	// point-lookup index files.
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil {
		// Best-effort hint; not fatal if the platform/filesystem ignores it.
		_ = err
	}

	magic := make([]byte, len(columnMagicZstd))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("persist: read column %s magic: %w", col.Name, err)
	}
	if string(magic) != columnMagicZstd {
		return fmt.Errorf("persist: column %s: unrecognized magic %q", col.Name, magic)
	}
	var lenAndSum [16]byte
	if _, err := io.ReadFull(f, lenAndSum[:]); err != nil {
		return fmt.Errorf("persist: read column %s header: %w", col.Name, err)
	}
	n := binary.LittleEndian.Uint64(lenAndSum[0:8])
	wantSum := binary.LittleEndian.Uint64(lenAndSum[8:16])

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("persist: create zstd reader for column %s: %w", col.Name, err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("persist: decompress column %s: %w", col.Name, err)
	}
	if uint64(len(raw)) != n*4 {
		return fmt.Errorf("persist: column %s: decompressed length %d, want %d", col.Name, len(raw), n*4)
	}
	if xxhash.Sum64(raw) != wantSum {
		return fmt.Errorf("persist: column %s: checksum mismatch", col.Name)
	}

	data := make([]int32, n)
	for i := range data {
		data[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	col.Data = data
	return rebuildIndex(dir, dbName, tableName, col)
}

// rebuildIndex re-derives col's secondary structure for its freshly
// loaded Data, reading the column's index file if one is present (sorted
// keys/positions, or the B+-tree's exact node shape, preserved per
// spec.md §4.2's breadth-first-order requirement) and otherwise building
// it fresh from Data. A clustered sorted index always just borrows Data.
func rebuildIndex(dir, dbName, tableName string, col *catalog.Column) error {
	switch col.Kind {
	case catalog.IndexSorted:
		return loadSortedIndex(dir, dbName, tableName, col)
	case catalog.IndexBTree:
		return loadBTreeIndex(dir, dbName, tableName, col)
	default:
		return nil
	}
}
