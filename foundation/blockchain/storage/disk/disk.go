// Package disk implements the ability to read and write blocks to disk
// using a single file holding one JSON document per line.
package disk

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebsnet/blockchain/foundation/blockchain/database"
)

// maxLine is the largest serialized block the iterator will accept.
const maxLine = 16 * 1024 * 1024

var errEndOfChain = errors.New("end of chain")

// Disk represents the serialization implementation for reading and storing
// blocks in a JSON lines file. Blocks are appended in the order they were
// accepted so every block follows its predecessor. This implements the
// database.Storage interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
	dbFile *os.File
}

// New constructs a Disk value for use, creating the file if needed.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	dbFile, err := os.OpenFile(dbPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath, dbFile: dbFile}, nil
}

// Close closes the file blocks are appended to.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dbFile.Close()
}

// Write appends the block to the end of the file.
func (d *Disk) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.dbFile.Write(append(data, '\n')); err != nil {
		return err
	}

	return d.dbFile.Sync()
}

// Replace swaps the chain on disk for the specified blocks. The blocks are
// written to a temporary file that is renamed over the current one, so a
// crash leaves either the old or the new chain in place.
func (d *Disk) Replace(blocks []database.BlockData) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tmpPath := d.dbPath + ".tmp"

	if err := writeFile(tmpPath, blocks); err != nil {
		os.Remove(tmpPath)
		return err
	}

	d.dbFile.Close()
	if err := os.Rename(tmpPath, d.dbPath); err != nil {
		os.Remove(tmpPath)
		return d.reopen(err)
	}

	return d.reopen(nil)
}

// reopen opens the file for appending again after a replace, keeping the
// first error seen.
func (d *Disk) reopen(err error) error {
	dbFile, openErr := os.OpenFile(d.dbPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if openErr != nil {
		if err == nil {
			err = openErr
		}
		return err
	}
	d.dbFile = dbFile

	return err
}

// writeFile writes the blocks to a new file at path and syncs it.
func writeFile(path string, blocks []database.BlockData) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, blockData := range blocks {
		data, err := json.Marshal(blockData)
		if err != nil {
			return err
		}

		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	return f.Sync()
}

// ForEach returns an iterator to walk through all the blocks in the order
// they were written.
func (d *Disk) ForEach() database.Iterator {
	f, err := os.Open(d.dbPath)
	if err != nil {
		return &diskIterator{openErr: err}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	return &diskIterator{file: f, scanner: scanner}
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface. A call that returns an error leaves the iterator
// open so callers checking Done first still see the error.
type diskIterator struct {
	file    *os.File
	scanner *bufio.Scanner
	openErr error
	err     error
	done    bool
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockData, error) {
	if di.done {
		return database.BlockData{}, errEndOfChain
	}

	if di.openErr != nil {
		err := di.openErr
		di.openErr = nil
		return di.fail(err)
	}

	if di.err != nil {
		return di.fail(di.err)
	}

	for di.scanner.Scan() {
		line := di.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var blockData database.BlockData
		if err := json.Unmarshal(line, &blockData); err != nil {
			return di.fail(err)
		}

		return blockData, nil
	}

	if err := di.scanner.Err(); err != nil {
		return di.fail(err)
	}

	di.done = true
	di.file.Close()

	return database.BlockData{}, errEndOfChain
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.done
}

// fail reports the error once and ends the iteration on the next call.
func (di *diskIterator) fail(err error) (database.BlockData, error) {
	if di.err != nil {
		di.done = true
		if di.file != nil {
			di.file.Close()
		}
		return database.BlockData{}, err
	}

	di.err = err
	return database.BlockData{}, err
}
