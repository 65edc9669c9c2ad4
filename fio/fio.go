// Package fio specifies the random-access file I/O capability the codec
// core treats as an external collaborator: seek/read/write/sync over an
// image file, plus size/position queries and a fatal-error escape hatch.
// The core only ever talks to the File interface, never to *os.File
// directly, so tests can substitute an in-memory fake.
package fio

import "io"

// File is the random-access file capability the decode/encode core
// consumes. It mirrors FlashFloppy's F_lseek/F_read/F_write/F_sync/f_size/
// f_tell/F_die surface, reshaped into an idiomatic Go interface.
type File interface {
	io.ReaderAt
	io.WriterAt

	// Seek repositions the implicit read/write cursor used by Read/Write
	// (mirrors F_lseek); most core code prefers ReadAt/WriteAt and never
	// calls this directly.
	Seek(offset int64, whence int) (int64, error)
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)

	// Sync commits any buffered writes (F_sync).
	Sync() error

	// Size reports the current file length (f_size).
	Size() (int64, error)

	// Tell reports the current cursor position (f_tell).
	Tell() (int64, error)
}

// FatalError wraps an unrecoverable file-layer error: read errors from
// the file layer are fatal, the caller dies rather than trying to
// recover core state.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *FatalError) Unwrap() error { return e.Err }

// Die constructs the fatal escape hatch (F_die): the core calls this and
// propagates the error up, it never recovers from a dead file layer.
func Die(reason string, err error) error {
	return &FatalError{Reason: reason, Err: err}
}
