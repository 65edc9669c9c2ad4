package fio

import "os"

// OSFile adapts *os.File to the File interface, the concrete collaborator
// the cmd/ CLI wires into the image package.
type OSFile struct {
	f *os.File
}

// Open opens name for the core; name must already exist (image files are
// created by the CLI's convert/format path, not by the core itself).
func Open(name string, flag int, perm os.FileMode) (*OSFile, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, Die("open image", err)
	}
	return &OSFile{f: f}, nil
}

func (o *OSFile) ReadAt(buf []byte, off int64) (int, error)  { return o.f.ReadAt(buf, off) }
func (o *OSFile) WriteAt(buf []byte, off int64) (int, error) { return o.f.WriteAt(buf, off) }
func (o *OSFile) Seek(offset int64, whence int) (int64, error) {
	return o.f.Seek(offset, whence)
}
func (o *OSFile) Read(buf []byte) (int, error)  { return o.f.Read(buf) }
func (o *OSFile) Write(buf []byte) (int, error) { return o.f.Write(buf) }
func (o *OSFile) Sync() error                   { return o.f.Sync() }

func (o *OSFile) Size() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (o *OSFile) Tell() (int64, error) {
	return o.f.Seek(0, os.SEEK_CUR)
}

// Close releases the underlying descriptor.
func (o *OSFile) Close() error { return o.f.Close() }
