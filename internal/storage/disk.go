package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const fileMode0644 = 0o644

// DiskManager owns the database files under a single directory and performs
// page-granular IO on them. It maps file names to small integer ids so that
// the buffer pool can key frames by (FileID, PageID).
//
// Reading a page beyond the current end of file returns zero-filled bytes;
// the file grows lazily on the first write to that page. Higher layers rely
// on this to allocate pages by simply fetching them.
type DiskManager struct {
	mu       sync.Mutex
	dir      string
	pageSize int

	files  map[FileID]*os.File
	names  map[FileID]string
	ids    map[string]FileID
	nextID FileID
}

func NewDiskManager(dir string, pageSize int) (*DiskManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create dir: %w", err)
	}
	return &DiskManager{
		dir:      dir,
		pageSize: pageSize,
		files:    make(map[FileID]*os.File),
		names:    make(map[FileID]string),
		ids:      make(map[string]FileID),
	}, nil
}

func (d *DiskManager) PageSize() int { return d.pageSize }
func (d *DiskManager) Dir() string   { return d.dir }

// CreateFile creates a new empty file and opens it.
func (d *DiskManager) CreateFile(name string) (FileID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.ids[name]; ok {
		return InvalidFileID, ErrFileExists
	}
	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, fileMode0644)
	if err != nil {
		if os.IsExist(err) {
			return InvalidFileID, ErrFileExists
		}
		return InvalidFileID, fmt.Errorf("disk: create %s: %w", name, err)
	}
	return d.registerLocked(name, f), nil
}

// OpenFile opens an existing file.
func (d *DiskManager) OpenFile(name string) (FileID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fid, ok := d.ids[name]; ok {
		return fid, nil
	}
	path := filepath.Join(d.dir, name)
	f, err := os.OpenFile(path, os.O_RDWR, fileMode0644)
	if err != nil {
		if os.IsNotExist(err) {
			return InvalidFileID, ErrFileNotFound
		}
		return InvalidFileID, fmt.Errorf("disk: open %s: %w", name, err)
	}
	return d.registerLocked(name, f), nil
}

func (d *DiskManager) registerLocked(name string, f *os.File) FileID {
	fid := d.nextID
	d.nextID++
	d.files[fid] = f
	d.names[fid] = name
	d.ids[name] = fid
	return fid
}

// CloseFile closes the file and forgets its id.
func (d *DiskManager) CloseFile(fid FileID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[fid]
	if !ok {
		return ErrFileNotOpen
	}
	delete(d.files, fid)
	delete(d.ids, d.names[fid])
	delete(d.names, fid)
	return f.Close()
}

// DestroyFile closes the file and removes it from disk.
func (d *DiskManager) DestroyFile(fid FileID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.files[fid]
	if !ok {
		return ErrFileNotOpen
	}
	name := d.names[fid]
	delete(d.files, fid)
	delete(d.ids, name)
	delete(d.names, fid)
	if err := f.Close(); err != nil {
		slog.Warn("disk: close before destroy failed", "file", name, "err", err)
	}
	return os.Remove(filepath.Join(d.dir, name))
}

// FileName returns the name the file was opened under.
func (d *DiskManager) FileName(fid FileID) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.names[fid]
	if !ok {
		return "", ErrFileNotOpen
	}
	return name, nil
}

// FileID returns the id of an already-open file.
func (d *DiskManager) FileID(name string) (FileID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fid, ok := d.ids[name]
	if !ok {
		return InvalidFileID, ErrFileNotOpen
	}
	return fid, nil
}

// ReadPage reads exactly one page into dst, zero-filling past EOF.
func (d *DiskManager) ReadPage(fid FileID, pid PageID, dst []byte) error {
	if len(dst) != d.pageSize {
		return fmt.Errorf("disk: dst must be exactly %d bytes", d.pageSize)
	}
	d.mu.Lock()
	f, ok := d.files[fid]
	d.mu.Unlock()
	if !ok {
		return ErrFileNotOpen
	}

	off := int64(pid) * int64(d.pageSize)
	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("disk: read page %d of %d: %w", pid, fid, err)
	}
	for i := n; i < d.pageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage writes exactly one page from src, growing the file as needed.
func (d *DiskManager) WritePage(fid FileID, pid PageID, src []byte) error {
	if len(src) != d.pageSize {
		return fmt.Errorf("disk: src must be exactly %d bytes", d.pageSize)
	}
	d.mu.Lock()
	f, ok := d.files[fid]
	d.mu.Unlock()
	if !ok {
		return ErrFileNotOpen
	}

	off := int64(pid) * int64(d.pageSize)
	n, err := f.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("disk: write page %d of %d: %w", pid, fid, err)
	}
	if n != d.pageSize {
		return io.ErrShortWrite
	}
	return nil
}

// NumPages reports how many whole pages the file currently holds on disk.
func (d *DiskManager) NumPages(fid FileID) (int, error) {
	d.mu.Lock()
	f, ok := d.files[fid]
	d.mu.Unlock()
	if !ok {
		return 0, ErrFileNotOpen
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int(info.Size() / int64(d.pageSize)), nil
}

// Close closes every open file.
func (d *DiskManager) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for fid, f := range d.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.ids, d.names[fid])
		delete(d.names, fid)
		delete(d.files, fid)
	}
	return firstErr
}
