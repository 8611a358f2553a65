package storage

import "github.com/haintp/wrendb/pkg/bx"

// Data page byte image:
//
//	+------------------+ 0
//	| page_id          | 4 bytes
//	| next_free_page   | 4 bytes (-1 = chain tail, or not on the chain)
//	| record_num       | 2 bytes
//	| reserved         | 2 bytes
//	+------------------+ PageHeaderSize
//	| slot bitmap      | ceil(rec_per_page/8) bytes
//	+------------------+
//	| slot 0 .. n-1    | rec_per_page x (nullmap_size + rec_size) bytes
//	+------------------+
//
// Page 0 of a table file does not follow this layout; it carries the table
// header instead. The page identity is therefore held in memory and set on
// every (re)bind, never derived from the bytes.
const PageHeaderSize = 12

const (
	offPageID    = 0
	offNextFree  = 4
	offRecordNum = 8
)

// Page is one fixed-size byte region cached in a frame.
type Page struct {
	fileID FileID
	id     PageID
	buf    []byte
}

func NewPage(pageSize int) *Page {
	return &Page{fileID: InvalidFileID, id: InvalidPageID, buf: make([]byte, pageSize)}
}

func (p *Page) FileID() FileID { return p.fileID }
func (p *Page) ID() PageID     { return p.id }
func (p *Page) Buf() []byte    { return p.buf }

func (p *Page) NextFreePage() PageID {
	return PageID(bx.I32At(p.buf, offNextFree))
}

func (p *Page) SetNextFreePage(id PageID) {
	bx.PutI32At(p.buf, offNextFree, int32(id))
}

func (p *Page) RecordNum() int {
	return int(bx.U16At(p.buf, offRecordNum))
}

func (p *Page) SetRecordNum(n int) {
	bx.PutU16At(p.buf, offRecordNum, uint16(n))
}

// SetIdentity rebinds the in-memory page to (fid, pid) without touching the
// byte image.
func (p *Page) SetIdentity(fid FileID, pid PageID) {
	p.fileID = fid
	p.id = pid
}

// Init formats the buffer as an empty data page.
func (p *Page) Init(fid FileID, pid PageID) {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.fileID = fid
	p.id = pid
	bx.PutI32At(p.buf, offPageID, int32(pid))
	bx.PutI32At(p.buf, offNextFree, int32(InvalidPageID))
	bx.PutU16At(p.buf, offRecordNum, 0)
}

// Stamp fixes up the header of a freshly loaded data page whose bytes do not
// yet carry its identity (an all-zero sparse read beyond EOF). The table
// header page is left alone: its bytes follow a different layout.
func (p *Page) Stamp(fid FileID, pid PageID) {
	p.fileID = fid
	p.id = pid
	if pid == FileHeaderPageID {
		return
	}
	if PageID(bx.I32At(p.buf, offPageID)) != pid {
		bx.PutI32At(p.buf, offPageID, int32(pid))
		bx.PutI32At(p.buf, offNextFree, int32(InvalidPageID))
		bx.PutU16At(p.buf, offRecordNum, 0)
	}
}
