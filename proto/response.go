package proto

import "github.com/juju/errors"

// Response field tags, written as the second byte of the response field's
// value, right after the status code. A response's domain payload is present
// only on StatusOk; the badge never populates both an error status and a
// domain payload.
const (
	respNone byte = iota
	respNvs
	respAppfs
	respFs
	respDownloadChunk
)

// NvsResp is the domain payload of a successful nvs_action response.
type NvsResp struct {
	RData        NvsValue
	Entries      []NvsEntry
	TotalEntries uint32
}

// AppfsResp is the domain payload of a successful appfs_action response.
type AppfsResp struct {
	Metadata  AppfsMetadata
	Crc32     uint32
	List      []AppfsMetadata
	TotalSize uint32
	Usage     FsUsage
	// Size is the full file size, returned by AppfsActionDownload's initiate
	// request so the client knows how many bytes to expect.
	Size uint64
}

// FsResp is the domain payload of a successful fs_action response.
type FsResp struct {
	Stat      FsStat
	Crc32     uint32
	List      []FsDirent
	TotalSize uint32
	Usage     FsUsage
	// Size is the full file size, returned by FsActionDownload's initiate
	// request so the client knows how many bytes to expect.
	Size uint64
}

// Response is what the badge sends back for a single request. Status is
// always present; exactly one of the domain payload fields below is
// meaningful, selected by which request triggered it, and only on
// StatusOk (error statuses carry no domain payload).
type Response struct {
	Status        StatusCode
	Domain        byte
	Nvs           NvsResp
	Appfs         AppfsResp
	Fs            FsResp
	DownloadChunk Chunk
}

func NewOkNvsResponse(r NvsResp) Response {
	return Response{Status: StatusOk, Domain: respNvs, Nvs: r}
}

func NewOkAppfsResponse(r AppfsResp) Response {
	return Response{Status: StatusOk, Domain: respAppfs, Appfs: r}
}

func NewOkFsResponse(r FsResp) Response {
	return Response{Status: StatusOk, Domain: respFs, Fs: r}
}

func NewOkDownloadChunkResponse(c Chunk) Response {
	return Response{Status: StatusOk, Domain: respDownloadChunk, DownloadChunk: c}
}

func NewOkResponse() Response {
	return Response{Status: StatusOk}
}

func NewErrorResponse(status StatusCode) Response {
	return Response{Status: status}
}

func (resp Response) marshal() []byte {
	buf := []byte{byte(resp.Status)}
	if resp.Status != StatusOk {
		return append(buf, respNone)
	}
	buf = append(buf, resp.Domain)
	switch resp.Domain {
	case respNvs:
		n := resp.Nvs
		buf = append(buf, n.RData.marshal()...)
		buf = putUint32(buf, uint32(len(n.Entries)))
		buf = putUint32(buf, n.TotalEntries)
		for _, e := range n.Entries {
			buf = append(buf, e.marshal()...)
		}
	case respAppfs:
		a := resp.Appfs
		buf = append(buf, a.Metadata.marshal()...)
		buf = putUint32(buf, a.Crc32)
		buf = putUint32(buf, uint32(len(a.List)))
		buf = putUint32(buf, a.TotalSize)
		for _, m := range a.List {
			buf = append(buf, m.marshal()...)
		}
		buf = append(buf, a.Usage.marshal()...)
		buf = putUint64(buf, a.Size)
	case respFs:
		f := resp.Fs
		buf = append(buf, f.Stat.marshal()...)
		buf = putUint32(buf, f.Crc32)
		buf = putUint32(buf, uint32(len(f.List)))
		buf = putUint32(buf, f.TotalSize)
		for _, d := range f.List {
			buf = append(buf, d.marshal()...)
		}
		buf = append(buf, f.Usage.marshal()...)
		buf = putUint64(buf, f.Size)
	case respDownloadChunk:
		buf = append(buf, resp.DownloadChunk.marshal()...)
	}
	return buf
}

func unmarshalResponse(value []byte) (Response, error) {
	r := newReader(value)
	status := StatusCode(r.byte())
	domain := r.byte()
	resp := Response{Status: status, Domain: domain}
	if status != StatusOk {
		if err := r.done(); err != nil {
			return Response{}, errors.Annotate(err, "error response")
		}
		return resp, nil
	}
	switch domain {
	case respNvs:
		var n NvsResp
		n.RData = unmarshalNvsValue(r)
		count := r.uint32()
		n.TotalEntries = r.uint32()
		n.Entries = make([]NvsEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			n.Entries = append(n.Entries, unmarshalNvsEntry(r))
		}
		resp.Nvs = n
	case respAppfs:
		var a AppfsResp
		a.Metadata = unmarshalAppfsMetadata(r)
		a.Crc32 = r.uint32()
		count := r.uint32()
		a.TotalSize = r.uint32()
		a.List = make([]AppfsMetadata, 0, count)
		for i := uint32(0); i < count; i++ {
			a.List = append(a.List, unmarshalAppfsMetadata(r))
		}
		a.Usage = unmarshalFsUsage(r)
		a.Size = r.uint64()
		resp.Appfs = a
	case respFs:
		var f FsResp
		f.Stat = unmarshalFsStat(r)
		f.Crc32 = r.uint32()
		count := r.uint32()
		f.TotalSize = r.uint32()
		f.List = make([]FsDirent, 0, count)
		for i := uint32(0); i < count; i++ {
			f.List = append(f.List, unmarshalFsDirent(r))
		}
		f.Usage = unmarshalFsUsage(r)
		f.Size = r.uint64()
		resp.Fs = f
	case respDownloadChunk:
		resp.DownloadChunk = unmarshalChunk(r)
	case respNone:
		// no payload
	default:
		return Response{}, errors.Errorf("unknown response domain %#02x", domain)
	}
	if err := r.done(); err != nil {
		return Response{}, errors.Annotatef(err, "response domain %#02x", domain)
	}
	return resp, nil
}
