package proto

// StatusCode is the badge's outcome for a completed request.
type StatusCode byte

const (
	StatusOk StatusCode = iota
	StatusInternalError
	StatusMalformed
	StatusNotSupported
	StatusNotFound
	StatusIllegalState
	StatusNoSpace
	StatusNotEmpty
	StatusIsFile
	StatusIsDir
	StatusExists
)

func (s StatusCode) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusInternalError:
		return "InternalError"
	case StatusMalformed:
		return "Malformed"
	case StatusNotSupported:
		return "NotSupported"
	case StatusNotFound:
		return "NotFound"
	case StatusIllegalState:
		return "IllegalState"
	case StatusNoSpace:
		return "NoSpace"
	case StatusNotEmpty:
		return "NotEmpty"
	case StatusIsFile:
		return "IsFile"
	case StatusIsDir:
		return "IsDir"
	case StatusExists:
		return "Exists"
	default:
		return "Unknown"
	}
}

// XferCtrl drives the data phase of a chunked bulk transfer once it has been
// initiated.
type XferCtrl byte

const (
	XferContinue XferCtrl = iota
	XferFinish
	XferAbort
)

// NvsAction selects the operation carried by a NvsActionReq.
type NvsAction byte

const (
	NvsActionRead NvsAction = iota
	NvsActionWrite
	NvsActionList
	NvsActionDelete
)

// AppfsAction selects the operation carried by an AppfsActionReq.
type AppfsAction byte

const (
	AppfsActionList AppfsAction = iota
	AppfsActionStat
	AppfsActionCrc32
	AppfsActionDelete
	AppfsActionUpload
	AppfsActionDownload
	AppfsActionGetUsage
)

// FsAction selects the operation carried by a FsActionReq.
type FsAction byte

const (
	FsActionList FsAction = iota
	FsActionStat
	FsActionCrc32
	FsActionDelete
	FsActionUpload
	FsActionDownload
	FsActionMkdir
	FsActionRmdir
	FsActionGetUsage
)

// NvsValueType tags the representation carried by a NvsValue.
type NvsValueType byte

const (
	NvsValueUint8 NvsValueType = iota
	NvsValueInt8
	NvsValueUint16
	NvsValueInt16
	NvsValueUint32
	NvsValueInt32
	NvsValueUint64
	NvsValueInt64
	NvsValueString
	NvsValueBlob
)

// NvsValue is a single typed NVS value: either a fixed-width integer (carried
// in Num, sign-extended/truncated by the reader according to Type) or a
// variable-length string/blob (carried in Blob).
type NvsValue struct {
	Type NvsValueType
	Num  uint64
	Blob []byte
}

func (v NvsValue) marshal() []byte {
	buf := []byte{byte(v.Type)}
	switch v.Type {
	case NvsValueString, NvsValueBlob:
		buf = putBlob(buf, v.Blob)
	default:
		buf = putUint64(buf, v.Num)
	}
	return buf
}

func unmarshalNvsValue(r *reader) NvsValue {
	t := NvsValueType(r.byte())
	v := NvsValue{Type: t}
	switch t {
	case NvsValueString, NvsValueBlob:
		v.Blob = r.blob()
	default:
		v.Num = r.uint64()
	}
	return v
}

// NvsEntry names one namespace/key pair returned by a NVS list page.
type NvsEntry struct {
	Namespace string
	Key       string
}

func (e NvsEntry) marshal() []byte {
	buf := putShortString(nil, e.Namespace)
	return putShortString(buf, e.Key)
}

func unmarshalNvsEntry(r *reader) NvsEntry {
	return NvsEntry{Namespace: r.shortString(), Key: r.shortString()}
}

// AppfsMetadata describes one AppFS executable slot.
type AppfsMetadata struct {
	Slug    string
	Title   string
	Version uint16
	Size    uint64
}

func (m AppfsMetadata) marshal() []byte {
	buf := putShortString(nil, m.Slug)
	buf = putShortString(buf, m.Title)
	buf = putUint16(buf, m.Version)
	return putUint64(buf, m.Size)
}

func unmarshalAppfsMetadata(r *reader) AppfsMetadata {
	return AppfsMetadata{
		Slug:    r.shortString(),
		Title:   r.shortString(),
		Version: r.uint16(),
		Size:    r.uint64(),
	}
}

// FsDirent names one entry returned by a filesystem directory listing.
type FsDirent struct {
	Name  string
	IsDir bool
}

func (d FsDirent) marshal() []byte {
	buf := putString(nil, d.Name)
	if d.IsDir {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func unmarshalFsDirent(r *reader) FsDirent {
	name := r.string()
	return FsDirent{Name: name, IsDir: r.byte() != 0}
}

// FsStat is a filesystem file/directory's metadata.
type FsStat struct {
	IsDir bool
	Size  uint64
	Ctime int64
	Mtime int64
	Atime int64
}

func (s FsStat) marshal() []byte {
	var isDir byte
	if s.IsDir {
		isDir = 1
	}
	buf := []byte{isDir}
	buf = putUint64(buf, s.Size)
	buf = putInt64(buf, s.Ctime)
	buf = putInt64(buf, s.Mtime)
	return putInt64(buf, s.Atime)
}

func unmarshalFsStat(r *reader) FsStat {
	isDir := r.byte() != 0
	return FsStat{IsDir: isDir, Size: r.uint64(), Ctime: r.int64(), Mtime: r.int64(), Atime: r.int64()}
}

// FsUsage reports used/total bytes for a storage area (AppFS or the general
// filesystem).
type FsUsage struct {
	Used  uint64
	Total uint64
}

func (u FsUsage) marshal() []byte {
	buf := putUint64(nil, u.Used)
	return putUint64(buf, u.Total)
}

func unmarshalFsUsage(r *reader) FsUsage {
	return FsUsage{Used: r.uint64(), Total: r.uint64()}
}

// Chunk is one fragment of a bulk transfer, sent as an upload_chunk request
// or received as a download_chunk response.
type Chunk struct {
	Position uint32
	Data     []byte
}

func (c Chunk) marshal() []byte {
	buf := putUint32(nil, c.Position)
	return putBlob(buf, c.Data)
}

func unmarshalChunk(r *reader) Chunk {
	return Chunk{Position: r.uint32(), Data: r.blob()}
}
