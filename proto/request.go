package proto

import "github.com/juju/errors"

// Request domain tags, written as the first byte of the request field's
// value: a request is a tagged union over these domains.
const (
	reqStartApp byte = iota + 1
	reqNvsAction
	reqAppfsAction
	reqFsAction
	reqUploadChunk
	reqXferCtrl
)

// StartAppReq asks the badge to launch an installed app.
type StartAppReq struct {
	Slug string
	Arg  string
}

// NvsActionReq is the payload of a nvs_action request. ReadType is only
// meaningful for NvsActionRead; WData only for NvsActionWrite; ListOffset
// only for NvsActionList.
type NvsActionReq struct {
	Type       NvsAction
	Namespace  string
	Key        string
	ReadType   NvsValueType
	WData      NvsValue
	ListOffset uint32
}

// AppfsActionReq is the payload of an appfs_action request. Metadata and
// Crc32 are only meaningful for AppfsActionUpload; ListOffset only for
// AppfsActionList.
type AppfsActionReq struct {
	Type       AppfsAction
	Slug       string
	ListOffset uint32
	Metadata   AppfsMetadata
	Crc32      uint32
}

// FsActionReq is the payload of a fs_action request. Crc32/Size are only
// meaningful for FsActionUpload; ListOffset only for FsActionList.
type FsActionReq struct {
	Type       FsAction
	Path       string
	ListOffset uint32
	Crc32      uint32
	Size       uint64
}

// Request is the tagged union of every request domain the host may send.
// Exactly one of the non-zero-value fields below is meaningful per request;
// which one is determined by Domain.
type Request struct {
	Domain      byte
	StartApp    StartAppReq
	NvsAction   NvsActionReq
	AppfsAction AppfsActionReq
	FsAction    FsActionReq
	UploadChunk Chunk
	XferCtrl    XferCtrl
}

func NewStartAppRequest(slug, arg string) Request {
	return Request{Domain: reqStartApp, StartApp: StartAppReq{Slug: slug, Arg: arg}}
}

func NewNvsActionRequest(r NvsActionReq) Request {
	return Request{Domain: reqNvsAction, NvsAction: r}
}

func NewAppfsActionRequest(r AppfsActionReq) Request {
	return Request{Domain: reqAppfsAction, AppfsAction: r}
}

func NewFsActionRequest(r FsActionReq) Request {
	return Request{Domain: reqFsAction, FsAction: r}
}

func NewUploadChunkRequest(c Chunk) Request {
	return Request{Domain: reqUploadChunk, UploadChunk: c}
}

func NewXferCtrlRequest(c XferCtrl) Request {
	return Request{Domain: reqXferCtrl, XferCtrl: c}
}

func (req Request) marshal() []byte {
	var buf []byte
	switch req.Domain {
	case reqStartApp:
		buf = putShortString(buf, req.StartApp.Slug)
		buf = putShortString(buf, req.StartApp.Arg)
	case reqNvsAction:
		a := req.NvsAction
		buf = append(buf, byte(a.Type))
		buf = putShortString(buf, a.Namespace)
		buf = putShortString(buf, a.Key)
		switch a.Type {
		case NvsActionRead:
			buf = append(buf, byte(a.ReadType))
		case NvsActionWrite:
			buf = append(buf, a.WData.marshal()...)
		case NvsActionList:
			buf = putUint32(buf, a.ListOffset)
		}
	case reqAppfsAction:
		a := req.AppfsAction
		buf = append(buf, byte(a.Type))
		buf = putShortString(buf, a.Slug)
		switch a.Type {
		case AppfsActionList:
			buf = putUint32(buf, a.ListOffset)
		case AppfsActionUpload:
			buf = append(buf, a.Metadata.marshal()...)
			buf = putUint32(buf, a.Crc32)
		}
	case reqFsAction:
		a := req.FsAction
		buf = append(buf, byte(a.Type))
		buf = putString(buf, a.Path)
		switch a.Type {
		case FsActionList:
			buf = putUint32(buf, a.ListOffset)
		case FsActionUpload:
			buf = putUint32(buf, a.Crc32)
			buf = putUint64(buf, a.Size)
		}
	case reqUploadChunk:
		buf = append(buf, req.UploadChunk.marshal()...)
	case reqXferCtrl:
		buf = append(buf, byte(req.XferCtrl))
	}
	return append([]byte{req.Domain}, buf...)
}

func unmarshalRequest(value []byte) (Request, error) {
	if len(value) == 0 {
		return Request{}, errors.New("empty request field")
	}
	domain := value[0]
	r := newReader(value[1:])
	var req Request
	req.Domain = domain
	switch domain {
	case reqStartApp:
		req.StartApp = StartAppReq{Slug: r.shortString(), Arg: r.shortString()}
	case reqNvsAction:
		var a NvsActionReq
		a.Type = NvsAction(r.byte())
		a.Namespace = r.shortString()
		a.Key = r.shortString()
		switch a.Type {
		case NvsActionRead:
			a.ReadType = NvsValueType(r.byte())
		case NvsActionWrite:
			a.WData = unmarshalNvsValue(r)
		case NvsActionList:
			a.ListOffset = r.uint32()
		}
		req.NvsAction = a
	case reqAppfsAction:
		var a AppfsActionReq
		a.Type = AppfsAction(r.byte())
		a.Slug = r.shortString()
		switch a.Type {
		case AppfsActionList:
			a.ListOffset = r.uint32()
		case AppfsActionUpload:
			a.Metadata = unmarshalAppfsMetadata(r)
			a.Crc32 = r.uint32()
		}
		req.AppfsAction = a
	case reqFsAction:
		var a FsActionReq
		a.Type = FsAction(r.byte())
		a.Path = r.string()
		switch a.Type {
		case FsActionList:
			a.ListOffset = r.uint32()
		case FsActionUpload:
			a.Crc32 = r.uint32()
			a.Size = r.uint64()
		}
		req.FsAction = a
	case reqUploadChunk:
		req.UploadChunk = unmarshalChunk(r)
	case reqXferCtrl:
		req.XferCtrl = XferCtrl(r.byte())
	default:
		return Request{}, errors.Errorf("unknown request domain %#02x", domain)
	}
	if err := r.done(); err != nil {
		return Request{}, errors.Annotatef(err, "request domain %#02x", domain)
	}
	return req, nil
}
