package client

import (
	"bytes"
	"io"
	"testing"

	"github.com/mongoose-os/badgelink/conn"
	"github.com/mongoose-os/badgelink/frame"
	"github.com/mongoose-os/badgelink/proto"
	"github.com/mongoose-os/badgelink/transport"
)

// fakeBadge is a minimal badge simulator for driving Client end to end over
// a pair of in-memory pipes, independent of the lower-level one in package
// conn's tests (unexported there, and this one speaks in terms of
// request/response pairs rather than raw packets).
type fakeBadge struct {
	rx  io.Reader
	tx  io.Writer
	buf []byte
}

func (b *fakeBadge) recv() (proto.Packet, error) {
	tmp := make([]byte, 256)
	for {
		payload, rest, found, err := frame.Extract(b.buf)
		if found {
			b.buf = rest
			if err != nil {
				return proto.Packet{}, err
			}
			return proto.Unmarshal(payload)
		}
		b.buf = rest
		n, err := b.rx.Read(tmp)
		if n > 0 {
			b.buf = append(b.buf, tmp[:n]...)
		}
		if err != nil {
			return proto.Packet{}, err
		}
	}
}

func (b *fakeBadge) send(p proto.Packet) {
	b.tx.Write(frame.Encode(p.Marshal()))
}

// serve answers every request recv'd with whatever respond returns, until
// the pipe is closed.
func (b *fakeBadge) serve(t *testing.T, respond func(proto.Request) proto.Response) {
	t.Helper()
	for {
		p, err := b.recv()
		if err != nil {
			return
		}
		if p.HasSync {
			b.send(proto.NewSyncPacket(p.Serial))
			continue
		}
		b.send(proto.NewResponsePacket(p.Serial, respond(p.Request)))
	}
}

func newTestClient(t *testing.T, respond func(proto.Request) proto.Response) (*Client, func()) {
	t.Helper()
	hostToBadgeR, hostToBadgeW := io.Pipe()
	badgeToHostR, badgeToHostW := io.Pipe()
	badge := &fakeBadge{rx: hostToBadgeR, tx: badgeToHostW}
	go badge.serve(t, respond)

	pipe := transport.NewPipe(badgeToHostR, hostToBadgeW)
	cl, err := Open(pipe)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return cl, func() { pipe.Close() }
}

func TestStartAppNotFound(t *testing.T) {
	cl, cleanup := newTestClient(t, func(req proto.Request) proto.Response {
		return proto.NewErrorResponse(proto.StatusNotFound)
	})
	defer cleanup()

	err := cl.StartApp("nope", "")
	if !conn.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestNvsWriteThenRead(t *testing.T) {
	stored := map[string]proto.NvsValue{}
	cl, cleanup := newTestClient(t, func(req proto.Request) proto.Response {
		a := req.NvsAction
		key := a.Namespace + "/" + a.Key
		switch a.Type {
		case proto.NvsActionWrite:
			stored[key] = a.WData
			return proto.NewOkResponse()
		case proto.NvsActionRead:
			v, ok := stored[key]
			if !ok {
				return proto.NewErrorResponse(proto.StatusNotFound)
			}
			return proto.NewOkNvsResponse(proto.NvsResp{RData: v})
		default:
			return proto.NewErrorResponse(proto.StatusMalformed)
		}
	})
	defer cleanup()

	if err := cl.NvsWrite("wifi", "ssid", proto.NvsValue{Type: proto.NvsValueString, Blob: []byte("my-net")}); err != nil {
		t.Fatalf("NvsWrite: %v", err)
	}
	got, err := cl.NvsRead("wifi", "ssid", proto.NvsValueString)
	if err != nil {
		t.Fatalf("NvsRead: %v", err)
	}
	if string(got.Blob) != "my-net" {
		t.Fatalf("got %q, want %q", got.Blob, "my-net")
	}
}

func TestFsUploadFailsWithNoSpaceOnSecondChunk(t *testing.T) {
	var chunksSeen int
	cl, cleanup := newTestClient(t, func(req proto.Request) proto.Response {
		if req.FsAction.Type == proto.FsActionUpload {
			return proto.NewOkResponse() // initiate
		}
		if len(req.UploadChunk.Data) > 0 {
			chunksSeen++
			if chunksSeen == 2 {
				return proto.NewErrorResponse(proto.StatusNoSpace)
			}
			return proto.NewOkResponse()
		}
		return proto.NewOkResponse() // xfer_ctrl=Finish, unreached
	})
	defer cleanup()

	data := bytes.Repeat([]byte{0x42}, 10000) // three chunks of <=4096 bytes
	err := cl.FsUpload("/sd/big.bin", bytes.NewReader(data))
	e, ok := err.(*conn.Error)
	if !ok || e.Kind != conn.KindBadge || e.Status != proto.StatusNoSpace {
		t.Fatalf("err = %v, want a StatusNoSpace badge error", err)
	}
	if chunksSeen != 2 {
		t.Fatalf("chunksSeen = %d, want 2 (upload should stop at the failing chunk)", chunksSeen)
	}
}

func TestFsDownloadRejectsWrongChunkPosition(t *testing.T) {
	initiated := false
	cl, cleanup := newTestClient(t, func(req proto.Request) proto.Response {
		if req.FsAction.Type == proto.FsActionDownload {
			initiated = true
			return proto.NewOkFsResponse(proto.FsResp{Size: 100})
		}
		// Always answer with position 10 regardless of what's expected,
		// to exercise the client's position-mismatch check.
		return proto.NewOkDownloadChunkResponse(proto.Chunk{Position: 10, Data: []byte{1, 2, 3}})
	})
	defer cleanup()

	var out bytes.Buffer
	err := cl.FsDownload("/sd/big.bin", &out)
	if !initiated {
		t.Fatal("download was never initiated")
	}
	e, ok := err.(*conn.Error)
	if !ok || e.Kind != conn.KindMalformedResponse {
		t.Fatalf("err = %v, want KindMalformedResponse", err)
	}
}

func TestAppfsListPagination(t *testing.T) {
	all := []proto.AppfsMetadata{
		{Slug: "a", Title: "A", Version: 1, Size: 10},
		{Slug: "b", Title: "B", Version: 1, Size: 20},
		{Slug: "c", Title: "C", Version: 1, Size: 30},
	}
	cl, cleanup := newTestClient(t, func(req proto.Request) proto.Response {
		offset := req.AppfsAction.ListOffset
		end := offset + 1
		if end > uint32(len(all)) {
			end = uint32(len(all))
		}
		return proto.NewOkAppfsResponse(proto.AppfsResp{List: all[offset:end], TotalSize: uint32(len(all))})
	})
	defer cleanup()

	got, err := cl.AppfsList()
	if err != nil {
		t.Fatalf("AppfsList: %v", err)
	}
	if len(got) != len(all) {
		t.Fatalf("got %d apps, want %d", len(got), len(all))
	}
}

func TestArgumentValidationRejectsBeforeSendingAnything(t *testing.T) {
	failIfCalled := func(req proto.Request) proto.Response {
		t.Fatalf("request sent to badge, want rejection before any request: %+v", req)
		return proto.Response{}
	}

	overLong := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	cases := []struct {
		name string
		call func(cl *Client) error
	}{
		{"nvs namespace too long", func(cl *Client) error {
			return cl.NvsWrite(overLong(maxNvsNameLen+1), "key", proto.NvsValue{Type: proto.NvsValueUint32})
		}},
		{"nvs key contains NUL", func(cl *Client) error {
			return cl.NvsWrite("ns", "k\x00ey", proto.NvsValue{Type: proto.NvsValueUint32})
		}},
		{"nvs string value too long", func(cl *Client) error {
			return cl.NvsWrite("ns", "key", proto.NvsValue{Type: proto.NvsValueString, Blob: []byte(overLong(maxNvsStringLen + 1))})
		}},
		{"nvs blob value too long", func(cl *Client) error {
			return cl.NvsWrite("ns", "key", proto.NvsValue{Type: proto.NvsValueBlob, Blob: make([]byte, maxNvsBlobLen+1)})
		}},
		{"nvs read namespace too long", func(cl *Client) error {
			_, err := cl.NvsRead(overLong(maxNvsNameLen+1), "key", proto.NvsValueUint32)
			return err
		}},
		{"nvs delete key too long", func(cl *Client) error {
			return cl.NvsDelete("ns", overLong(maxNvsNameLen+1))
		}},
		{"appfs slug too long", func(cl *Client) error {
			_, err := cl.AppfsStat(overLong(maxAppfsSlugLen + 1))
			return err
		}},
		{"appfs title too long", func(cl *Client) error {
			return cl.AppfsUpload(proto.AppfsMetadata{Slug: "s", Title: overLong(maxAppfsTitleLen + 1)}, bytes.NewReader(nil))
		}},
		{"app arg too long", func(cl *Client) error {
			return cl.StartApp("slug", overLong(maxAppArgLen+1))
		}},
		{"fs path too long", func(cl *Client) error {
			_, err := cl.FsStat(overLong(maxFsPathLen + 1))
			return err
		}},
		{"fs path contains NUL", func(cl *Client) error {
			return cl.FsDelete("/foo\x00bar")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cl, cleanup := newTestClient(t, failIfCalled)
			defer cleanup()

			err := tc.call(cl)
			cerr, ok := err.(*conn.Error)
			if !ok || cerr.Kind != conn.KindInvalidArgument {
				t.Fatalf("err = %v, want KindInvalidArgument", err)
			}
		})
	}
}
