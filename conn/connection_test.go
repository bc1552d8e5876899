package conn

import (
	"io"
	"testing"
	"time"

	"github.com/mongoose-os/badgelink/frame"
	"github.com/mongoose-os/badgelink/proto"
	"github.com/mongoose-os/badgelink/transport"
)

// fakeBadge speaks just enough of the wire protocol to drive Connection
// through handshake and simple_request from the other end of a pair of
// pipes, without needing real hardware.
type fakeBadge struct {
	rx  io.Reader
	tx  io.Writer
	buf []byte
}

func newFakeBadge(rx io.Reader, tx io.Writer) *fakeBadge {
	return &fakeBadge{rx: rx, tx: tx}
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

func (b *fakeBadge) send(p proto.Packet) error {
	_, err := b.tx.Write(frame.Encode(p.Marshal()))
	return err
}

func newConnectedPair(t *testing.T) (*Connection, *fakeBadge, func()) {
	t.Helper()
	hostToBadgeR, hostToBadgeW := io.Pipe()
	badgeToHostR, badgeToHostW := io.Pipe()

	badge := newFakeBadge(hostToBadgeR, badgeToHostW)

	// Reply to the handshake's sync packet before Connect returns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		p, err := badge.recv()
		if err != nil || !p.HasSync {
			return
		}
		badge.send(proto.NewSyncPacket(p.Serial))
	}()

	pipe := transport.NewPipe(badgeToHostR, hostToBadgeW)
	c, err := Connect(pipe)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	<-done

	cleanup := func() {
		pipe.Close()
	}
	return c, badge, cleanup
}

func TestConnectPerformsSyncHandshake(t *testing.T) {
	c, _, cleanup := newConnectedPair(t)
	defer cleanup()
	if c.serialNo == 0 {
		t.Fatal("expected a non-zero serial number after sync")
	}
}

func TestSimpleRequestRoundTrip(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	go func() {
		p, err := badge.recv()
		if err != nil {
			return
		}
		badge.send(proto.NewResponsePacket(p.Serial, proto.NewOkResponse()))
	}()

	resp, err := c.SimpleRequest(proto.NewStartAppRequest("launcher", ""), "", c.DefTimeout)
	if err != nil {
		t.Fatalf("SimpleRequest: %v", err)
	}
	if resp.Status != proto.StatusOk {
		t.Fatalf("status = %v", resp.Status)
	}
}

func TestSimpleRequestMapsBadgeErrorToNotFound(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	go func() {
		p, err := badge.recv()
		if err != nil {
			return
		}
		badge.send(proto.NewResponsePacket(p.Serial, proto.NewErrorResponse(proto.StatusNotFound)))
	}()

	_, err := c.SimpleRequest(proto.NewStartAppRequest("nope", ""), "App `nope`", c.DefTimeout)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want a NotFound badge error", err)
	}
}

func TestSimpleRequestDetectsSerialMismatch(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	go func() {
		p, err := badge.recv()
		if err != nil {
			return
		}
		badge.send(proto.NewResponsePacket(p.Serial+1, proto.NewOkResponse()))
	}()

	_, err := c.SimpleRequest(proto.NewStartAppRequest("x", ""), "", c.DefTimeout)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindCommunication {
		t.Fatalf("err = %v, want KindCommunication", err)
	}
}

func TestSimpleRequestResyncsOnReboot(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	go func() {
		// The badge "rebooted": it replies to the request with a fresh sync
		// packet instead of a response, then answers the retried request.
		p, err := badge.recv()
		if err != nil {
			return
		}
		badge.send(proto.NewSyncPacket(0xffffffff))

		sync, err := badge.recv()
		if err != nil || !sync.HasSync {
			return
		}
		badge.send(proto.NewSyncPacket(sync.Serial))

		retry, err := badge.recv()
		if err != nil {
			return
		}
		_ = p
		badge.send(proto.NewResponsePacket(retry.Serial, proto.NewOkResponse()))
	}()

	resp, err := c.SimpleRequest(proto.NewStartAppRequest("x", ""), "", c.DefTimeout)
	if err != nil {
		t.Fatalf("SimpleRequest: %v", err)
	}
	if resp.Status != proto.StatusOk {
		t.Fatalf("status = %v", resp.Status)
	}
}

func TestSimpleRequestTimesOutWithNoResponse(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	// The badge reads every request but never answers.
	go func() {
		for {
			if _, err := badge.recv(); err != nil {
				return
			}
		}
	}()

	_, err := c.SimpleRequest(proto.NewStartAppRequest("x", ""), "", 10*time.Millisecond)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindTimeout {
		t.Fatalf("err = %v, want KindTimeout", err)
	}
}

func TestSimpleRequestPaginatedList(t *testing.T) {
	c, badge, cleanup := newConnectedPair(t)
	defer cleanup()

	entries := []proto.NvsEntry{{Namespace: "wifi", Key: "ssid"}, {Namespace: "wifi", Key: "pass"}, {Namespace: "sys", Key: "tz"}}
	go func() {
		for {
			p, err := badge.recv()
			if err != nil {
				return
			}
			offset := p.Request.NvsAction.ListOffset
			page := entries[offset:min(offset+2, uint32(len(entries)))]
			badge.send(proto.NewResponsePacket(p.Serial, proto.NewOkNvsResponse(proto.NvsResp{
				Entries:      page,
				TotalEntries: uint32(len(entries)),
			})))
		}
	}()

	var got []proto.NvsEntry
	offset := uint32(0)
	for {
		resp, err := c.SimpleRequest(proto.NewNvsActionRequest(proto.NvsActionReq{Type: proto.NvsActionList, ListOffset: offset}), "", c.DefTimeout)
		if err != nil {
			t.Fatalf("SimpleRequest: %v", err)
		}
		got = append(got, resp.Nvs.Entries...)
		offset += uint32(len(resp.Nvs.Entries))
		if offset >= resp.Nvs.TotalEntries {
			break
		}
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
}
