package proto

import "github.com/juju/errors"

// Packet-level field tags.
const (
	tagSerial   byte = 0x01
	tagSync     byte = 0x02
	tagRequest  byte = 0x03
	tagResponse byte = 0x04
)

// Packet is the message carried by every frame payload. Serial is always
// present. Exactly one of Sync, Request, Response is meaningful per packet,
// selected by HasSync/HasRequest/HasResponse — the zero value of each
// wouldn't otherwise be distinguishable from "absent".
type Packet struct {
	Serial uint32

	HasSync bool

	HasRequest bool
	Request    Request

	HasResponse bool
	Response    Response
}

func NewSyncPacket(serial uint32) Packet {
	return Packet{Serial: serial, HasSync: true}
}

func NewRequestPacket(serial uint32, req Request) Packet {
	return Packet{Serial: serial, HasRequest: true, Request: req}
}

func NewResponsePacket(serial uint32, resp Response) Packet {
	return Packet{Serial: serial, HasResponse: true, Response: resp}
}

// Marshal encodes p as the tagged-field body carried inside a frame payload.
func (p Packet) Marshal() []byte {
	w := &tlvWriter{}
	w.field(tagSerial, putUint32(nil, p.Serial))
	if p.HasSync {
		w.field(tagSync, nil)
	}
	if p.HasRequest {
		w.field(tagRequest, p.Request.marshal())
	}
	if p.HasResponse {
		w.field(tagResponse, p.Response.marshal())
	}
	return w.bytes()
}

// Unmarshal decodes a Packet from a frame payload. Fields with unrecognised
// tags are skipped, not rejected, so the badge may add packet-level fields
// in the future without breaking older hosts.
func Unmarshal(payload []byte) (Packet, error) {
	fields, err := readTLV(payload)
	if err != nil {
		return Packet{}, errors.Annotate(err, "malformed packet")
	}
	var p Packet
	var sawSerial bool
	for _, f := range fields {
		switch f.tag {
		case tagSerial:
			if len(f.value) != 4 {
				return Packet{}, errors.New("malformed packet: bad serial field length")
			}
			p.Serial = newReader(f.value).uint32()
			sawSerial = true
		case tagSync:
			p.HasSync = true
		case tagRequest:
			req, err := unmarshalRequest(f.value)
			if err != nil {
				return Packet{}, errors.Annotate(err, "malformed packet")
			}
			p.HasRequest = true
			p.Request = req
		case tagResponse:
			resp, err := unmarshalResponse(f.value)
			if err != nil {
				return Packet{}, errors.Annotate(err, "malformed packet")
			}
			p.HasResponse = true
			p.Response = resp
		default:
			// Unknown field: ignore for forward compatibility.
		}
	}
	if !sawSerial {
		return Packet{}, errors.New("malformed packet: missing serial field")
	}
	return p, nil
}
