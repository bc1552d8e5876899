package client

import (
	"hash/crc32"
	"io"
	"time"

	"github.com/mongoose-os/badgelink/conn"
	"github.com/mongoose-os/badgelink/proto"
)

// crc32AndSize reads r to EOF in 1 MiB chunks, returning its IEEE CRC32 and
// total length, so an upload's preflight can hash arbitrarily large files
// without buffering them in memory.
func crc32AndSize(r io.Reader) (uint32, uint64, error) {
	buf := make([]byte, 1024*1024)
	h := crc32.NewIEEE()
	var size uint64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += uint64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
	}
	return h.Sum32(), size, nil
}

// uploadData sends the bulk data phase of a transfer that has already been
// initiated: size bytes read from r, chunked to conn.ChunkMaxSize, each sent
// as an upload_chunk request, followed by a xfer_ctrl=Finish request.
func (c *Client) uploadData(r io.Reader, size uint64) error {
	buf := make([]byte, conn.ChunkMaxSize)
	var pos uint32
	for uint64(pos) < size {
		n, err := io.ReadFull(r, buf)
		if err == io.ErrUnexpectedEOF {
			// Last, short chunk.
		} else if err != nil && err != io.EOF {
			return err
		}
		chunk := proto.Chunk{Position: pos, Data: append([]byte(nil), buf[:n]...)}
		if _, err := c.Conn.SimpleRequest(proto.NewUploadChunkRequest(chunk), "", c.Conn.ChunkTimeout); err != nil {
			return err
		}
		c.Conn.Metrics.ObserveXfer("up", n)
		pos += uint32(n)
	}
	_, err := c.Conn.SimpleRequest(proto.NewXferCtrlRequest(proto.XferFinish), "", c.Conn.XferTimeout)
	return err
}

// downloadData receives the bulk data phase of a transfer that has already
// been initiated: size bytes, fetched one xfer_ctrl=Continue request at a
// time and written to w, followed by a xfer_ctrl=Finish request sent with
// finishTimeout (callers vary this: an AppFS download finishes with
// DefTimeout but a filesystem download finishes with the longer
// XferTimeout). Returns a conn.Error with Kind KindMalformedResponse if the
// badge sends a chunk at an unexpected position.
func (c *Client) downloadData(w io.Writer, size uint64, finishTimeout time.Duration) error {
	var pos uint64
	for pos < size {
		resp, err := c.Conn.SimpleRequest(proto.NewXferCtrlRequest(proto.XferContinue), "", c.Conn.ChunkTimeout)
		if err != nil {
			return err
		}
		chunk := resp.DownloadChunk
		if uint64(chunk.Position) != pos {
			return conn.NewMalformedResponseError("incorrect chunk position: got %d, want %d", chunk.Position, pos)
		}
		if _, err := w.Write(chunk.Data); err != nil {
			return err
		}
		c.Conn.Metrics.ObserveXfer("down", len(chunk.Data))
		pos += uint64(len(chunk.Data))
	}
	_, err := c.Conn.SimpleRequest(proto.NewXferCtrlRequest(proto.XferFinish), "", finishTimeout)
	return err
}
