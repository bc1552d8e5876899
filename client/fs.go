package client

import (
	"io"

	"github.com/mongoose-os/badgelink/proto"
)

// FsList lists the entries of a directory on the badge's filesystem,
// traversing pagination until the badge's reported total is reached.
func (c *Client) FsList(path string) ([]proto.FsDirent, error) {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return nil, err
	}
	var out []proto.FsDirent
	offset := uint32(0)
	for {
		req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionList, Path: path, ListOffset: offset})
		resp, err := c.Conn.SimpleRequest(req, "", c.Conn.ChunkTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Fs.List...)
		offset += uint32(len(resp.Fs.List))
		if offset >= resp.Fs.TotalSize {
			break
		}
	}
	return out, nil
}

// FsStat fetches a file or directory's metadata.
func (c *Client) FsStat(path string) (proto.FsStat, error) {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return proto.FsStat{}, err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionStat, Path: path})
	resp, err := c.Conn.SimpleRequest(req, path, c.Conn.DefTimeout)
	if err != nil {
		return proto.FsStat{}, err
	}
	return resp.Fs.Stat, nil
}

// FsCrc32 fetches the CRC32 checksum the badge computed for a file.
func (c *Client) FsCrc32(path string) (uint32, error) {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return 0, err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionCrc32, Path: path})
	resp, err := c.Conn.SimpleRequest(req, path, c.Conn.DefTimeout)
	if err != nil {
		return 0, err
	}
	return resp.Fs.Crc32, nil
}

// FsDelete removes a file.
func (c *Client) FsDelete(path string) error {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionDelete, Path: path})
	_, err := c.Conn.SimpleRequest(req, path, c.Conn.DefTimeout)
	return err
}

// FsMkdir creates a directory.
func (c *Client) FsMkdir(path string) error {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionMkdir, Path: path})
	_, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
	return err
}

// FsRmdir removes a directory. Returns a conn.Error with Status
// StatusNotEmpty if the directory still has entries.
func (c *Client) FsRmdir(path string) error {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionRmdir, Path: path})
	_, err := c.Conn.SimpleRequest(req, path, c.Conn.DefTimeout)
	return err
}

// FsUsage reports filesystem storage usage.
func (c *Client) FsUsage() (proto.FsUsage, error) {
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionGetUsage})
	resp, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
	if err != nil {
		return proto.FsUsage{}, err
	}
	return resp.Fs.Usage, nil
}

// FsUpload writes r's contents to path on the badge's filesystem, creating
// or truncating it. r must support a second full pass (Seek back to 0)
// after the CRC32 preflight.
func (c *Client) FsUpload(path string, r io.ReadSeeker) error {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return err
	}
	crc, size, err := crc32AndSize(r)
	if err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	initReq := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionUpload, Path: path, Crc32: crc, Size: size})
	if _, err := c.Conn.SimpleRequest(initReq, "", c.Conn.XferTimeout); err != nil {
		return err
	}
	return c.uploadData(r, size)
}

// FsDownload reads path from the badge's filesystem into w.
func (c *Client) FsDownload(path string, w io.Writer) error {
	if err := validateField("path", path, maxFsPathLen); err != nil {
		return err
	}
	req := proto.NewFsActionRequest(proto.FsActionReq{Type: proto.FsActionDownload, Path: path})
	resp, err := c.Conn.SimpleRequest(req, path, c.Conn.XferTimeout)
	if err != nil {
		return err
	}
	return c.downloadData(w, resp.Fs.Size, c.Conn.XferTimeout)
}
