package client

import (
	"fmt"
	"io"

	"github.com/mongoose-os/badgelink/proto"
)

// AppfsList lists every app installed in AppFS, traversing pagination until
// the badge's reported total is reached.
func (c *Client) AppfsList() ([]proto.AppfsMetadata, error) {
	var out []proto.AppfsMetadata
	offset := uint32(0)
	for {
		req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionList, ListOffset: offset})
		resp, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Appfs.List...)
		offset += uint32(len(resp.Appfs.List))
		if offset >= resp.Appfs.TotalSize {
			break
		}
	}
	return out, nil
}

// AppfsStat fetches one app's metadata.
func (c *Client) AppfsStat(slug string) (proto.AppfsMetadata, error) {
	if err := validateField("slug", slug, maxAppfsSlugLen); err != nil {
		return proto.AppfsMetadata{}, err
	}
	req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionStat, Slug: slug})
	resp, err := c.Conn.SimpleRequest(req, fmt.Sprintf("app `%s`", slug), c.Conn.DefTimeout)
	if err != nil {
		return proto.AppfsMetadata{}, err
	}
	return resp.Appfs.Metadata, nil
}

// AppfsCrc32 fetches the CRC32 checksum the badge computed for an app.
func (c *Client) AppfsCrc32(slug string) (uint32, error) {
	if err := validateField("slug", slug, maxAppfsSlugLen); err != nil {
		return 0, err
	}
	req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionCrc32, Slug: slug})
	resp, err := c.Conn.SimpleRequest(req, fmt.Sprintf("app `%s`", slug), c.Conn.DefTimeout)
	if err != nil {
		return 0, err
	}
	return resp.Appfs.Crc32, nil
}

// AppfsDelete removes an installed app.
func (c *Client) AppfsDelete(slug string) error {
	if err := validateField("slug", slug, maxAppfsSlugLen); err != nil {
		return err
	}
	req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionDelete, Slug: slug})
	_, err := c.Conn.SimpleRequest(req, fmt.Sprintf("app `%s`", slug), c.Conn.DefTimeout)
	return err
}

// AppfsUsage reports AppFS storage usage.
func (c *Client) AppfsUsage() (proto.FsUsage, error) {
	req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionGetUsage})
	resp, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
	if err != nil {
		return proto.FsUsage{}, err
	}
	return resp.Appfs.Usage, nil
}

// AppfsUpload installs an app from r, whose contents become the slug named
// by meta.Slug. meta.Size is overwritten with r's actual length; the caller
// need only set Slug, Title, and Version. r must support a second full pass
// (Seek back to 0) after the CRC32 preflight: the file is read once to hash
// it and again to stream it.
func (c *Client) AppfsUpload(meta proto.AppfsMetadata, r io.ReadSeeker) error {
	if err := validateField("slug", meta.Slug, maxAppfsSlugLen); err != nil {
		return err
	}
	if err := validateField("title", meta.Title, maxAppfsTitleLen); err != nil {
		return err
	}
	crc, size, err := crc32AndSize(r)
	if err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	meta.Size = size

	initReq := proto.NewAppfsActionRequest(proto.AppfsActionReq{
		Type:     proto.AppfsActionUpload,
		Slug:     meta.Slug,
		Metadata: meta,
		Crc32:    crc,
	})
	if _, err := c.Conn.SimpleRequest(initReq, "", c.Conn.XferTimeout); err != nil {
		return err
	}
	return c.uploadData(r, size)
}

// AppfsDownload fetches an installed app's contents into w.
func (c *Client) AppfsDownload(slug string, w io.Writer) error {
	if err := validateField("slug", slug, maxAppfsSlugLen); err != nil {
		return err
	}
	req := proto.NewAppfsActionRequest(proto.AppfsActionReq{Type: proto.AppfsActionDownload, Slug: slug})
	resp, err := c.Conn.SimpleRequest(req, fmt.Sprintf("app `%s`", slug), c.Conn.XferTimeout)
	if err != nil {
		return err
	}
	return c.downloadData(w, resp.Appfs.Size, c.Conn.DefTimeout)
}
