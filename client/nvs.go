package client

import (
	"fmt"

	"github.com/mongoose-os/badgelink/proto"
)

// NvsRead reads a single typed value from the badge's non-volatile storage.
// valueType tells the badge how to interpret the stored bytes; it must match
// the type the value was written with.
func (c *Client) NvsRead(namespace, key string, valueType proto.NvsValueType) (proto.NvsValue, error) {
	if err := validateField("namespace", namespace, maxNvsNameLen); err != nil {
		return proto.NvsValue{}, err
	}
	if err := validateField("key", key, maxNvsNameLen); err != nil {
		return proto.NvsValue{}, err
	}
	req := proto.NewNvsActionRequest(proto.NvsActionReq{
		Type:      proto.NvsActionRead,
		Namespace: namespace,
		Key:       key,
		ReadType:  valueType,
	})
	what := fmt.Sprintf("entry %q:%q", namespace, key)
	resp, err := c.Conn.SimpleRequest(req, what, c.Conn.DefTimeout)
	if err != nil {
		return proto.NvsValue{}, err
	}
	return resp.Nvs.RData, nil
}

// NvsWrite writes a single typed value to the badge's non-volatile storage,
// creating the namespace/key if it doesn't already exist.
func (c *Client) NvsWrite(namespace, key string, value proto.NvsValue) error {
	if err := validateField("namespace", namespace, maxNvsNameLen); err != nil {
		return err
	}
	if err := validateField("key", key, maxNvsNameLen); err != nil {
		return err
	}
	if err := validateNvsValue(value); err != nil {
		return err
	}
	req := proto.NewNvsActionRequest(proto.NvsActionReq{
		Type:      proto.NvsActionWrite,
		Namespace: namespace,
		Key:       key,
		WData:     value,
	})
	_, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
	return err
}

// NvsList lists every namespace/key pair stored on the badge, or only those
// in namespace if it's non-empty, traversing the badge's paginated response
// until every entry has been collected.
func (c *Client) NvsList(namespace string) ([]proto.NvsEntry, error) {
	if err := validateOptionalField("namespace", namespace, maxNvsNameLen); err != nil {
		return nil, err
	}
	var out []proto.NvsEntry
	offset := uint32(0)
	for {
		req := proto.NewNvsActionRequest(proto.NvsActionReq{
			Type:       proto.NvsActionList,
			Namespace:  namespace,
			ListOffset: offset,
		})
		resp, err := c.Conn.SimpleRequest(req, "", c.Conn.DefTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Nvs.Entries...)
		offset += uint32(len(resp.Nvs.Entries))
		if offset >= resp.Nvs.TotalEntries {
			break
		}
	}
	return out, nil
}

// NvsDelete removes a single namespace/key pair. Returns a conn.Error with
// Status StatusNotFound if it doesn't exist.
func (c *Client) NvsDelete(namespace, key string) error {
	if err := validateField("namespace", namespace, maxNvsNameLen); err != nil {
		return err
	}
	if err := validateField("key", key, maxNvsNameLen); err != nil {
		return err
	}
	req := proto.NewNvsActionRequest(proto.NvsActionReq{
		Type:      proto.NvsActionDelete,
		Namespace: namespace,
		Key:       key,
	})
	what := fmt.Sprintf("NVS entry %q:%q", namespace, key)
	_, err := c.Conn.SimpleRequest(req, what, c.Conn.DefTimeout)
	return err
}
