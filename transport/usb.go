package transport

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/juju/errors"
)

// Default vendor/product IDs for badges speaking Badgelink over USB: shared
// by the MCH2022 badge and Tanmatsu.
const (
	DefaultVendorID  = gousb.ID(0x16d0)
	DefaultProductID = gousb.ID(0x0f9a)
)

// USB transports frames over a pair of USB bulk endpoints. It doesn't know
// the endpoint numbers up front, so once the target interface is claimed it
// scans the interface's endpoint descriptors for the first OUT and first IN
// bulk endpoint rather than assuming fixed numbers.
type USB struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
	readCh chan []byte
}

// OpenUSB opens the first device matching vid/pid and claims interfaceNum
// on it.
func OpenUSB(vid, pid gousb.ID, interfaceNum int) (*USB, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		ctx.Close()
		return nil, errors.Annotatef(err, "opening USB device %s:%s", vid, pid)
	}
	if dev == nil {
		ctx.Close()
		return nil, errors.Errorf("USB device %s:%s not found", vid, pid)
	}

	activeCfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Annotate(err, "reading active USB configuration")
	}
	cfg, err := dev.Config(activeCfgNum)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, errors.Annotate(err, "setting USB configuration")
	}
	intf, err := cfg.Interface(interfaceNum, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, errors.Annotatef(err, "claiming USB interface %d", interfaceNum)
	}

	var outNum, inNum int
	var haveOut, haveIn bool
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionOut && !haveOut {
			outNum, haveOut = int(ep.Number), true
		}
		if ep.Direction == gousb.EndpointDirectionIn && !haveIn {
			inNum, haveIn = int(ep.Number), true
		}
	}
	if !haveOut || !haveIn {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, errors.New("USB interface has no bulk IN/OUT endpoint pair")
	}

	epOut, err := intf.OutEndpoint(outNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, errors.Annotate(err, "opening OUT endpoint")
	}
	epIn, err := intf.InEndpoint(inNum)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, errors.Annotate(err, "opening IN endpoint")
	}

	glog.V(1).Infof("opened USB device %s:%s, interface %d, endpoints out=%d in=%d", vid, pid, interfaceNum, outNum, inNum)
	return &USB{ctx: ctx, dev: dev, cfg: cfg, intf: intf, epOut: epOut, epIn: epIn}, nil
}

func (u *USB) Write(data []byte) error {
	for len(data) > 0 {
		n, err := u.epOut.Write(data)
		if err != nil {
			return errors.Trace(err)
		}
		data = data[n:]
	}
	return nil
}

func (u *USB) Flush() error {
	return nil
}

// ReadAll issues short bulk reads against the IN endpoint until one times
// out or returns nothing, accumulating whatever arrived. A short per-read
// timeout is what lets this return promptly instead of blocking for a
// full-size transfer that may never come.
func (u *USB) ReadAll() ([]byte, error) {
	var out []byte
	buf := make([]byte, u.epIn.Desc.MaxPacketSize)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		n, err := u.epIn.ReadContext(ctx, buf)
		cancel()
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil || n == 0 {
			return out, nil
		}
	}
}

func (u *USB) Close() error {
	u.intf.Close()
	u.cfg.Close()
	if err := u.dev.Close(); err != nil {
		u.ctx.Close()
		return errors.Trace(err)
	}
	return errors.Trace(u.ctx.Close())
}
