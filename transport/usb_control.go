package transport

import (
	"github.com/google/gousb"
	"github.com/juju/errors"
)

// Vendor-specific control requests supported by badges speaking Badgelink
// over USB — shared by the MCH2022 badge and Tanmatsu, and unrelated to the
// Badgelink frame protocol itself, which runs over the bulk endpoints
// opened by OpenUSB.
const (
	reqState        = 0x22
	reqReset        = 0x23
	reqBaudRate     = 0x24
	reqMode         = 0x25
	reqModeGet      = 0x26
	reqFwVersionGet = 0x27
)

// USB control request type bytes for a class-specific request addressed to
// an interface (USB 2.0 spec table 9-2): direction bit | type=class (0x20) |
// recipient=interface (0x01). Spelled out numerically rather than via
// gousb's bmRequestType helpers, since their exact exported names vary
// across gousb versions.
const (
	ctrlTypeClassInterfaceOut = uint8(0x00 | 0x20 | 0x01)
	ctrlTypeClassInterfaceIn  = uint8(0x80 | 0x20 | 0x01)
)

// DeviceControl exposes the badge's out-of-band USB control requests: these
// bypass the Badgelink frame protocol entirely and work even when the badge
// isn't running firmware capable of speaking it (e.g. immediately after a
// USB reset, before the bootloader frame handler has come up).
type DeviceControl struct {
	dev *gousb.Device
}

// NewDeviceControl wraps an already-open *gousb.Device for control requests.
// It's independent of USB (the bulk-endpoint Transport), since the control
// pipe needs only the device handle, not a claimed bulk interface.
func NewDeviceControl(dev *gousb.Device) *DeviceControl {
	return &DeviceControl{dev: dev}
}

// GetState reads the badge's current run state.
func (d *DeviceControl) GetState() (byte, error) {
	buf := make([]byte, 1)
	if _, err := d.dev.Control(ctrlTypeClassInterfaceIn, reqState, 0, 0, buf); err != nil {
		return 0, errors.Annotate(err, "reading badge state")
	}
	return buf[0], nil
}

// Reset asks the badge to reset.
func (d *DeviceControl) Reset() error {
	_, err := d.dev.Control(ctrlTypeClassInterfaceOut, reqReset, 0, 0, nil)
	return errors.Annotate(err, "resetting badge")
}

// SetBaudRate reprograms the badge's serial-over-USB baud rate.
func (d *DeviceControl) SetBaudRate(baud uint32) error {
	buf := []byte{byte(baud), byte(baud >> 8), byte(baud >> 16), byte(baud >> 24)}
	_, err := d.dev.Control(ctrlTypeClassInterfaceOut, reqBaudRate, 0, 0, buf)
	return errors.Annotate(err, "setting badge baud rate")
}

// SetMode switches the badge between its operating modes (e.g. app runtime
// vs. Badgelink bootloader mode).
func (d *DeviceControl) SetMode(mode byte) error {
	_, err := d.dev.Control(ctrlTypeClassInterfaceOut, reqMode, uint16(mode), 0, nil)
	return errors.Annotate(err, "setting badge mode")
}

// GetMode reads the badge's current operating mode.
func (d *DeviceControl) GetMode() (byte, error) {
	buf := make([]byte, 1)
	if _, err := d.dev.Control(ctrlTypeClassInterfaceIn, reqModeGet, 0, 0, buf); err != nil {
		return 0, errors.Annotate(err, "reading badge mode")
	}
	return buf[0], nil
}

// FirmwareVersion reads the badge's firmware version string.
func (d *DeviceControl) FirmwareVersion() (string, error) {
	buf := make([]byte, 64)
	n, err := d.dev.Control(ctrlTypeClassInterfaceIn, reqFwVersionGet, 0, 0, buf)
	if err != nil {
		return "", errors.Annotate(err, "reading badge firmware version")
	}
	return string(buf[:n]), nil
}
