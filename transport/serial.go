package transport

import (
	"github.com/cesanta/go-serial/serial"
	"github.com/golang/glog"
	"github.com/juju/errors"
)

// Serial transports frames over a serial port. It opens the port with fixed
// 8N1 framing and no flow control — the Badgelink wire protocol has no
// notion of XON/XOFF or hardware handshaking.
type Serial struct {
	port serial.Serial
}

// OpenSerial opens portName at baudRate.
func OpenSerial(portName string, baudRate uint) (*Serial, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 100,
		MinimumReadSize:       0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Annotatef(err, "opening serial port %q", portName)
	}
	glog.V(1).Infof("opened serial port %s at %d baud", portName, baudRate)
	return &Serial{port: port}, nil
}

func (s *Serial) Write(data []byte) error {
	for len(data) > 0 {
		n, err := s.port.Write(data)
		if err != nil {
			return errors.Trace(err)
		}
		data = data[n:]
	}
	return nil
}

func (s *Serial) Flush() error {
	return nil
}

func (s *Serial) ReadAll() ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	// A single read with the port's configured inter-character timeout is
	// enough to pick up whatever has arrived so far without blocking for a
	// specific amount of data.
	n, err := s.port.Read(buf)
	if n > 0 {
		out = append(out, buf[:n]...)
	}
	if err != nil && !isSerialTimeout(err) {
		return out, errors.Trace(err)
	}
	return out, nil
}

func isSerialTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func (s *Serial) Close() error {
	return errors.Trace(s.port.Close())
}
