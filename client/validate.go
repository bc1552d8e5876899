package client

import (
	"strings"

	"github.com/mongoose-os/badgelink/conn"
	"github.com/mongoose-os/badgelink/proto"
)

// Field size limits the badge enforces; the facade rejects anything that
// would overflow them before a single byte reaches the wire, since the wire
// codec's length prefixes can't represent an oversized field without
// silently truncating or wrapping it.
const (
	maxNvsNameLen    = 15
	maxNvsStringLen  = 4095
	maxNvsBlobLen    = 4096
	maxAppfsSlugLen  = 47
	maxAppfsTitleLen = 63
	maxAppArgLen     = 127
	maxFsPathLen     = 1023
)

// validateField rejects a string field containing an embedded NUL or longer
// than maxLen bytes.
func validateField(name, s string, maxLen int) error {
	if strings.IndexByte(s, 0) >= 0 {
		return conn.NewInvalidArgumentError("%s contains a NUL byte", name)
	}
	if len(s) > maxLen {
		return conn.NewInvalidArgumentError("%s is %d bytes, exceeds the %d-byte limit", name, len(s), maxLen)
	}
	return nil
}

// validateOptionalField is validateField but treats an empty s as valid,
// for fields like an optional NVS namespace filter.
func validateOptionalField(name, s string, maxLen int) error {
	if s == "" {
		return nil
	}
	return validateField(name, s, maxLen)
}

// validateNvsValue rejects an NvsValue whose string/blob payload overflows
// the badge's size limits, or whose string payload contains a NUL byte.
func validateNvsValue(v proto.NvsValue) error {
	switch v.Type {
	case proto.NvsValueString:
		if len(v.Blob) > maxNvsStringLen {
			return conn.NewInvalidArgumentError("NVS string value is %d bytes, exceeds the %d-byte limit", len(v.Blob), maxNvsStringLen)
		}
		for _, b := range v.Blob {
			if b == 0 {
				return conn.NewInvalidArgumentError("NVS string value contains a NUL byte")
			}
		}
	case proto.NvsValueBlob:
		if len(v.Blob) > maxNvsBlobLen {
			return conn.NewInvalidArgumentError("NVS blob value is %d bytes, exceeds the %d-byte limit", len(v.Blob), maxNvsBlobLen)
		}
	}
	return nil
}
