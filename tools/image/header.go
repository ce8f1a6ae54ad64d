package image

import (
	"encoding/binary"
	"errors"

	"github.com/sigurn/crc8"
)

// Encoded header layout, all fields little endian:
//
//	0  magic "RT0\0"
//	4  header version
//	5  crc8 (MAXIM) over bytes 8..27
//	6  reserved, zero
//	8  payload length
//	12 load address
//	20 entry point
const (
	HeaderLen     = 28
	HeaderVersion = 1
)

const headerMagic = "RT0\x00"

var (
	ErrMagic    = errors.New("bad image magic")
	ErrVersion  = errors.New("unsupported header version")
	ErrChecksum = errors.New("header checksum mismatch")
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// A Header is prepended to the storage image so a first stage loader can
// validate the image before the startup copy loops run over it.
type Header struct {
	Version uint8
	Length  uint32 // payload size in bytes, header excluded
	Load    uint64 // flash address the payload is linked against
	Entry   uint64
}

func (h *Header) MarshalBinary() ([]byte, error) {
	if h.Version != HeaderVersion {
		return nil, ErrVersion
	}
	buf := make([]byte, HeaderLen)
	copy(buf, headerMagic)
	buf[4] = h.Version
	binary.LittleEndian.PutUint32(buf[8:], h.Length)
	binary.LittleEndian.PutUint64(buf[12:], h.Load)
	binary.LittleEndian.PutUint64(buf[20:], h.Entry)
	buf[5] = crc8.Checksum(buf[8:], crcTable)
	return buf, nil
}

func (h *Header) UnmarshalBinary(p []byte) error {
	if len(p) < HeaderLen || string(p[:4]) != headerMagic {
		return ErrMagic
	}
	if p[4] != HeaderVersion {
		return ErrVersion
	}
	if crc8.Checksum(p[8:HeaderLen], crcTable) != p[5] {
		return ErrChecksum
	}
	h.Version = p[4]
	h.Length = binary.LittleEndian.Uint32(p[8:])
	h.Load = binary.LittleEndian.Uint64(p[12:])
	h.Entry = binary.LittleEndian.Uint64(p[20:])
	return nil
}
