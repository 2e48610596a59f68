package tilecache

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"geomap/internal/geo"
)

var keyPrefix = []byte("tile/")

const keyLen = 5 + 4 + 4 + 1 + 1

// encodeKey lays a key out so that byte order matches geo.Key.Compare:
// signed fields are offset into unsigned space, big-endian.
func encodeKey(k geo.Key) []byte {
	b := make([]byte, 0, keyLen)
	b = append(b, keyPrefix...)
	b = binary.BigEndian.AppendUint32(b, uint32(int32(k.X))^(1<<31))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(k.Y))^(1<<31))
	b = append(b, k.Z, uint8(k.CrossExtent)^0x80)
	return b
}

func decodeKey(b []byte) (geo.Key, error) {
	if len(b) != keyLen || string(b[:len(keyPrefix)]) != string(keyPrefix) {
		return geo.Key{}, errors.Newf("malformed tile key %x", b)
	}
	b = b[len(keyPrefix):]
	return geo.Key{
		X:           int(int32(binary.BigEndian.Uint32(b[0:4]) ^ (1 << 31))),
		Y:           int(int32(binary.BigEndian.Uint32(b[4:8]) ^ (1 << 31))),
		Z:           b[8],
		CrossExtent: int8(b[9] ^ 0x80),
	}, nil
}

const (
	valueRaw  byte = 0
	valueZstd byte = 1
)

func (c *Cache) encode(data []byte) []byte {
	if c.enc == nil {
		return append([]byte{valueRaw}, data...)
	}
	return c.enc.EncodeAll(data, []byte{valueZstd})
}

func (c *Cache) decode(val []byte) ([]byte, error) {
	if len(val) == 0 {
		return nil, errors.New("empty tile value")
	}
	switch val[0] {
	case valueRaw:
		return val[1:], nil
	case valueZstd:
		out, err := c.dec.DecodeAll(val[1:], nil)
		return out, errors.Wrap(err, "zstd")
	}
	return nil, errors.Newf("unknown tile value encoding %d", val[0])
}
