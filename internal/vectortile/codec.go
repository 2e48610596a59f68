package vectortile

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

const (
	tileFlagValid = 1 << 0

	itemFlagValid = 1 << 0
	itemFlag2D    = 1 << 1
)

var (
	ErrTruncated    = errors.New("vectortile: truncated buffer")
	ErrTrailingData = errors.New("vectortile: trailing bytes after last item")
)

var le = binary.LittleEndian

// MarshalBinary encodes the tile. Layout, little endian:
//
//	flags:u8 itemCount:u32
//	per item: idCount:u32 ids:i64[] pointCount:u32 (f32,f32)[]
//	          indexCount:u32 u16[] ringCount:u32 (ringLen:u32 u16[])[]
//	          centroidCount:u32 (f32,f32)[] flags:u8
func (t *Tile) MarshalBinary() ([]byte, error) {
	var flags uint8
	if t.valid {
		flags |= tileFlagValid
	}
	buf := make([]byte, 0, 5+len(t.items)*64)
	buf = append(buf, flags)
	buf = le.AppendUint32(buf, uint32(len(t.items)))
	for _, it := range t.items {
		ids := it.IDs()
		buf = le.AppendUint32(buf, uint32(len(ids)))
		for _, id := range ids {
			buf = le.AppendUint64(buf, uint64(id))
		}
		buf = appendPoints(buf, it.Points)
		buf = appendU16s(buf, it.Indices)
		buf = le.AppendUint32(buf, uint32(len(it.BorderIndices)))
		for _, ring := range it.BorderIndices {
			buf = appendU16s(buf, ring)
		}
		buf = appendPoints(buf, it.Centroids)
		var f uint8
		if it.Valid {
			f |= itemFlagValid
		}
		if it.Is2D {
			f |= itemFlag2D
		}
		buf = append(buf, f)
	}
	return buf, nil
}

// UnmarshalBinary replaces t with the decoded tile. On failure t is left
// untouched.
func (t *Tile) UnmarshalBinary(data []byte) error {
	r := reader{buf: data}
	flags := r.u8()
	count := r.u32()
	if r.err != nil {
		return r.err
	}
	// Every item takes at least 21 bytes; reject absurd counts before
	// allocating.
	if uint64(count)*21 > uint64(len(r.buf)) {
		return ErrTruncated
	}
	scratch := Tile{valid: flags&tileFlagValid != 0}
	if count > 0 {
		scratch.items = make([]Item, 0, count)
	}
	for i := uint32(0); i < count; i++ {
		var it Item
		n := r.count(8)
		for j := 0; j < n; j++ {
			it.AddID(int64(r.u64()))
		}
		it.Points = r.points()
		it.Indices = r.u16s()
		if rings := r.count(4); rings > 0 {
			it.BorderIndices = make([][]uint16, 0, rings)
			for j := 0; j < rings; j++ {
				it.BorderIndices = append(it.BorderIndices, r.u16s())
			}
		}
		it.Centroids = r.points()
		f := r.u8()
		it.Valid = f&itemFlagValid != 0
		it.Is2D = f&itemFlag2D != 0
		if r.err != nil {
			return errors.Wrapf(r.err, "item %d", i)
		}
		scratch.items = append(scratch.items, it)
	}
	if len(r.buf) != 0 {
		return ErrTrailingData
	}
	*t = scratch
	return nil
}

// Save writes the encoded tile to w.
func (t *Tile) Save(w io.Writer) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "write tile")
}

// Load reads r to the end and decodes it into t.
func (t *Tile) Load(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read tile")
	}
	return t.UnmarshalBinary(b)
}

func appendPoints(buf []byte, pts []SimplePoint) []byte {
	buf = le.AppendUint32(buf, uint32(len(pts)))
	for _, p := range pts {
		buf = le.AppendUint32(buf, math.Float32bits(p.X))
		buf = le.AppendUint32(buf, math.Float32bits(p.Y))
	}
	return buf
}

func appendU16s(buf []byte, vals []uint16) []byte {
	buf = le.AppendUint32(buf, uint32(len(vals)))
	for _, v := range vals {
		buf = le.AppendUint16(buf, v)
	}
	return buf
}

// reader consumes a buffer and remembers the first short read.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return le.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return le.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return le.Uint64(b)
	}
	return 0
}

// count reads a length prefix and checks that elemSize*count bytes remain.
func (r *reader) count(elemSize int) int {
	n := r.u32()
	if r.err != nil {
		return 0
	}
	if uint64(n)*uint64(elemSize) > uint64(len(r.buf)) {
		r.err = ErrTruncated
		return 0
	}
	return int(n)
}

func (r *reader) points() []SimplePoint {
	n := r.count(8)
	if n == 0 {
		return nil
	}
	out := make([]SimplePoint, n)
	for i := range out {
		out[i] = SimplePoint{X: math.Float32frombits(r.u32()), Y: math.Float32frombits(r.u32())}
	}
	return out
}

func (r *reader) u16s() []uint16 {
	n := r.count(2)
	if n == 0 {
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.u16()
	}
	return out
}
