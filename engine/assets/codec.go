package assets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// HeaderSize is the size of the [u16 type][u16 version] prefix of every
// cached binary.
const HeaderSize = 4

var byteOrder = binary.LittleEndian

// EncodeAsset serialises data behind the header of its type.
func EncodeAsset(info *TypeInfo, data AssetData) ([]byte, error) {
	payload, err := data.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, HeaderSize, HeaderSize+len(payload))
	byteOrder.PutUint16(out[0:], info.ID)
	byteOrder.PutUint16(out[2:], data.Version())
	return append(out, payload...), nil
}

// DecodeAsset checks the header of raw against info and data and decodes the
// payload into data. A type or version mismatch returns ErrStaleAsset.
func DecodeAsset(info *TypeInfo, raw []byte, data AssetData) error {
	if len(raw) < HeaderSize {
		return fmt.Errorf("%w: truncated header", ErrStaleAsset)
	}
	typeID := byteOrder.Uint16(raw[0:])
	version := byteOrder.Uint16(raw[2:])
	if typeID != info.ID {
		return fmt.Errorf("%w: type %d, want %d", ErrStaleAsset, typeID, info.ID)
	}
	if version != data.Version() {
		return fmt.Errorf("%w: version %d, want %d", ErrStaleAsset, version, data.Version())
	}
	return data.UnmarshalBinary(raw[HeaderSize:])
}

// Encoder appends little endian fields to a buffer.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) U8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) U16(v uint16) {
	var b [2]byte
	byteOrder.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U32(v uint32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) I32(v int32) {
	e.U32(uint32(v))
}

func (e *Encoder) F32(v float32) {
	e.U32(math.Float32bits(v))
}

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
		return
	}
	e.U8(0)
}

// Blob writes a u32 length followed by b.
func (e *Encoder) Blob(b []byte) {
	e.U32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *Encoder) Str(s string) {
	e.Blob([]byte(s))
}

// Decoder reads fields written by Encoder. The first failure sticks and is
// reported by Err; later reads return zero values.
type Decoder struct {
	r   *bytes.Reader
	err error
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

func (d *Decoder) Err() error {
	return d.err
}

// Finish returns the sticky error, or an error when unread bytes remain.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes", d.r.Len())
	}
	return nil
}

func (d *Decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > d.r.Len() {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return nil
	}
	return b
}

func (d *Decoder) U8() uint8 {
	b := d.read(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) U16() uint16 {
	b := d.read(2)
	if b == nil {
		return 0
	}
	return byteOrder.Uint16(b)
}

func (d *Decoder) U32() uint32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return byteOrder.Uint32(b)
}

func (d *Decoder) I32() int32 {
	return int32(d.U32())
}

func (d *Decoder) F32() float32 {
	return math.Float32frombits(d.U32())
}

func (d *Decoder) Bool() bool {
	return d.U8() != 0
}

func (d *Decoder) Blob() []byte {
	n := d.U32()
	if d.err != nil {
		return nil
	}
	if int64(n) > int64(d.r.Len()) {
		d.err = errors.New("blob length exceeds remaining data")
		return nil
	}
	return d.read(int(n))
}

func (d *Decoder) Str() string {
	return string(d.Blob())
}
