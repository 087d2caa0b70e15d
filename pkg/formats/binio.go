package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rose-go/pkg/encoding"
)

// Shared codec errors.
var (
	ErrTruncated    = errors.New("truncated data")
	ErrInvalidCount = errors.New("invalid element count")
)

// Reader decodes little-endian primitives from an in-memory byte stream.
// All ROSE formats are little-endian with EUC-KR text.
type Reader struct {
	r *bytes.Reader
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return r.r.Len()
}

// I16 reads a little-endian int16.
func (r *Reader) I16() (int16, error) {
	var v int16
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: reading int16", ErrTruncated)
	}
	return v, nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	var v int32
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: reading int32", ErrTruncated)
	}
	return v, nil
}

// F32 reads a little-endian float32.
func (r *Reader) F32() (float32, error) {
	var v float32
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: reading float32", ErrTruncated)
	}
	return v, nil
}

// i16OrEOF reads an int16, except that a stream ending exactly at the field
// boundary yields def instead of an error. A read that consumed part of the
// field remains fatal. Used only at the documented lenient boundaries; do
// not reach for this elsewhere.
func (r *Reader) i16OrEOF(def int16) (int16, error) {
	var v int16
	err := binary.Read(r.r, binary.LittleEndian, &v)
	if err == nil {
		return v, nil
	}
	if err == io.EOF {
		return def, nil
	}
	return 0, fmt.Errorf("%w: reading int16", ErrTruncated)
}

// i32OrEOF is the int32 form of i16OrEOF.
func (r *Reader) i32OrEOF(def int32) (int32, error) {
	var v int32
	err := binary.Read(r.r, binary.LittleEndian, &v)
	if err == nil {
		return v, nil
	}
	if err == io.EOF {
		return def, nil
	}
	return 0, fmt.Errorf("%w: reading int32", ErrTruncated)
}

// FixedString reads exactly n bytes and decodes them as EUC-KR.
func (r *Reader) FixedString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", fmt.Errorf("%w: reading %d-byte string", ErrTruncated, n)
	}
	return encoding.DecodeEUCKR(buf)
}

// String reads bytes up to a NUL terminator and decodes them as EUC-KR.
// The terminator is consumed but not part of the result.
func (r *Reader) String() (string, error) {
	var raw []byte
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string", ErrTruncated)
		}
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}
	return encoding.DecodeEUCKR(raw)
}

// Vec2 reads two float32 as x,y.
func (r *Reader) Vec2() (mgl32.Vec2, error) {
	var v mgl32.Vec2
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return mgl32.Vec2{}, err
		}
		v[i] = f
	}
	return v, nil
}

// Vec3 reads three float32 as x,y,z.
func (r *Reader) Vec3() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

// Vec4 reads four float32 in file order.
func (r *Reader) Vec4() (mgl32.Vec4, error) {
	var v mgl32.Vec4
	for i := range v {
		f, err := r.F32()
		if err != nil {
			return mgl32.Vec4{}, err
		}
		v[i] = f
	}
	return v, nil
}

// Quat reads four float32 in w,x,y,z order. Rotations are the only
// four-float fields stored scalar-first.
func (r *Reader) Quat() (mgl32.Quat, error) {
	w, err := r.F32()
	if err != nil {
		return mgl32.Quat{}, err
	}
	x, err := r.F32()
	if err != nil {
		return mgl32.Quat{}, err
	}
	y, err := r.F32()
	if err != nil {
		return mgl32.Quat{}, err
	}
	z, err := r.F32()
	if err != nil {
		return mgl32.Quat{}, err
	}
	return mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}, nil
}

// Vec3I16 reads three little-endian int16.
func (r *Reader) Vec3I16() ([3]int16, error) {
	var v [3]int16
	for i := range v {
		n, err := r.I16()
		if err != nil {
			return [3]int16{}, err
		}
		v[i] = n
	}
	return v, nil
}

// Vec4I16 reads four little-endian int16.
func (r *Reader) Vec4I16() ([4]int16, error) {
	var v [4]int16
	for i := range v {
		n, err := r.I16()
		if err != nil {
			return [4]int16{}, err
		}
		v[i] = n
	}
	return v, nil
}

// ColorAlpha reads four float32: an r,g,b color and a separate alpha scalar.
func (r *Reader) ColorAlpha() (mgl32.Vec3, float32, error) {
	color, err := r.Vec3()
	if err != nil {
		return mgl32.Vec3{}, 0, err
	}
	alpha, err := r.F32()
	if err != nil {
		return mgl32.Vec3{}, 0, err
	}
	return color, alpha, nil
}

// Writer encodes little-endian primitives into an in-memory buffer.
// Scalar and vector writes cannot fail; string writes can, since EUC-KR
// does not cover all of Unicode.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded stream.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// I16 writes a little-endian int16.
func (w *Writer) I16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf.Write(b[:])
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// F32 writes a little-endian float32.
func (w *Writer) F32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf.Write(b[:])
}

// FixedString writes an EUC-KR string that must encode to exactly n bytes.
// There is no implicit padding or truncation.
func (w *Writer) FixedString(s string, n int) error {
	raw, err := encoding.EncodeEUCKR(s)
	if err != nil {
		return err
	}
	if len(raw) != n {
		return fmt.Errorf("%w: %q encodes to %d bytes, field is %d",
			encoding.ErrBadEncoding, s, len(raw), n)
	}
	w.buf.Write(raw)
	return nil
}

// String writes an EUC-KR encoded NUL-terminated string.
func (w *Writer) String(s string) error {
	raw, err := encoding.EncodeEUCKR(s)
	if err != nil {
		return err
	}
	w.buf.Write(raw)
	w.buf.WriteByte(0)
	return nil
}

// Vec2 writes two float32 as x,y.
func (w *Writer) Vec2(v mgl32.Vec2) {
	for _, f := range v {
		w.F32(f)
	}
}

// Vec3 writes three float32 as x,y,z.
func (w *Writer) Vec3(v mgl32.Vec3) {
	for _, f := range v {
		w.F32(f)
	}
}

// Vec4 writes four float32 in file order.
func (w *Writer) Vec4(v mgl32.Vec4) {
	for _, f := range v {
		w.F32(f)
	}
}

// Quat writes four float32 in w,x,y,z order, mirroring Reader.Quat.
func (w *Writer) Quat(q mgl32.Quat) {
	w.F32(q.W)
	w.F32(q.V[0])
	w.F32(q.V[1])
	w.F32(q.V[2])
}

// Vec3I16 writes three little-endian int16.
func (w *Writer) Vec3I16(v [3]int16) {
	for _, n := range v {
		w.I16(n)
	}
}

// Vec4I16 writes four little-endian int16.
func (w *Writer) Vec4I16(v [4]int16) {
	for _, n := range v {
		w.I16(n)
	}
}

// ColorAlpha writes an r,g,b color followed by a separate alpha scalar.
func (w *Writer) ColorAlpha(color mgl32.Vec3, alpha float32) {
	w.Vec3(color)
	w.F32(alpha)
}
