package formats

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rose-go/pkg/encoding"
)

// Fixture helpers shared by the format tests. They deliberately build bytes
// with encoding/binary instead of the Writer under test.

func writeI16(buf *bytes.Buffer, v int16) {
	binary.Write(buf, binary.LittleEndian, v)
}

func writeI32(buf *bytes.Buffer, v int32) {
	binary.Write(buf, binary.LittleEndian, v)
}

func writeF32(buf *bytes.Buffer, v float32) {
	binary.Write(buf, binary.LittleEndian, v)
}

func writeF32s(buf *bytes.Buffer, vs ...float32) {
	for _, v := range vs {
		writeF32(buf, v)
	}
}

func writeCString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func TestReader_Scalars(t *testing.T) {
	var buf bytes.Buffer
	writeI16(&buf, -7)
	writeI32(&buf, 123456)
	writeF32(&buf, 2.5)

	r := NewReader(buf.Bytes())

	i16, err := r.I16()
	require.NoError(t, err)
	assert.Equal(t, int16(-7), i16)

	i32, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(123456), i32)

	f32, err := r.F32()
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), f32)
	assert.Equal(t, 0, r.Len())
}

func TestReader_ScalarTruncated(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03}) // 3 bytes, int32 needs 4
	_, err := r.I32()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReader_Quat_ScalarFirst(t *testing.T) {
	var buf bytes.Buffer
	writeF32s(&buf, 1, 2, 3, 4) // w,x,y,z on the wire

	r := NewReader(buf.Bytes())
	q, err := r.Quat()
	require.NoError(t, err)
	assert.Equal(t, float32(1), q.W)
	assert.Equal(t, mgl32.Vec3{2, 3, 4}, q.V)
}

func TestReader_ColorAlpha(t *testing.T) {
	var buf bytes.Buffer
	writeF32s(&buf, 0.25, 0.5, 0.75, 0.125)

	r := NewReader(buf.Bytes())
	color, alpha, err := r.ColorAlpha()
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0.25, 0.5, 0.75}, color)
	assert.Equal(t, float32(0.125), alpha)
}

func TestReader_String_Terminated(t *testing.T) {
	var buf bytes.Buffer
	writeCString(&buf, "b1_pelvis")
	writeI32(&buf, 42)

	r := NewReader(buf.Bytes())
	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "b1_pelvis", s)

	// Terminator consumed, cursor lands on the next field.
	v, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestReader_String_Unterminated(t *testing.T) {
	r := NewReader([]byte("no terminator here"))
	_, err := r.String()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReader_FixedString_BadEncoding(t *testing.T) {
	// 0xB0 is an EUC-KR lead byte with no trail byte behind it.
	r := NewReader([]byte{0xB0})
	_, err := r.FixedString(1)
	assert.ErrorIs(t, err, encoding.ErrBadEncoding)
}

func TestWriter_ReaderRoundTrip_Korean(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.String("뼈대01"))
	w.I16(9)
	w.Vec3(mgl32.Vec3{1, 2, 3})
	w.Vec4I16([4]int16{4, 3, 2, 1})

	r := NewReader(w.Bytes())

	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "뼈대01", s)

	i16, err := r.I16()
	require.NoError(t, err)
	assert.Equal(t, int16(9), i16)

	v, err := r.Vec3()
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v)

	iv, err := r.Vec4I16()
	require.NoError(t, err)
	assert.Equal(t, [4]int16{4, 3, 2, 1}, iv)
	assert.Equal(t, 0, r.Len())
}

func TestWriter_FixedString_WidthMismatch(t *testing.T) {
	w := NewWriter()
	err := w.FixedString("ZMD0002", 8) // encodes to 7 bytes
	assert.ErrorIs(t, err, encoding.ErrBadEncoding)

	err = w.FixedString("ZMD0002", 7)
	assert.NoError(t, err)
	assert.Equal(t, []byte("ZMD0002"), w.Bytes())
}

func TestWriter_String_Unencodable(t *testing.T) {
	w := NewWriter()
	err := w.String("bone🦴")
	assert.ErrorIs(t, err, encoding.ErrBadEncoding)
}

func TestReader_I32OrEOF(t *testing.T) {
	// Clean EOF: default substituted, no error.
	r := NewReader(nil)
	v, err := r.i32OrEOF(0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)

	// Value present: read as usual.
	var buf bytes.Buffer
	writeI32(&buf, 77)
	r = NewReader(buf.Bytes())
	v, err = r.i32OrEOF(0)
	require.NoError(t, err)
	assert.Equal(t, int32(77), v)

	// Partial field: fatal.
	r = NewReader([]byte{0x01, 0x02})
	_, err = r.i32OrEOF(0)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReader_I16OrEOF(t *testing.T) {
	r := NewReader(nil)
	v, err := r.i16OrEOF(0)
	require.NoError(t, err)
	assert.Equal(t, int16(0), v)

	r = NewReader([]byte{0x01})
	_, err = r.i16OrEOF(0)
	assert.ErrorIs(t, err, ErrTruncated)
}
