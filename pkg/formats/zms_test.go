package formats

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSyntheticZMS creates a two-vertex, one-triangle mesh carrying the
// given attribute columns. withPool appends the v8 trailing field.
func buildSyntheticZMS(version int, format VertexFormat, withPool bool) []byte {
	var buf bytes.Buffer

	if version == 7 {
		writeCString(&buf, "ZMS0007")
	} else {
		writeCString(&buf, "ZMS0008")
	}

	writeI32(&buf, int32(format))
	writeF32s(&buf, -1, -2, -3) // bbox min
	writeF32s(&buf, 1, 2, 3)    // bbox max

	writeI16(&buf, 2) // bone remap table
	writeI16(&buf, 4)
	writeI16(&buf, 7)

	writeI16(&buf, 2) // vertex count

	// Attribute-major: a full pass per enabled column.
	if format.Has(VertexPosition) {
		writeF32s(&buf, 1, 2, 3)
		writeF32s(&buf, 4, 5, 6)
	}
	if format.Has(VertexNormal) {
		writeF32s(&buf, 0, 1, 0)
		writeF32s(&buf, 1, 0, 0)
	}
	if format.Has(VertexColor) {
		writeF32s(&buf, 1, 0, 0, 0.5)
		writeF32s(&buf, 0, 1, 0, 1)
	}
	if format.BonesEnabled() {
		for v := 0; v < 2; v++ {
			writeF32s(&buf, 1, 0, 0, 0)
			writeI16(&buf, int16(v))
			writeI16(&buf, 0)
			writeI16(&buf, 0)
			writeI16(&buf, 0)
		}
	}
	if format.Has(VertexTangent) {
		writeF32s(&buf, 0, 0, 1)
		writeF32s(&buf, 0, 0, 1)
	}
	for layer, bit := range []VertexFormat{VertexUV1, VertexUV2, VertexUV3, VertexUV4} {
		if !format.Has(bit) {
			continue
		}
		writeF32s(&buf, float32(layer), 0.25)
		writeF32s(&buf, float32(layer), 0.75)
	}

	writeI16(&buf, 1) // triangles
	writeI16(&buf, 0)
	writeI16(&buf, 1)
	writeI16(&buf, 0)

	writeI16(&buf, 1) // materials
	writeI16(&buf, 3)

	writeI16(&buf, 2) // strips
	writeI16(&buf, 0)
	writeI16(&buf, 1)

	if version >= 8 && withPool {
		writeI16(&buf, 9)
	}

	return buf.Bytes()
}

func TestParseZMS_InvalidIdentifier(t *testing.T) {
	var buf bytes.Buffer
	writeCString(&buf, "ZMS0006")
	writeI32(&buf, 0)

	zms, err := ParseZMS(buf.Bytes())
	assert.ErrorIs(t, err, ErrInvalidZMSIdentifier)
	assert.Nil(t, zms)
}

func TestParseZMS_Version7Full(t *testing.T) {
	format := VertexPosition | VertexNormal | VertexColor |
		VertexBoneWeight | VertexBoneIndex | VertexTangent | VertexUV1
	zms, err := ParseZMS(buildSyntheticZMS(7, format, false))
	require.NoError(t, err)

	assert.Equal(t, ZMSVersion7, zms.Version)
	assert.Equal(t, format, zms.Format)
	assert.Equal(t, mgl32.Vec3{-1, -2, -3}, zms.BoundingBox.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, zms.BoundingBox.Max)
	assert.Equal(t, []int16{4, 7}, zms.Bones)

	require.Len(t, zms.Vertices, 2)
	v0 := zms.Vertices[0]
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v0.Position) // no unit scaling for meshes
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, v0.Normal)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, v0.Color)
	assert.Equal(t, float32(0.5), v0.Alpha)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 0}, v0.BoneWeights)
	assert.Equal(t, [4]int16{0, 0, 0, 0}, v0.BoneIndices)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, v0.Tangent)
	assert.Equal(t, mgl32.Vec2{0, 0.25}, v0.UVs[0])

	v1 := zms.Vertices[1]
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, v1.Position)
	assert.Equal(t, [4]int16{1, 0, 0, 0}, v1.BoneIndices)

	assert.Equal(t, [][3]int16{{0, 1, 0}}, zms.Triangles)
	assert.Equal(t, []int16{3}, zms.Materials)
	assert.Equal(t, []int16{0, 1}, zms.Strips)
	assert.Equal(t, int16(0), zms.Pool) // v7 never reads a pool
}

func TestParseZMS_FieldIsolation(t *testing.T) {
	zms, err := ParseZMS(buildSyntheticZMS(7, VertexPosition|VertexUV2, false))
	require.NoError(t, err)

	for _, v := range zms.Vertices {
		assert.NotEqual(t, mgl32.Vec3{}, v.Position)
		assert.NotEqual(t, mgl32.Vec2{}, v.UVs[1])

		assert.Equal(t, mgl32.Vec3{}, v.Normal)
		assert.Equal(t, mgl32.Vec3{}, v.Color)
		assert.Equal(t, float32(0), v.Alpha)
		assert.Equal(t, mgl32.Vec4{}, v.BoneWeights)
		assert.Equal(t, [4]int16{}, v.BoneIndices)
		assert.Equal(t, mgl32.Vec3{}, v.Tangent)
		assert.Equal(t, mgl32.Vec2{}, v.UVs[0])
		assert.Equal(t, mgl32.Vec2{}, v.UVs[2])
		assert.Equal(t, mgl32.Vec2{}, v.UVs[3])
	}
}

func TestParseZMS_BonePassNeedsBothBits(t *testing.T) {
	// Weight bit without index bit: no skinning pass on the wire.
	zms, err := ParseZMS(buildSyntheticZMS(7, VertexPosition|VertexBoneWeight, false))
	require.NoError(t, err)
	for _, v := range zms.Vertices {
		assert.Equal(t, mgl32.Vec4{}, v.BoneWeights)
	}
}

func TestParseZMS_PoolLenient(t *testing.T) {
	full := buildSyntheticZMS(8, VertexPosition, true)

	// Pool present.
	zms, err := ParseZMS(full)
	require.NoError(t, err)
	assert.Equal(t, int16(9), zms.Pool)

	// Truncated exactly where the pool would begin: pool defaults to 0.
	zms, err = ParseZMS(full[:len(full)-2])
	require.NoError(t, err)
	assert.Equal(t, int16(0), zms.Pool)

	// One byte into the pool field: fatal.
	_, err = ParseZMS(full[:len(full)-1])
	assert.ErrorIs(t, err, ErrTruncated)

	// One byte earlier still, mid strip table: fatal.
	_, err = ParseZMS(full[:len(full)-3])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParseZMS_Version7NeverReadsPool(t *testing.T) {
	data := buildSyntheticZMS(7, VertexPosition, false)
	data = append(data, 0x09, 0x00) // trailing bytes a v7 mesh must ignore

	zms, err := ParseZMS(data)
	require.NoError(t, err)
	assert.Equal(t, int16(0), zms.Pool)
}

func TestZMS_RoundTrip(t *testing.T) {
	everything := VertexPosition | VertexNormal | VertexColor |
		VertexBoneWeight | VertexBoneIndex | VertexTangent |
		VertexUV1 | VertexUV2 | VertexUV3 | VertexUV4

	cases := []struct {
		name    string
		version int
		format  VertexFormat
		pool    bool
	}{
		{"v7 everything", 7, everything, false},
		{"v8 everything", 8, everything, true},
		{"v8 sparse", 8, VertexPosition | VertexUV1, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			original := buildSyntheticZMS(tc.version, tc.format, tc.pool)

			zms, err := ParseZMS(original)
			require.NoError(t, err)

			encoded, err := zms.Encode()
			require.NoError(t, err)
			assert.Equal(t, original, encoded)
		})
	}
}

func TestZMS_EncodeAlwaysWritesPool(t *testing.T) {
	// A v8 mesh decoded from a pool-truncated file still writes the field.
	truncated := buildSyntheticZMS(8, VertexPosition, false)

	zms, err := ParseZMS(truncated)
	require.NoError(t, err)

	encoded, err := zms.Encode()
	require.NoError(t, err)
	assert.Equal(t, len(truncated)+2, len(encoded))
	assert.Equal(t, []byte{0, 0}, encoded[len(encoded)-2:])
}

func TestVertexFormat_BonesEnabled(t *testing.T) {
	assert.True(t, (VertexBoneWeight | VertexBoneIndex).BonesEnabled())
	assert.False(t, VertexBoneWeight.BonesEnabled())
	assert.False(t, VertexBoneIndex.BonesEnabled())
}

func TestVertexFormat_String(t *testing.T) {
	assert.Equal(t, "position|uv2", (VertexPosition | VertexUV2).String())
	assert.Equal(t, "none", VertexFormat(0).String())
}
