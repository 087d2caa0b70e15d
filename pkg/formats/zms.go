// ZMS (mesh) format parser and writer.
package formats

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ZMS format errors.
var (
	ErrInvalidZMSIdentifier = errors.New("invalid ZMS identifier: expected 'ZMS0007' or 'ZMS0008'")
)

// ZMSVersion is the mesh format revision.
type ZMSVersion int32

const (
	ZMSVersion7 ZMSVersion = 7
	ZMSVersion8 ZMSVersion = 8 // adds the trailing pool field
)

// HasPool reports whether this revision carries the trailing pool field.
func (v ZMSVersion) HasPool() bool {
	return v >= ZMSVersion8
}

// identifier returns the NUL-terminated token written at the start of the file.
func (v ZMSVersion) identifier() string {
	return fmt.Sprintf("ZMS000%d", v)
}

// VertexFormat is a bitmask selecting which vertex attribute columns a mesh
// stores. Bit 0 is unused in game data.
type VertexFormat int32

const (
	VertexPosition VertexFormat = 1 << (iota + 1)
	VertexNormal
	VertexColor
	VertexBoneWeight
	VertexBoneIndex
	VertexTangent
	VertexUV1
	VertexUV2
	VertexUV3
	VertexUV4
)

// Has reports whether all bits in mask are set.
func (f VertexFormat) Has(mask VertexFormat) bool {
	return f&mask == mask
}

// BonesEnabled reports whether the mesh stores skinning data. Weights and
// indices are written as one combined pass and only exist together.
func (f VertexFormat) BonesEnabled() bool {
	return f.Has(VertexBoneWeight | VertexBoneIndex)
}

// String lists the enabled attribute names in stream order.
func (f VertexFormat) String() string {
	var names []string
	for i := range vertexPasses {
		if vertexPasses[i].enabled(f) {
			names = append(names, vertexPasses[i].name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ZMSVertex holds every attribute a mesh can carry. Which columns hold real
// data is a property of the mesh's Format bitmask, not of individual
// vertices; disabled columns stay at their zero values. Bone indices point
// into the mesh's remap table, not directly into a skeleton.
type ZMSVertex struct {
	Position    mgl32.Vec3 // unscaled: mesh units equal file units
	Normal      mgl32.Vec3
	Color       mgl32.Vec3
	Alpha       float32
	BoneWeights mgl32.Vec4
	BoneIndices [4]int16
	Tangent     mgl32.Vec3
	UVs         [4]mgl32.Vec2
}

// BoundingBox is an axis-aligned bounding box in mesh units.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// ZMS is a parsed mesh. Vertex and triangle order match file order exactly:
// skinning and UV assignment downstream are keyed by list position, so the
// lists are never reordered.
type ZMS struct {
	Version     ZMSVersion
	Format      VertexFormat
	BoundingBox BoundingBox
	Bones       []int16 // remap table: vertex bone slot -> skeleton bone index
	Vertices    []ZMSVertex
	Triangles   [][3]int16 // vertex indices
	Materials   []int16    // conceptually one entry per triangle
	Strips      []int16    // opaque, consumer-interpreted
	Pool        int16      // v8 only, 0 otherwise
}

// vertexPass describes one optional attribute column. The layout is
// attribute-major: each enabled pass covers every vertex before the next
// pass begins. The table is ordered by stream position and drives both
// decode and encode.
type vertexPass struct {
	name    string
	enabled func(VertexFormat) bool
	read    func(*Reader, *ZMSVertex) error
	write   func(*Writer, *ZMSVertex)
}

var vertexPasses = []vertexPass{
	{
		name:    "position",
		enabled: func(f VertexFormat) bool { return f.Has(VertexPosition) },
		read: func(r *Reader, v *ZMSVertex) error {
			p, err := r.Vec3()
			if err != nil {
				return err
			}
			v.Position = p
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) { w.Vec3(v.Position) },
	},
	{
		name:    "normal",
		enabled: func(f VertexFormat) bool { return f.Has(VertexNormal) },
		read: func(r *Reader, v *ZMSVertex) error {
			n, err := r.Vec3()
			if err != nil {
				return err
			}
			v.Normal = n
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) { w.Vec3(v.Normal) },
	},
	{
		name:    "color",
		enabled: func(f VertexFormat) bool { return f.Has(VertexColor) },
		read: func(r *Reader, v *ZMSVertex) error {
			color, alpha, err := r.ColorAlpha()
			if err != nil {
				return err
			}
			v.Color, v.Alpha = color, alpha
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) { w.ColorAlpha(v.Color, v.Alpha) },
	},
	{
		name:    "bones",
		enabled: VertexFormat.BonesEnabled,
		read: func(r *Reader, v *ZMSVertex) error {
			weights, err := r.Vec4()
			if err != nil {
				return err
			}
			indices, err := r.Vec4I16()
			if err != nil {
				return err
			}
			v.BoneWeights, v.BoneIndices = weights, indices
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) {
			w.Vec4(v.BoneWeights)
			w.Vec4I16(v.BoneIndices)
		},
	},
	{
		name:    "tangent",
		enabled: func(f VertexFormat) bool { return f.Has(VertexTangent) },
		read: func(r *Reader, v *ZMSVertex) error {
			t, err := r.Vec3()
			if err != nil {
				return err
			}
			v.Tangent = t
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) { w.Vec3(v.Tangent) },
	},
	uvVertexPass(VertexUV1, "uv1", 0),
	uvVertexPass(VertexUV2, "uv2", 1),
	uvVertexPass(VertexUV3, "uv3", 2),
	uvVertexPass(VertexUV4, "uv4", 3),
}

// uvVertexPass builds the pass entry for one of the four UV layers.
func uvVertexPass(bit VertexFormat, name string, layer int) vertexPass {
	return vertexPass{
		name:    name,
		enabled: func(f VertexFormat) bool { return f.Has(bit) },
		read: func(r *Reader, v *ZMSVertex) error {
			uv, err := r.Vec2()
			if err != nil {
				return err
			}
			v.UVs[layer] = uv
			return nil
		},
		write: func(w *Writer, v *ZMSVertex) { w.Vec2(v.UVs[layer]) },
	}
}

// ParseZMS parses ZMS mesh data from a byte slice.
func ParseZMS(data []byte) (*ZMS, error) {
	r := NewReader(data)

	identifier, err := r.String()
	if err != nil {
		return nil, fmt.Errorf("reading ZMS identifier: %w", err)
	}

	zms := &ZMS{}
	switch identifier {
	case "ZMS0007":
		zms.Version = ZMSVersion7
	case "ZMS0008":
		zms.Version = ZMSVersion8
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidZMSIdentifier, identifier)
	}

	format, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("reading vertex format: %w", err)
	}
	zms.Format = VertexFormat(format)

	if zms.BoundingBox.Min, err = r.Vec3(); err != nil {
		return nil, fmt.Errorf("reading bounding box min: %w", err)
	}
	if zms.BoundingBox.Max, err = r.Vec3(); err != nil {
		return nil, fmt.Errorf("reading bounding box max: %w", err)
	}

	boneCount, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("reading bone count: %w", err)
	}
	if boneCount < 0 {
		return nil, fmt.Errorf("%w: %d bones", ErrInvalidCount, boneCount)
	}
	for i := int16(0); i < boneCount; i++ {
		bone, err := r.I16()
		if err != nil {
			return nil, fmt.Errorf("reading bone %d: %w", i, err)
		}
		zms.Bones = append(zms.Bones, bone)
	}

	vertexCount, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("reading vertex count: %w", err)
	}
	if vertexCount < 0 {
		return nil, fmt.Errorf("%w: %d vertices", ErrInvalidCount, vertexCount)
	}
	zms.Vertices = make([]ZMSVertex, vertexCount)

	for p := range vertexPasses {
		pass := &vertexPasses[p]
		if !pass.enabled(zms.Format) {
			continue
		}
		for i := range zms.Vertices {
			if err := pass.read(r, &zms.Vertices[i]); err != nil {
				return nil, fmt.Errorf("reading %s of vertex %d: %w", pass.name, i, err)
			}
		}
	}

	triangleCount, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("reading triangle count: %w", err)
	}
	if triangleCount < 0 {
		return nil, fmt.Errorf("%w: %d triangles", ErrInvalidCount, triangleCount)
	}
	for i := int16(0); i < triangleCount; i++ {
		tri, err := r.Vec3I16()
		if err != nil {
			return nil, fmt.Errorf("reading triangle %d: %w", i, err)
		}
		zms.Triangles = append(zms.Triangles, tri)
	}

	materialCount, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("reading material count: %w", err)
	}
	if materialCount < 0 {
		return nil, fmt.Errorf("%w: %d materials", ErrInvalidCount, materialCount)
	}
	for i := int16(0); i < materialCount; i++ {
		mat, err := r.I16()
		if err != nil {
			return nil, fmt.Errorf("reading material %d: %w", i, err)
		}
		zms.Materials = append(zms.Materials, mat)
	}

	stripCount, err := r.I16()
	if err != nil {
		return nil, fmt.Errorf("reading strip count: %w", err)
	}
	if stripCount < 0 {
		return nil, fmt.Errorf("%w: %d strips", ErrInvalidCount, stripCount)
	}
	for i := int16(0); i < stripCount; i++ {
		strip, err := r.I16()
		if err != nil {
			return nil, fmt.Errorf("reading strip %d: %w", i, err)
		}
		zms.Strips = append(zms.Strips, strip)
	}

	if zms.Version.HasPool() {
		// Some v8 files end right before the pool field; an exactly
		// exhausted stream means pool 0, a partial read is still fatal.
		pool, err := r.i16OrEOF(0)
		if err != nil {
			return nil, fmt.Errorf("reading pool: %w", err)
		}
		zms.Pool = pool
	}

	return zms, nil
}

// ParseZMSFile parses a ZMS file from disk.
func ParseZMSFile(path string) (*ZMS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ZMS file: %w", err)
	}
	return ParseZMS(data)
}

// Encode serializes the mesh in the same section order and attribute-major
// layout the decoder reads. The pool field is always written for v8.
func (z *ZMS) Encode() ([]byte, error) {
	w := NewWriter()

	if err := w.String(z.Version.identifier()); err != nil {
		return nil, fmt.Errorf("encoding identifier: %w", err)
	}

	w.I32(int32(z.Format))
	w.Vec3(z.BoundingBox.Min)
	w.Vec3(z.BoundingBox.Max)

	w.I16(int16(len(z.Bones)))
	for _, bone := range z.Bones {
		w.I16(bone)
	}

	w.I16(int16(len(z.Vertices)))
	for p := range vertexPasses {
		pass := &vertexPasses[p]
		if !pass.enabled(z.Format) {
			continue
		}
		for i := range z.Vertices {
			pass.write(w, &z.Vertices[i])
		}
	}

	w.I16(int16(len(z.Triangles)))
	for _, tri := range z.Triangles {
		w.Vec3I16(tri)
	}

	w.I16(int16(len(z.Materials)))
	for _, mat := range z.Materials {
		w.I16(mat)
	}

	w.I16(int16(len(z.Strips)))
	for _, strip := range z.Strips {
		w.I16(strip)
	}

	if z.Version.HasPool() {
		w.I16(z.Pool)
	}

	return w.Bytes(), nil
}

// WriteFile encodes the mesh and writes it to disk. Nothing is written when
// encoding fails.
func (z *ZMS) WriteFile(path string) error {
	data, err := z.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
