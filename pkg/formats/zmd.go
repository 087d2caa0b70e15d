// ZMD (skeleton) format parser and writer.
package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// ZMD format errors.
var (
	ErrInvalidZMDVersion = errors.New("invalid ZMD version: expected 'ZMD0002' or 'ZMD0003'")
)

// ZMDVersion is the skeleton format revision.
type ZMDVersion int32

const (
	ZMDVersion2 ZMDVersion = 2 // no rotation data, rotations default to identity
	ZMDVersion3 ZMDVersion = 3 // bones and dummies carry rest rotations
)

// HasRotation reports whether records of this revision carry a rest rotation.
func (v ZMDVersion) HasRotation() bool {
	return v >= ZMDVersion3
}

// token returns the 7-byte version token written at the start of the file.
func (v ZMDVersion) token() string {
	return fmt.Sprintf("ZMD000%d", v)
}

// ZMDBone is one node of the skinning hierarchy. Parent indexes the
// skeleton's bone list; bone 0 is the root and references itself.
// Positions are in meters, the file stores centimeters.
type ZMDBone struct {
	Parent   int32
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// ZMD is a parsed skeleton. Bone and dummy order match file order exactly:
// parent indices are positional and downstream consumers key on them, so
// the lists are never reordered.
type ZMD struct {
	Version ZMDVersion
	Bones   []ZMDBone
	Dummies []ZMDBone // attachment points parented to Bones, excluded from skinning
}

// ParseZMD parses ZMD skeleton data from a byte slice.
func ParseZMD(data []byte) (*ZMD, error) {
	r := NewReader(data)

	token, err := r.FixedString(7)
	if err != nil {
		return nil, fmt.Errorf("reading ZMD version token: %w", err)
	}

	zmd := &ZMD{}
	switch token {
	case "ZMD0002":
		zmd.Version = ZMDVersion2
	case "ZMD0003":
		zmd.Version = ZMDVersion3
	default:
		return nil, fmt.Errorf("%w: got %q", ErrInvalidZMDVersion, token)
	}

	boneCount, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("reading bone count: %w", err)
	}
	if boneCount < 0 {
		return nil, fmt.Errorf("%w: %d bones", ErrInvalidCount, boneCount)
	}

	zmd.Bones = make([]ZMDBone, 0, boneCount)
	for i := int32(0); i < boneCount; i++ {
		bone, err := parseZMDBone(r, zmd.Version, false)
		if err != nil {
			return nil, fmt.Errorf("parsing bone %d: %w", i, err)
		}
		zmd.Bones = append(zmd.Bones, bone)
	}

	// Plenty of shipped skeletons end right after the last bone. A stream
	// exactly exhausted here means no dummy section, not corruption; a
	// partial count is still fatal.
	dummyCount, err := r.i32OrEOF(0)
	if err != nil {
		return nil, fmt.Errorf("reading dummy count: %w", err)
	}
	if dummyCount < 0 {
		return nil, fmt.Errorf("%w: %d dummies", ErrInvalidCount, dummyCount)
	}

	for i := int32(0); i < dummyCount; i++ {
		dummy, err := parseZMDBone(r, zmd.Version, true)
		if err != nil {
			return nil, fmt.Errorf("parsing dummy %d: %w", i, err)
		}
		zmd.Dummies = append(zmd.Dummies, dummy)
	}

	return zmd, nil
}

// ParseZMDFile parses a ZMD file from disk.
func ParseZMDFile(path string) (*ZMD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ZMD file: %w", err)
	}
	return ParseZMD(data)
}

// parseZMDBone parses one bone or dummy record. Dummy records store the
// name before the parent index, bone records the other way around.
func parseZMDBone(r *Reader, version ZMDVersion, isDummy bool) (ZMDBone, error) {
	bone := ZMDBone{Rotation: mgl32.QuatIdent()}

	if isDummy {
		name, err := r.String()
		if err != nil {
			return ZMDBone{}, fmt.Errorf("reading name: %w", err)
		}
		bone.Name = name
	}

	parent, err := r.I32()
	if err != nil {
		return ZMDBone{}, fmt.Errorf("reading parent index: %w", err)
	}
	bone.Parent = parent

	if !isDummy {
		name, err := r.String()
		if err != nil {
			return ZMDBone{}, fmt.Errorf("reading name: %w", err)
		}
		bone.Name = name
	}

	pos, err := r.Vec3()
	if err != nil {
		return ZMDBone{}, fmt.Errorf("reading position: %w", err)
	}
	bone.Position = pos.Mul(1.0 / 100.0) // file stores centimeters

	if version.HasRotation() {
		rot, err := r.Quat()
		if err != nil {
			return ZMDBone{}, fmt.Errorf("reading rotation: %w", err)
		}
		bone.Rotation = rot
	}

	return bone, nil
}

// Encode serializes the skeleton. The dummy count is always written, even
// when zero: a missing dummy section is only ever a valid decode outcome.
func (z *ZMD) Encode() ([]byte, error) {
	w := NewWriter()

	if err := w.FixedString(z.Version.token(), 7); err != nil {
		return nil, fmt.Errorf("encoding version token: %w", err)
	}

	w.I32(int32(len(z.Bones)))
	for i := range z.Bones {
		if err := writeZMDBone(w, &z.Bones[i], z.Version, false); err != nil {
			return nil, fmt.Errorf("encoding bone %d: %w", i, err)
		}
	}

	w.I32(int32(len(z.Dummies)))
	for i := range z.Dummies {
		if err := writeZMDBone(w, &z.Dummies[i], z.Version, true); err != nil {
			return nil, fmt.Errorf("encoding dummy %d: %w", i, err)
		}
	}

	return w.Bytes(), nil
}

// WriteFile encodes the skeleton and writes it to disk. Nothing is written
// when encoding fails.
func (z *ZMD) WriteFile(path string) error {
	data, err := z.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// writeZMDBone mirrors parseZMDBone field for field.
func writeZMDBone(w *Writer, bone *ZMDBone, version ZMDVersion, isDummy bool) error {
	if isDummy {
		if err := w.String(bone.Name); err != nil {
			return err
		}
	}
	w.I32(bone.Parent)
	if !isDummy {
		if err := w.String(bone.Name); err != nil {
			return err
		}
	}
	w.Vec3(bone.Position.Mul(100)) // meters back to file centimeters
	if version.HasRotation() {
		w.Quat(bone.Rotation)
	}
	return nil
}

// Validate checks that parent indices are positional references: every bone
// after the root points at an earlier bone, the root at itself, and every
// dummy at a bone. Decode does not call this; shipped game data is
// occasionally sloppy and the codec must still round-trip it.
func (z *ZMD) Validate() error {
	for i, bone := range z.Bones {
		if i == 0 {
			if bone.Parent != 0 {
				return fmt.Errorf("root bone parent is %d, want 0", bone.Parent)
			}
			continue
		}
		if bone.Parent < 0 || int(bone.Parent) >= i {
			return fmt.Errorf("bone %d %q: parent %d does not reference an earlier bone",
				i, bone.Name, bone.Parent)
		}
	}
	for i, dummy := range z.Dummies {
		if dummy.Parent < 0 || int(dummy.Parent) >= len(z.Bones) {
			return fmt.Errorf("dummy %d %q: parent %d outside bone list",
				i, dummy.Name, dummy.Parent)
		}
	}
	return nil
}
