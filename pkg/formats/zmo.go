// ZMO (animation) format parser and writer.
package formats

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// TrackType is a bitmask of the payload kinds carried by a channel.
// Bit 0 is unused in game data.
type TrackType int32

const (
	TrackPosition TrackType = 1 << (iota + 1)
	TrackRotation
	TrackNormal
	TrackAlpha
	TrackUV1
	TrackUV2
	TrackUV3
	TrackUV4
	TrackTextureAnim
	TrackScale
)

// Has reports whether all bits in mask are set.
func (t TrackType) Has(mask TrackType) bool {
	return t&mask == mask
}

// String lists the enabled track names in stream order.
func (t TrackType) String() string {
	var names []string
	for _, f := range trackFields {
		if t.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ZMOChannel is one animation track. ID indexes the consuming skeleton's
// pose-bone list and is resolved by the caller, never validated here.
// Each enabled payload kind holds one entry per frame.
type ZMOChannel struct {
	Type TrackType
	ID   int32

	Positions    []mgl32.Vec3 // meters, the file stores centimeters
	Rotations    []mgl32.Quat
	Normals      []mgl32.Vec3
	Alphas       []float32
	UVs          [4][]mgl32.Vec2
	TextureAnims []float32
	Scales       []float32
}

// ZMO is a parsed animation. Channel order matches the descriptor table in
// the file, and every frame's payload block iterates channels in that order.
type ZMO struct {
	Version    string // raw 8-byte token, stored verbatim and never checked
	FPS        int32
	FrameCount int32
	Channels   []ZMOChannel
}

// trackField describes one payload kind: its bitmask bit, its name for
// diagnostics, and its per-frame reader/writer. The table is ordered by
// stream position and drives both decode and encode, so the two can never
// disagree on layout. Position and rotation are mutually exclusive on the
// wire: a channel with both bits set stores positions only. That matches
// the original reader and must not be "fixed", or existing assets break.
type trackField struct {
	bit   TrackType
	name  string
	read  func(*Reader, *ZMOChannel) error
	write func(*Writer, *ZMOChannel, int)
	count func(*ZMOChannel) int
}

var trackFields = []trackField{
	{
		bit:  TrackPosition,
		name: "position",
		read: func(r *Reader, c *ZMOChannel) error {
			v, err := r.Vec3()
			if err != nil {
				return err
			}
			c.Positions = append(c.Positions, v.Mul(1.0/100.0))
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.Vec3(c.Positions[frame].Mul(100))
		},
		count: func(c *ZMOChannel) int { return len(c.Positions) },
	},
	{
		bit:  TrackRotation,
		name: "rotation",
		read: func(r *Reader, c *ZMOChannel) error {
			q, err := r.Quat()
			if err != nil {
				return err
			}
			c.Rotations = append(c.Rotations, q)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.Quat(c.Rotations[frame])
		},
		count: func(c *ZMOChannel) int { return len(c.Rotations) },
	},
	{
		bit:  TrackNormal,
		name: "normal",
		read: func(r *Reader, c *ZMOChannel) error {
			v, err := r.Vec3()
			if err != nil {
				return err
			}
			c.Normals = append(c.Normals, v)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.Vec3(c.Normals[frame])
		},
		count: func(c *ZMOChannel) int { return len(c.Normals) },
	},
	{
		bit:  TrackAlpha,
		name: "alpha",
		read: func(r *Reader, c *ZMOChannel) error {
			a, err := r.F32()
			if err != nil {
				return err
			}
			c.Alphas = append(c.Alphas, a)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.F32(c.Alphas[frame])
		},
		count: func(c *ZMOChannel) int { return len(c.Alphas) },
	},
	uvTrackField(TrackUV1, "uv1", 0),
	uvTrackField(TrackUV2, "uv2", 1),
	uvTrackField(TrackUV3, "uv3", 2),
	uvTrackField(TrackUV4, "uv4", 3),
	{
		bit:  TrackTextureAnim,
		name: "textureanim",
		read: func(r *Reader, c *ZMOChannel) error {
			f, err := r.F32()
			if err != nil {
				return err
			}
			c.TextureAnims = append(c.TextureAnims, f)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.F32(c.TextureAnims[frame])
		},
		count: func(c *ZMOChannel) int { return len(c.TextureAnims) },
	},
	{
		bit:  TrackScale,
		name: "scale",
		read: func(r *Reader, c *ZMOChannel) error {
			s, err := r.F32()
			if err != nil {
				return err
			}
			c.Scales = append(c.Scales, s)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.F32(c.Scales[frame])
		},
		count: func(c *ZMOChannel) int { return len(c.Scales) },
	},
}

// uvTrackField builds the table entry for one of the four UV layers.
func uvTrackField(bit TrackType, name string, layer int) trackField {
	return trackField{
		bit:  bit,
		name: name,
		read: func(r *Reader, c *ZMOChannel) error {
			v, err := r.Vec2()
			if err != nil {
				return err
			}
			c.UVs[layer] = append(c.UVs[layer], v)
			return nil
		},
		write: func(w *Writer, c *ZMOChannel, frame int) {
			w.Vec2(c.UVs[layer][frame])
		},
		count: func(c *ZMOChannel) int { return len(c.UVs[layer]) },
	}
}

// suppressed reports whether this payload kind is skipped for the channel
// even though its bit is set. Only rotation is ever suppressed, when the
// position bit wins.
func (f *trackField) suppressed(t TrackType) bool {
	return f.bit == TrackRotation && t.Has(TrackPosition)
}

// ParseZMO parses ZMO animation data from a byte slice.
func ParseZMO(data []byte) (*ZMO, error) {
	r := NewReader(data)

	// The game ships files with more than one token and the client never
	// checks it, so neither do we.
	version, err := r.FixedString(8)
	if err != nil {
		return nil, fmt.Errorf("reading ZMO version token: %w", err)
	}

	fps, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("reading fps: %w", err)
	}
	frameCount, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("reading frame count: %w", err)
	}
	channelCount, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("reading channel count: %w", err)
	}
	if frameCount < 0 || channelCount < 0 {
		return nil, fmt.Errorf("%w: %d frames, %d channels", ErrInvalidCount, frameCount, channelCount)
	}

	zmo := &ZMO{
		Version:    version,
		FPS:        fps,
		FrameCount: frameCount,
		Channels:   make([]ZMOChannel, 0, channelCount),
	}

	for i := int32(0); i < channelCount; i++ {
		trackType, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("reading channel %d type: %w", i, err)
		}
		id, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("reading channel %d track id: %w", i, err)
		}
		zmo.Channels = append(zmo.Channels, ZMOChannel{Type: TrackType(trackType), ID: id})
	}

	// Payloads are packed frame-major, channels in descriptor order.
	for frame := int32(0); frame < frameCount; frame++ {
		for i := range zmo.Channels {
			if err := readChannelFrame(r, &zmo.Channels[i]); err != nil {
				return nil, fmt.Errorf("frame %d channel %d: %w", frame, i, err)
			}
		}
	}

	return zmo, nil
}

// ParseZMOFile parses a ZMO file from disk.
func ParseZMOFile(path string) (*ZMO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ZMO file: %w", err)
	}
	return ParseZMO(data)
}

// readChannelFrame decodes one frame's payload for a single channel.
func readChannelFrame(r *Reader, c *ZMOChannel) error {
	for i := range trackFields {
		f := &trackFields[i]
		if !c.Type.Has(f.bit) || f.suppressed(c.Type) {
			continue
		}
		if err := f.read(r, c); err != nil {
			return fmt.Errorf("reading %s: %w", f.name, err)
		}
	}
	return nil
}

// writeChannelFrame mirrors readChannelFrame.
func writeChannelFrame(w *Writer, c *ZMOChannel, frame int) {
	for i := range trackFields {
		f := &trackFields[i]
		if !c.Type.Has(f.bit) || f.suppressed(c.Type) {
			continue
		}
		f.write(w, c, frame)
	}
}

// checkLengths verifies that each payload kind the encoder will emit holds
// exactly one entry per frame.
func (c *ZMOChannel) checkLengths(frames int32) error {
	for i := range trackFields {
		f := &trackFields[i]
		if !c.Type.Has(f.bit) || f.suppressed(c.Type) {
			continue
		}
		if got := f.count(c); got != int(frames) {
			return fmt.Errorf("%s payload has %d entries, want %d", f.name, got, frames)
		}
	}
	return nil
}

// Encode serializes the animation. Every payload sequence the bitmask
// enables must hold one entry per frame; a channel with both position and
// rotation bits set writes positions only, exactly as the decoder reads.
func (z *ZMO) Encode() ([]byte, error) {
	for i := range z.Channels {
		if err := z.Channels[i].checkLengths(z.FrameCount); err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
	}

	w := NewWriter()
	if err := w.FixedString(z.Version, 8); err != nil {
		return nil, fmt.Errorf("encoding version token: %w", err)
	}
	w.I32(z.FPS)
	w.I32(z.FrameCount)

	w.I32(int32(len(z.Channels)))
	for i := range z.Channels {
		w.I32(int32(z.Channels[i].Type))
		w.I32(z.Channels[i].ID)
	}

	for frame := int32(0); frame < z.FrameCount; frame++ {
		for i := range z.Channels {
			writeChannelFrame(w, &z.Channels[i], int(frame))
		}
	}

	return w.Bytes(), nil
}

// WriteFile encodes the animation and writes it to disk. Nothing is written
// when encoding fails.
func (z *ZMO) WriteFile(path string) error {
	data, err := z.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Duration returns the animation length in seconds, or 0 when FPS is unset.
func (z *ZMO) Duration() float32 {
	if z.FPS <= 0 {
		return 0
	}
	return float32(z.FrameCount) / float32(z.FPS)
}
