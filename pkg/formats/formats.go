// Package formats provides decoders and encoders for ROSE Online binary
// asset formats.
package formats

// Note: ZMD (skeleton) is fully implemented in zmd.go
// Note: ZMO (animation) is fully implemented in zmo.go
// Note: ZMS (mesh) is fully implemented in zms.go
// Shared little-endian primitives live in binio.go.
