// rosetool is a CLI utility for inspecting and converting ROSE Online
// asset files (ZMD skeletons, ZMO animations, ZMS meshes).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rose-go/internal/config"
	"github.com/Faultbox/rose-go/internal/logger"
	"github.com/Faultbox/rose-go/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "-h" || command == "--help" {
		printUsage()
		return
	}

	// Global flags (-config, -debug, -out, -data) follow the command.
	flag.CommandLine.Parse(os.Args[2:])

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()

	switch command {
	case "info":
		cmdInfo(args)
	case "bones":
		cmdBones(args)
	case "channels":
		cmdChannels(args)
	case "roundtrip", "rt":
		cmdRoundtrip(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rosetool - ROSE Online asset file utility

Usage:
  rosetool <command> [options] <file>...

Commands:
  info <file>...             Show file summary (any of .zmd .zmo .zms)
  bones <file.zmd>           Print the bone and dummy tables
  channels <file.zmo>        Print the animation channel table
  roundtrip <file> [output]  Decode, re-encode and byte-compare a file

Options:
  -config path   Config file (default ./rosetool.yaml)
  -debug         Enable debug logging
  -out dir       Output directory for re-encoded files
  -data dir      Extra asset directory

Examples:
  rosetool info 3DDATA/AVATAR/MALE.ZMD
  rosetool bones MALE.ZMD
  rosetool channels EMPTY_RUN.ZMO
  rosetool roundtrip CART01.ZMS out/CART01.ZMS`)
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool info <file>...")
		os.Exit(1)
	}

	for _, path := range args {
		if err := printInfo(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func printInfo(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zmd":
		zmd, err := formats.ParseZMDFile(path)
		if err != nil {
			return err
		}
		logger.Debug("parsed skeleton",
			zap.String("path", path),
			zap.Int("bones", len(zmd.Bones)),
			zap.Int("dummies", len(zmd.Dummies)))
		fmt.Printf("%s: ZMD v%d, %d bones, %d dummies\n",
			path, zmd.Version, len(zmd.Bones), len(zmd.Dummies))

	case ".zmo":
		zmo, err := formats.ParseZMOFile(path)
		if err != nil {
			return err
		}
		logger.Debug("parsed animation",
			zap.String("path", path),
			zap.Int32("frames", zmo.FrameCount),
			zap.Int("channels", len(zmo.Channels)))
		fmt.Printf("%s: ZMO %q, %d fps, %d frames (%.2fs), %d channels\n",
			path, zmo.Version, zmo.FPS, zmo.FrameCount, zmo.Duration(), len(zmo.Channels))

	case ".zms":
		zms, err := formats.ParseZMSFile(path)
		if err != nil {
			return err
		}
		logger.Debug("parsed mesh",
			zap.String("path", path),
			zap.Int("vertices", len(zms.Vertices)),
			zap.Int("triangles", len(zms.Triangles)))
		fmt.Printf("%s: ZMS v%d, format [%s], %d vertices, %d triangles, %d materials, %d bones, pool %d\n",
			path, zms.Version, zms.Format, len(zms.Vertices), len(zms.Triangles),
			len(zms.Materials), len(zms.Bones), zms.Pool)
		fmt.Printf("  bbox min (%.2f, %.2f, %.2f) max (%.2f, %.2f, %.2f)\n",
			zms.BoundingBox.Min.X(), zms.BoundingBox.Min.Y(), zms.BoundingBox.Min.Z(),
			zms.BoundingBox.Max.X(), zms.BoundingBox.Max.Y(), zms.BoundingBox.Max.Z())

	default:
		return fmt.Errorf("unrecognized extension (want .zmd, .zmo or .zms)")
	}
	return nil
}

func cmdBones(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool bones <file.zmd>")
		os.Exit(1)
	}

	zmd, err := formats.ParseZMDFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := zmd.Validate(); err != nil {
		logger.Warn("skeleton has irregular parent indices", zap.Error(err))
	}

	fmt.Printf("%s: ZMD v%d\n\n", args[0], zmd.Version)
	printBoneTable("bones", zmd.Bones, zmd.Bones)
	if len(zmd.Dummies) > 0 {
		fmt.Println()
		printBoneTable("dummies", zmd.Dummies, zmd.Bones)
	}
}

// printBoneTable prints one bone list. Parent names are resolved against
// the bone list for dummies as well, since dummy parents index it.
func printBoneTable(title string, list, bones []formats.ZMDBone) {
	fmt.Printf("%d %s:\n", len(list), title)
	fmt.Println("  idx  parent         name           position (m)              rotation (w,x,y,z)")
	for i, bone := range list {
		parentName := "-"
		if int(bone.Parent) < len(bones) && bone.Parent >= 0 {
			parentName = bones[bone.Parent].Name
		}
		fmt.Printf("  %3d  %-13s  %-13s  (%7.3f %7.3f %7.3f)  (%6.3f %6.3f %6.3f %6.3f)\n",
			i, parentName, bone.Name,
			bone.Position.X(), bone.Position.Y(), bone.Position.Z(),
			bone.Rotation.W, bone.Rotation.V[0], bone.Rotation.V[1], bone.Rotation.V[2])
	}
}

func cmdChannels(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool channels <file.zmo>")
		os.Exit(1)
	}

	zmo, err := formats.ParseZMOFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %q, %d fps, %d frames\n\n", args[0], zmo.Version, zmo.FPS, zmo.FrameCount)
	fmt.Printf("%d channels:\n", len(zmo.Channels))
	for i, c := range zmo.Channels {
		fmt.Printf("  %3d  track %3d  %s\n", i, c.ID, c.Type)
	}
}

func cmdRoundtrip(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rosetool roundtrip <file> [output]")
		os.Exit(1)
	}

	path := args[0]
	original, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	encoded, err := reencode(path, original)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if bytes.Equal(original, encoded) {
		fmt.Printf("%s: OK, %d bytes reproduced exactly\n", path, len(encoded))
	} else {
		// Decode-tolerated truncation (missing dummy section, missing
		// pool) legitimately grows the file on re-encode.
		fmt.Printf("%s: re-encoded to %d bytes (original %d)\n", path, len(encoded), len(original))
	}

	if len(args) > 1 {
		outPath := args[1]
		if !filepath.IsAbs(outPath) && cfg.Output.Dir != "" {
			outPath = filepath.Join(cfg.Output.Dir, outPath)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(outPath, encoded, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", outPath)
	}
}

// reencode decodes data according to the file extension and encodes it back.
func reencode(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zmd":
		zmd, err := formats.ParseZMD(data)
		if err != nil {
			return nil, err
		}
		return zmd.Encode()
	case ".zmo":
		zmo, err := formats.ParseZMO(data)
		if err != nil {
			return nil, err
		}
		return zmo.Encode()
	case ".zms":
		zms, err := formats.ParseZMS(data)
		if err != nil {
			return nil, err
		}
		return zms.Encode()
	default:
		return nil, fmt.Errorf("unrecognized extension (want .zmd, .zmo or .zms)")
	}
}
