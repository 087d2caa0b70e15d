// Package config handles rosetool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds asset lookup paths.
type DataConfig struct {
	AssetDirs []string `yaml:"asset_dirs"` // directories searched for ZMD/ZMO/ZMS files
}

// OutputConfig holds defaults for re-encoded files.
type OutputConfig struct {
	Dir             string `yaml:"dir"`
	SkeletonVersion int    `yaml:"skeleton_version"` // 2 or 3
	MeshVersion     int    `yaml:"mesh_version"`     // 7 or 8
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			AssetDirs: []string{"3DDATA"},
		},
		Output: OutputConfig{
			Dir:             "out",
			SkeletonVersion: 3,
			MeshVersion:     8,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
