package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

// BuildIndexConfig is the YAML configuration for cmd/buildindex, adapted
// from the teacher's NovaSqlConfig: a typed view over a single config
// file, loaded through viper.
type BuildIndexConfig struct {
	Relation struct {
		Name       string `mapstructure:"name"`
		File       string `mapstructure:"file"`
		RecordSize int    `mapstructure:"record_size"`
	} `mapstructure:"relation"`
	Index struct {
		Dir            string `mapstructure:"dir"`
		AttrByteOffset int    `mapstructure:"attr_byte_offset"`
		AttrType       string `mapstructure:"attr_type"`
		BufCapacity    int    `mapstructure:"buf_capacity"`
	} `mapstructure:"index"`
}

// LoadConfig reads and unmarshals a YAML config file at path.
func LoadConfig(path string) (*BuildIndexConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg BuildIndexConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
