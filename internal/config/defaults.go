package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that preset defaults.
const EnvPrefix = "CAMEXTRACT"

// NewViper locates the optional defaults file. With configFile empty it looks
// for camextract.yaml in the working directory and in
// ~/.config/camextract. A missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("camextract")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "camextract"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// LoadDefaults builds the Config that command-line flags are applied on top
// of.
func LoadDefaults(v *viper.Viper) (Config, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}

	cfg.OutputDir = v.GetString("output")
	cfg.WhiteBalance = v.GetString("wb")
	cfg.LogFile = v.GetString("log")
	cfg.Crop = v.GetBool("crop")
	cfg.Denoise = v.GetBool("denoise")
	cfg.OpenCL = v.GetBool("ocl")

	if name := v.GetString("color"); name != "" {
		enc, err := colorByName(name)
		if err != nil {
			return cfg, &UsageError{Msg: "invalid default", Err: err}
		}
		cfg.Color = enc
	}
	if v.IsSet("matrixmax") {
		n := v.GetInt("matrixmax")
		if n < 0 {
			return cfg, usagef("invalid default matrixmax %d", n)
		}
		cfg.MatrixMax = n
	}
	return cfg, nil
}

func colorByName(name string) (ColorEncoding, error) {
	for c := ColorNone; c <= ColorQuattroTop; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return ParseColorEncoding(name)
}
