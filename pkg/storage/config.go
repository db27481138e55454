// Copyright 2018-2019 The logrange Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/jrivets/log4g"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config struct defines the managed storage settings
type Config struct {
	// Dir is the managed storage root. All temporary files of the data
	// objects are created directly in there.
	Dir string `yaml:"dir"`

	// SizeLimitGB is the storage size which causes a warning when a new
	// session starts
	SizeLimitGB float64 `yaml:"sizeLimitGB"`

	// LogConfigFile is the log4g properties file
	LogConfigFile string `yaml:"logConfigFile"`
}

const (
	// EnvStorageDir is the environment variable which overrides the default
	// storage root
	EnvStorageDir = "SPWTMPDIR"

	DefaultSizeLimitGB = 10
)

var configLog = log4g.GetLogger("storage.Config")

// GetDefaultConfig returns the configuration with the storage root in
// $SPWTMPDIR or in ~/.spw/tmp_storage
func GetDefaultConfig() *Config {
	c := new(Config)
	c.Dir = os.Getenv(EnvStorageDir)
	if c.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		c.Dir = filepath.Join(home, ".spw", "tmp_storage")
	}
	c.SizeLimitGB = DefaultSizeLimitGB
	return c
}

// Apply override c's properties by non-default values from cfg
func (c *Config) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if len(cfg.Dir) > 0 {
		c.Dir = cfg.Dir
	}
	if cfg.SizeLimitGB > 0 {
		c.SizeLimitGB = cfg.SizeLimitGB
	}
	if len(cfg.LogConfigFile) > 0 {
		c.LogConfigFile = cfg.LogConfigFile
	}
}

// SizeLimit returns the size limit in bytes
func (c *Config) SizeLimit() uint64 {
	return uint64(c.SizeLimitGB * 1024 * 1024 * 1024)
}

// ReadConfigFromFile reads YAML (or JSON) config from filename. It returns
// nil config and no error if filename is empty or not found.
func ReadConfigFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		configLog.Warn("There is no file ", filename, " for reading storage config, will use default configuration.")
		return nil, nil
	}

	cfgData, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not read data from config file %s", filename)
	}

	c := &Config{}
	if err = yaml.Unmarshal(cfgData, c); err != nil {
		return nil, errors.Wrapf(err, "Could not unmarshal data from config file %s", filename)
	}

	configLog.Info("Configuration read from ", filename)
	return c, nil
}
