//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no --config-file is given. It is optional.
const DefaultConfigFile string = "./linesort.conf.yaml"

const (
	DefaultBatchSize       = 1 << 20
	DefaultReadBufferSize  = 64 << 10
	DefaultWriteBufferSize = 1 << 20
	DefaultRetainStore     = "on_failure"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Flags are the command line options shared by all commands. Zero values
// leave the file and environment settings in place.
type Flags struct {
	ConfigFile      string `long:"config-file" description:"path to config file (default: ./linesort.conf.yaml)"`
	BatchSize       int    `long:"batch-size" description:"maximum number of records per sorted run"`
	StoreDir        string `long:"store-dir" description:"directory for intermediate run stores (default: os temp dir)"`
	RetainStore     string `long:"retain-store" description:"keep the intermediate store: on_failure, always or never"`
	AvoidMmap       bool   `long:"avoid-mmap" description:"read the intermediate store with pread instead of mmap"`
	AsyncSpill      bool   `long:"async-spill" description:"sort and write full batches in the background"`
	ReadBufferSize  int    `long:"read-buffer-size" description:"read buffer size per merge cursor in bytes"`
	WriteBufferSize int    `long:"write-buffer-size" description:"write buffer size for the store and output in bytes"`
	LogLevel        string `long:"log-level" description:"log level: panic, fatal, error, warn, info, debug or trace"`
	LogFormat       string `long:"log-format" description:"log format: text or json"`
	MetricsTextfile string `long:"metrics-textfile" description:"write prometheus metrics to this file on exit"`
}

// LinesortConfig is the resolved configuration of a linesort process.
type LinesortConfig struct {
	Config Config
}

type Config struct {
	Sort       Sort       `json:"sort" yaml:"sort"`
	Logging    Logging    `json:"logging" yaml:"logging"`
	Monitoring Monitoring `json:"monitoring" yaml:"monitoring"`
}

type Sort struct {
	BatchSize       int    `json:"batch_size" yaml:"batch_size"`
	StoreDir        string `json:"store_dir" yaml:"store_dir"`
	RetainStore     string `json:"retain_store" yaml:"retain_store"`
	AvoidMmap       bool   `json:"avoid_mmap" yaml:"avoid_mmap"`
	AsyncSpill      bool   `json:"async_spill" yaml:"async_spill"`
	ReadBufferSize  int    `json:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size" yaml:"write_buffer_size"`
}

func (s Sort) Validate() error {
	if s.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", s.BatchSize)
	}

	switch s.RetainStore {
	case "on_failure", "always", "never":
	default:
		return fmt.Errorf("retain_store must be one of on_failure, always, never, got %q", s.RetainStore)
	}

	if s.ReadBufferSize <= 0 {
		return fmt.Errorf("read_buffer_size must be positive, got %d", s.ReadBufferSize)
	}

	if s.WriteBufferSize <= 0 {
		return fmt.Errorf("write_buffer_size must be positive, got %d", s.WriteBufferSize)
	}

	return nil
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func (l Logging) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("logging: format must be text or json, got %q", l.Format)
	}
}

type Monitoring struct {
	// TextfilePath enables exporting metrics in the node exporter textfile
	// format when set.
	TextfilePath string `json:"textfile_path" yaml:"textfile_path"`
}

func Default() Config {
	return Config{
		Sort: Sort{
			BatchSize:       DefaultBatchSize,
			RetainStore:     DefaultRetainStore,
			ReadBufferSize:  DefaultReadBufferSize,
			WriteBufferSize: DefaultWriteBufferSize,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Sort.Validate(); err != nil {
		return configErr(err)
	}

	if err := c.Logging.Validate(); err != nil {
		return configErr(err)
	}

	return nil
}

// LoadConfig resolves the configuration from the defaults, an optional
// config file, the environment and finally the command line flags. Later
// sources override earlier ones.
func (f *LinesortConfig) LoadConfig(flags *Flags, logger logrus.FieldLogger) error {
	f.Config = Default()
	if flags == nil {
		flags = &Flags{}
	}

	configFileName := flags.ConfigFile
	explicit := configFileName != ""
	if !explicit {
		configFileName = DefaultConfigFile
	}

	file, err := os.ReadFile(configFileName)
	if err != nil && (explicit || !os.IsNotExist(err)) {
		return configErr(fmt.Errorf("read config file: %w", err))
	}

	if len(file) > 0 {
		logger.WithField("action", "config_load").
			WithField("config_file_path", configFileName).
			Debug("loading config file")

		config, err := f.parseConfigFile(file, configFileName)
		if err != nil {
			return configErr(err)
		}
		f.Config = config
	}

	if err := FromEnv(&f.Config); err != nil {
		return configErr(err)
	}

	f.fromFlags(flags)

	return f.Config.Validate()
}

func (f *LinesortConfig) parseConfigFile(file []byte, name string) (Config, error) {
	config := Default()

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	switch ext {
	case "json":
		if err := json.Unmarshal(file, &config); err != nil {
			return config, fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(file, &config); err != nil {
			return config, fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	case "":
		return config, fmt.Errorf("config file does not have a file ending, got '%s'", name)
	default:
		return config, fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", ext)
	}

	return config, nil
}

func (f *LinesortConfig) fromFlags(flags *Flags) {
	if flags.BatchSize != 0 {
		f.Config.Sort.BatchSize = flags.BatchSize
	}

	if flags.StoreDir != "" {
		f.Config.Sort.StoreDir = flags.StoreDir
	}

	if flags.RetainStore != "" {
		f.Config.Sort.RetainStore = flags.RetainStore
	}

	if flags.AvoidMmap {
		f.Config.Sort.AvoidMmap = true
	}

	if flags.AsyncSpill {
		f.Config.Sort.AsyncSpill = true
	}

	if flags.ReadBufferSize != 0 {
		f.Config.Sort.ReadBufferSize = flags.ReadBufferSize
	}

	if flags.WriteBufferSize != 0 {
		f.Config.Sort.WriteBufferSize = flags.WriteBufferSize
	}

	if flags.LogLevel != "" {
		f.Config.Logging.Level = flags.LogLevel
	}

	if flags.LogFormat != "" {
		f.Config.Logging.Format = flags.LogFormat
	}

	if flags.MetricsTextfile != "" {
		f.Config.Monitoring.TextfilePath = flags.MetricsTextfile
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
