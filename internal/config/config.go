// Package config loads the serialmux daemon configuration with viper.
//
// A configuration file lists the physical masters and the virtual
// endpoints to create for each:
//
//	log:
//	  level: info
//	  format: console
//	reconnect_interval: 5s
//	masters:
//	  - device: /dev/ttyS1
//	    baudrate: 9600
//	    virtuals:
//	      - suffix: modem
//	        writer: true
//	      - suffix: logger
//
// Every key can be overridden from the environment with the SERIALMUX_
// prefix, ie. SERIALMUX_LOG_LEVEL=debug.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialmux"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides
const EnvPrefix = "SERIALMUX"

// Config is the complete daemon configuration
type Config struct {
	Log               LogConfig      `mapstructure:"log"`
	BufferSize        int            `mapstructure:"buffer_size"`
	ReconnectInterval time.Duration  `mapstructure:"reconnect_interval"`
	TickInterval      time.Duration  `mapstructure:"tick_interval"`
	EchoToWriter      bool           `mapstructure:"echo_to_writer"`
	Masters           []MasterConfig `mapstructure:"masters"`

	// Source is the file the configuration was read from, if any
	Source string `mapstructure:"-"`
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MasterConfig describes one physical device
type MasterConfig struct {
	Device   string          `mapstructure:"device"`
	BaudRate int             `mapstructure:"baudrate"`
	Virtuals []VirtualConfig `mapstructure:"virtuals"`
}

// VirtualConfig describes one virtual endpoint of a master. Name overrides
// the name derived from the master device and Suffix; BaudRate defaults to
// the master's.
type VirtualConfig struct {
	Suffix   string `mapstructure:"suffix"`
	Name     string `mapstructure:"name"`
	BaudRate int    `mapstructure:"baudrate"`
	Writer   bool   `mapstructure:"writer"`
}

// SetDefaults registers the default value of every scalar key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("buffer_size", serialmux.DefaultBufferSize)
	v.SetDefault("reconnect_interval", 5*time.Second)
	v.SetDefault("tick_interval", 100*time.Millisecond)
	v.SetDefault("echo_to_writer", false)
}

// New returns a viper instance with defaults, environment overrides and
// the standard search path set up. An explicit file takes precedence over
// the search path.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("serialmux")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/serialmux")
	}
	return v
}

// Load reads the configuration file, if any, and decodes v into a
// validated Config. A missing file on the search path is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against the rules of the node graph so
// errors surface before any device is opened.
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer_size must be positive", serialmux.ErrInvalidConfig)
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("%w: reconnect_interval must be positive", serialmux.ErrInvalidConfig)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval must be positive", serialmux.ErrInvalidConfig)
	}

	devices := make(map[string]bool)
	for i, m := range c.Masters {
		if m.Device == "" {
			return fmt.Errorf("%w: masters[%d]: device is required", serialmux.ErrInvalidConfig, i)
		}
		if devices[m.Device] {
			return fmt.Errorf("%w: masters[%d]: %s", serialmux.ErrDuplicateName, i, m.Device)
		}
		devices[m.Device] = true
	}

	// virtual names are paths on one filesystem, shared by every master
	names := make(map[string]bool)
	for _, m := range c.Masters {
		if !serialmux.ValidBaudRate(m.BaudRate) {
			return fmt.Errorf("%w: %s: baudrate %d", serialmux.ErrInvalidConfig, m.Device, m.BaudRate)
		}

		writers := 0
		for j, vc := range m.Virtuals {
			name, err := vc.ResolveName(m.Device)
			if err != nil {
				return fmt.Errorf("%s: virtuals[%d]: %w", m.Device, j, err)
			}
			if names[name] || devices[name] {
				return fmt.Errorf("%w: %s", serialmux.ErrDuplicateName, name)
			}
			names[name] = true

			if vc.BaudRate != 0 && !serialmux.ValidBaudRate(vc.BaudRate) {
				return fmt.Errorf("%w: %s: baudrate %d", serialmux.ErrInvalidConfig, name, vc.BaudRate)
			}
			if vc.Writer {
				writers++
			}
		}
		if writers > 1 {
			return fmt.Errorf("%w: %s has %d writers configured", serialmux.ErrWriterConflict, m.Device, writers)
		}
	}
	return nil
}

// ResolveName returns the device name of the virtual under master device
func (vc VirtualConfig) ResolveName(device string) (string, error) {
	if vc.Name != "" {
		return vc.Name, nil
	}
	if vc.Suffix == "" {
		return "", fmt.Errorf("%w: suffix or name is required", serialmux.ErrInvalidConfig)
	}
	return serialmux.VirtualName(device, vc.Suffix)
}

// ResolveBaudRate returns the virtual's baud rate, inherited from master
// when unset
func (vc VirtualConfig) ResolveBaudRate(master int) int {
	if vc.BaudRate != 0 {
		return vc.BaudRate
	}
	return master
}
