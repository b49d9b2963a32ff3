package main

import (
	"fmt"
	"os"
	"time"

	"github.com/docopt/docopt-go"
	"gopkg.in/yaml.v3"

	"github.com/bringyour/syncgraph/replica"
)

// Config is the yaml config of graphctl. Durations are written like `750ms`.
// Fields missing from the file keep their defaults.
type Config struct {
	Url    string        `yaml:"url"`
	Server *ServerConfig `yaml:"server"`
	Client *ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	AllowDuplicates    bool          `yaml:"allow_duplicates"`
	DeliveryTimeout    time.Duration `yaml:"delivery_timeout"`
	WsHandshakeTimeout time.Duration `yaml:"ws_handshake_timeout"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	SendBufferSize     int           `yaml:"send_buffer_size"`
}

type ClientConfig struct {
	ReconnectTimeout     time.Duration `yaml:"reconnect_timeout"`
	ThinReconnectTimeout time.Duration `yaml:"thin_reconnect_timeout"`
	HttpConnectTimeout   time.Duration `yaml:"http_connect_timeout"`
	WsHandshakeTimeout   time.Duration `yaml:"ws_handshake_timeout"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	ReadTimeout          time.Duration `yaml:"read_timeout"`
	AckTimeout           time.Duration `yaml:"ack_timeout"`
	CommitRequired       bool          `yaml:"commit_required"`
}

func DefaultConfig() *Config {
	wsServerSettings := replica.DefaultWsServerSettings()
	clientSettings := replica.DefaultClientSettings()
	thinClientSettings := replica.DefaultThinClientSettings()
	serverSettings := replica.DefaultServerSettings()
	return &Config{
		Url: DefaultUrl,
		Server: &ServerConfig{
			Addr:               DefaultAddr,
			AllowDuplicates:    serverSettings.AllowDuplicates,
			DeliveryTimeout:    serverSettings.DeliveryTimeout,
			WsHandshakeTimeout: wsServerSettings.WsHandshakeTimeout,
			PingTimeout:        wsServerSettings.PingTimeout,
			WriteTimeout:       wsServerSettings.WriteTimeout,
			ReadTimeout:        wsServerSettings.ReadTimeout,
			SendBufferSize:     wsServerSettings.SendBufferSize,
		},
		Client: &ClientConfig{
			ReconnectTimeout:     clientSettings.ReconnectTimeout,
			ThinReconnectTimeout: thinClientSettings.ReconnectTimeout,
			HttpConnectTimeout:   clientSettings.HttpConnectTimeout,
			WsHandshakeTimeout:   clientSettings.WsHandshakeTimeout,
			PingTimeout:          clientSettings.PingTimeout,
			WriteTimeout:         clientSettings.WriteTimeout,
			ReadTimeout:          clientSettings.ReadTimeout,
			AckTimeout:           clientSettings.AckTimeout,
			CommitRequired:       clientSettings.CommitRequired,
		},
	}
}

// ParseConfig overlays the yaml document on the defaults
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}
	return config, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file %w", err)
	}
	return ParseConfig(data)
}

// requireConfig loads the config file if given, then applies the command line options
func requireConfig(opts docopt.Opts) (*Config, error) {
	config := DefaultConfig()
	if path, err := opts.String("--config"); err == nil {
		config, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}
	if addr, err := opts.String("--addr"); err == nil {
		config.Server.Addr = addr
	}
	if url, err := opts.String("--url"); err == nil {
		config.Url = url
	}
	if allowDuplicates, _ := opts.Bool("--allow_duplicates"); allowDuplicates {
		config.Server.AllowDuplicates = true
	}
	return config, nil
}

func (self *Config) ServerSettings() *replica.ServerSettings {
	settings := replica.DefaultServerSettings()
	settings.AllowDuplicates = self.Server.AllowDuplicates
	settings.DeliveryTimeout = self.Server.DeliveryTimeout
	return settings
}

func (self *Config) WsServerSettings() *replica.WsServerSettings {
	settings := replica.DefaultWsServerSettings()
	settings.WsHandshakeTimeout = self.Server.WsHandshakeTimeout
	settings.PingTimeout = self.Server.PingTimeout
	settings.WriteTimeout = self.Server.WriteTimeout
	settings.ReadTimeout = self.Server.ReadTimeout
	settings.SendBufferSize = self.Server.SendBufferSize
	return settings
}

func (self *Config) ClientSettings(thin bool) *replica.ClientSettings {
	var settings *replica.ClientSettings
	if thin {
		settings = replica.DefaultThinClientSettings()
		settings.ReconnectTimeout = self.Client.ThinReconnectTimeout
	} else {
		settings = replica.DefaultClientSettings()
		settings.ReconnectTimeout = self.Client.ReconnectTimeout
	}
	settings.HttpConnectTimeout = self.Client.HttpConnectTimeout
	settings.WsHandshakeTimeout = self.Client.WsHandshakeTimeout
	settings.PingTimeout = self.Client.PingTimeout
	settings.WriteTimeout = self.Client.WriteTimeout
	settings.ReadTimeout = self.Client.ReadTimeout
	settings.AckTimeout = self.Client.AckTimeout
	settings.AckRetention = self.Client.AckTimeout
	settings.CommitRequired = self.Client.CommitRequired
	return settings
}
