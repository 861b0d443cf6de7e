package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"
)

// ConfigPathEnvKey overrides the default location of the client config.
const ConfigPathEnvKey = "REALIA_CONFIG"

// Config is what `realia login` leaves behind for the other commands.
type Config struct {
	Service Service `json:"service"`
	Token   string  `json:"token,omitempty"`
}

type Service struct {
	// Server is the URL of the Realia API server (the part before /api/v1/...).
	Server string `json:"server"`
}

// NewFromConfig returns a new Realia API client from the given config.
func NewFromConfig(config *Config) (*RealiaClient, error) {
	return NewRealiaClient(config.Service.Server, config.Token, NewHTTPClient()), nil
}

// NewHTTPClient has no overall timeout: mint responses are long lived event streams.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 2 * time.Minute,
		},
	}
}

func DefaultRealiaClientConfigPath() string {
	if path := os.Getenv(ConfigPathEnvKey); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".realia", "client.yaml")
}

func ParseConfigFile(filename string) (*Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	config := &Config{}
	if err := yaml.Unmarshal(contents, config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func NewFromConfigFile(filename string) (*RealiaClient, error) {
	config, err := ParseConfigFile(filename)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(config)
}

func WriteConfig(filename string, server string, token string) error {
	config := &Config{
		Service: Service{Server: server},
		Token:   token,
	}
	return config.Persist(filename)
}

// Persist writes the config readable by its owner only, it holds a session token.
func (c *Config) Persist(filename string) error {
	contents, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0700); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.WriteFile(filename, contents, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Service.Server == "" {
		errs = append(errs, errors.New("no server found"))
	} else if u, err := url.Parse(c.Service.Server); err != nil {
		errs = append(errs, fmt.Errorf("invalid server format %q: %w", c.Service.Server, err))
	} else if u.Hostname() == "" {
		errs = append(errs, fmt.Errorf("invalid server format %q: no hostname", c.Service.Server))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
