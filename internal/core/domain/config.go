package domain

import (
	"net/url"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

const (
	// DefaultPort is the development server port.
	DefaultPort = 9000
	// DefaultLivereloadPort is the live-reload server port.
	DefaultLivereloadPort = 35729
	// DefaultProxyRoot is the backend every proxied route forwards to.
	DefaultProxyRoot = "http://localhost:8080"
)

// Paths names the directories the build reads from and writes to.
type Paths struct {
	App   string
	Temp  string
	Dist  string
	Bower string
}

// Proxy is the backend origin and the ordered list of path prefixes forwarded to it.
type Proxy struct {
	Root  string
	Paths []string
}

// Config is the static configuration for a run. It is loaded once and never mutated.
type Config struct {
	Port           int
	LivereloadPort int
	Paths          Paths
	Proxy          Proxy
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Port:           DefaultPort,
		LivereloadPort: DefaultLivereloadPort,
		Paths: Paths{
			App:   "app",
			Temp:  ".tmp",
			Dist:  "dist",
			Bower: "bower_components",
		},
		Proxy: Proxy{
			Root:  DefaultProxyRoot,
			Paths: []string{"/aperture", "/rest"},
		},
	}
}

// Validate checks port ranges, directory names and the proxy configuration.
func (c *Config) Validate() error {
	if err := validatePort("port", c.Port); err != nil {
		return err
	}
	if err := validatePort("livereloadPort", c.LivereloadPort); err != nil {
		return err
	}
	if c.Port == c.LivereloadPort {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "port and livereloadPort must differ"), "port", c.Port)
	}

	for field, dir := range map[string]string{
		"paths.app":   c.Paths.App,
		"paths.temp":  c.Paths.Temp,
		"paths.dist":  c.Paths.Dist,
		"paths.bower": c.Paths.Bower,
	} {
		if strings.TrimSpace(dir) == "" {
			return zerr.With(zerr.Wrap(ErrInvalidConfig, "directory must not be empty"), "field", field)
		}
	}

	_, err := c.Routes()
	return err
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return zerr.With(zerr.With(zerr.Wrap(ErrInvalidConfig, "port out of range"), "field", field), "port", port)
	}
	return nil
}

// Routes derives one ProxyRoute per configured prefix, in configuration order.
func (c *Config) Routes() ([]ProxyRoute, error) {
	root, err := url.Parse(c.Proxy.Root)
	if err != nil {
		invalid := zerr.With(zerr.Wrap(ErrInvalidConfig, "proxy root is not a valid URL"), "proxy_root", c.Proxy.Root)
		return nil, zerr.With(invalid, "reason", err.Error())
	}
	if (root.Scheme != "http" && root.Scheme != "https") || root.Host == "" {
		return nil, zerr.With(zerr.Wrap(ErrInvalidConfig, "proxy root must be an absolute http(s) URL"),
			"proxy_root", c.Proxy.Root)
	}

	routes := make([]ProxyRoute, 0, len(c.Proxy.Paths))
	for _, prefix := range c.Proxy.Paths {
		if !strings.HasPrefix(prefix, "/") {
			return nil, zerr.With(zerr.Wrap(ErrInvalidConfig, "proxy path must begin with /"), "prefix", prefix)
		}
		routes = append(routes, newProxyRoute(root, prefix))
	}
	return routes, nil
}

// ProjectPath resolves a configured directory against projectDir. Absolute
// directories are returned unchanged.
func ProjectPath(projectDir, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(projectDir, dir)
}
