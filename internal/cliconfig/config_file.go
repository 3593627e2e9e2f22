package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/obgate-labs/obgate/internal/domain"
)

// FileConfig mirrors Config with TOML sections. Durations are strings so
// the file stays human-editable ("30s", "1m").
type FileConfig struct {
	Ingress    IngressSection    `toml:"ingress"`
	Core       CoreSection       `toml:"core"`
	Chat       ChatSection       `toml:"chat"`
	Detection  DetectionSection  `toml:"detection"`
	Management ManagementSection `toml:"management"`

	ResponseTimeout string `toml:"response_timeout"`
	LogLevel        string `toml:"log_level"`
}

// IngressSection configures the front-protocol listener.
type IngressSection struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Token string `toml:"token"`
}

// CoreSection configures the back-protocol link.
type CoreSection struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Platform string `toml:"platform"`
}

// ChatSection configures group filtering.
type ChatSection struct {
	GroupListType string  `toml:"group_list_type"`
	GroupList     []int64 `toml:"group_list"`
}

// DetectionSection configures the content-moderation gate.
type DetectionSection struct {
	Enable       *bool   `toml:"enable"`
	APIURL       string  `toml:"api_url"`
	APIKey       string  `toml:"api_key"`
	Model        string  `toml:"model"`
	ReportGroups []int64 `toml:"report_groups"`
}

// ManagementSection configures the management HTTP endpoint.
type ManagementSection struct {
	Enable *bool  `toml:"enable"`
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.obgate/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".obgate", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Ingress.Host, &cfg.Host)
	s.setInt("port", fc.Ingress.Port, &cfg.Port)
	s.setString("token", fc.Ingress.Token, &cfg.Token)

	s.setString("core-host", fc.Core.Host, &cfg.CoreHost)
	s.setInt("core-port", fc.Core.Port, &cfg.CorePort)
	s.setString("platform", fc.Core.Platform, &cfg.Platform)

	if err := s.setDuration("response-timeout", fc.ResponseTimeout, &cfg.ResponseTimeout); err != nil {
		return err
	}
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	// List-valued fields have no flag counterpart; the file always wins
	// when it provides them.
	s.setString("group-list-type", fc.Chat.GroupListType, &cfg.GroupListType)
	if fc.Chat.GroupList != nil {
		cfg.GroupList = fc.Chat.GroupList
	}

	s.setBool("detection", fc.Detection.Enable, &cfg.DetectionEnabled)
	s.setString("detection-api-url", fc.Detection.APIURL, &cfg.DetectionAPIURL)
	s.setString("detection-api-key", fc.Detection.APIKey, &cfg.DetectionAPIKey)
	s.setString("detection-model", fc.Detection.Model, &cfg.DetectionModel)
	if fc.Detection.ReportGroups != nil {
		cfg.ReportGroups = fc.Detection.ReportGroups
	}

	s.setBool("management", fc.Management.Enable, &cfg.ManagementEnabled)
	s.setString("management-host", fc.Management.Host, &cfg.ManagementHost)
	s.setInt("management-port", fc.Management.Port, &cfg.ManagementPort)

	return nil
}

// IngressOrDefault maps the file's ingress section onto a previous value,
// keeping defaults for fields the file leaves empty. Used by the config
// watcher to build snapshots on reload.
func (fc FileConfig) IngressOrDefault(prev domain.IngressConfig) domain.IngressConfig {
	out := prev
	if fc.Ingress.Host != "" {
		out.Host = fc.Ingress.Host
	}
	if fc.Ingress.Port > 0 {
		out.Port = fc.Ingress.Port
	}
	// An empty token in the file disables auth, so it is always applied.
	out.Token = fc.Ingress.Token
	return out
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
