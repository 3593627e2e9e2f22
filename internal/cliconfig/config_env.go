package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (OBGATE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", os.Getenv("OBGATE_HOST"), &cfg.Host)
	s.setString("token", os.Getenv("OBGATE_TOKEN"), &cfg.Token)
	s.setString("core-host", os.Getenv("OBGATE_CORE_HOST"), &cfg.CoreHost)
	s.setString("platform", os.Getenv("OBGATE_PLATFORM"), &cfg.Platform)
	s.setString("detection-api-url", os.Getenv("OBGATE_DETECTION_API_URL"), &cfg.DetectionAPIURL)
	s.setString("detection-api-key", os.Getenv("OBGATE_DETECTION_API_KEY"), &cfg.DetectionAPIKey)
	s.setString("detection-model", os.Getenv("OBGATE_DETECTION_MODEL"), &cfg.DetectionModel)
	s.setString("log-level", os.Getenv("OBGATE_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("port", os.Getenv("OBGATE_PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("core-port", os.Getenv("OBGATE_CORE_PORT"), &cfg.CorePort); err != nil {
		return err
	}
	if err := s.setIntFromString("management-port", os.Getenv("OBGATE_MANAGEMENT_PORT"), &cfg.ManagementPort); err != nil {
		return err
	}
	if err := s.setDuration("response-timeout", os.Getenv("OBGATE_RESPONSE_TIMEOUT"), &cfg.ResponseTimeout); err != nil {
		return err
	}

	s.setBoolFromString("detection", os.Getenv("OBGATE_DETECTION"), &cfg.DetectionEnabled)
	s.setBoolFromString("management", os.Getenv("OBGATE_MANAGEMENT"), &cfg.ManagementEnabled)

	return nil
}
