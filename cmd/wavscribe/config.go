package main

import (
	"fmt"
	"time"

	"github.com/kbukum/wavscribe/config"
	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/observability"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/server"
	"github.com/kbukum/wavscribe/validation"
)

// AppConfig is the complete wavscribe configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Transcription TranscriptionConfig  `yaml:"transcription" mapstructure:"transcription"`
	Engine        EngineConfig         `yaml:"engine" mapstructure:"engine"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
}

// TranscriptionConfig configures the transcription driver.
type TranscriptionConfig struct {
	ModelPath       string `yaml:"model_path" mapstructure:"model_path" json:"model_path" validate:"required"`
	ChunkFrames     int    `yaml:"chunk_frames" mapstructure:"chunk_frames" json:"chunk_frames" validate:"gte=0,lte=16777216"`
	SessionLogLevel string `yaml:"session_log_level" mapstructure:"session_log_level" json:"session_log_level" validate:"omitempty,oneof=trace debug info warn error disabled"`
}

// EngineConfig selects and configures the recognition engine.
type EngineConfig struct {
	Name             string        `yaml:"name" mapstructure:"name" json:"name" validate:"required"`
	URL              string        `yaml:"url" mapstructure:"url" json:"url" validate:"omitempty,url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout" json:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" validate:"gte=0"`
}

// ProviderConfig returns the map handed to the engine factory.
func (c EngineConfig) ProviderConfig() map[string]any {
	cfg := map[string]any{}
	if c.URL != "" {
		cfg["url"] = c.URL
	}
	if c.HandshakeTimeout > 0 {
		cfg["handshake_timeout"] = c.HandshakeTimeout
	}
	if c.ReadTimeout > 0 {
		cfg["read_timeout"] = c.ReadTimeout
	}
	return cfg
}

// ApplyDefaults fills zero values in every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Transcription.ModelPath == "" {
		c.Transcription.ModelPath = recognizer.DefaultModelPath
	}
	if c.Transcription.SessionLogLevel == "" {
		c.Transcription.SessionLogLevel = "error"
	}
	if c.Engine.Name == "" {
		c.Engine.Name = recognizer.DefaultEngine
	}
	c.Observability.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Transcription); err != nil {
		return sectionError("transcription", err)
	}
	if err := validation.Validate(c.Engine); err != nil {
		return sectionError("engine", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

func sectionError(section string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return fmt.Errorf("config.%s: %s", section, appErr.Message)
	}
	return fmt.Errorf("config.%s: %w", section, err)
}
