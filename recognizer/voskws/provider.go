package voskws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/wavscribe/errors"
	"github.com/kbukum/wavscribe/logger"
	"github.com/kbukum/wavscribe/provider"
	"github.com/kbukum/wavscribe/recognizer"
	"github.com/kbukum/wavscribe/version"
)

const (
	// ProviderName is the registered name for the Vosk server engine.
	ProviderName = recognizer.DefaultEngine

	defaultURL              = "ws://localhost:2700"
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadTimeout      = 60 * time.Second
)

// Config holds configuration for the Vosk server engine.
type Config struct {
	URL              string        `json:"url" yaml:"url"`
	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	ReadTimeout      time.Duration `json:"read_timeout" yaml:"read_timeout"`
}

// Provider implements recognizer.Engine against a Vosk server.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewProvider creates a new Vosk server engine.
func NewProvider(cfg Config) *Provider {
	if cfg.URL == "" {
		cfg.URL = defaultURL
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &Provider{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Factory returns a provider.Factory that creates Vosk server engines from
// a generic config map. Durations may be given as time.Duration or as
// strings such as "30s".
func Factory() provider.Factory[recognizer.Engine] {
	return func(cfg map[string]any) (recognizer.Engine, error) {
		vc := Config{}
		if v, ok := cfg["url"].(string); ok {
			vc.URL = v
		}
		var err error
		if vc.HandshakeTimeout, err = durationValue(cfg, "handshake_timeout"); err != nil {
			return nil, err
		}
		if vc.ReadTimeout, err = durationValue(cfg, "read_timeout"); err != nil {
			return nil, err
		}
		return NewProvider(vc), nil
	}
}

func durationValue(cfg map[string]any, key string) (time.Duration, error) {
	switch v := cfg[key].(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		if v == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%s: unsupported type %T", key, v)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// URL returns the server address.
func (p *Provider) URL() string { return p.cfg.URL }

// IsAvailable checks if the server accepts a websocket connection.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ws, err := p.dial(ctx)
	if err != nil {
		return false
	}
	_ = newConn(ws, 0).Close()
	return true
}

// NewSession opens a websocket connection and configures it for audio at
// sampleRate. Only opts.Words reaches the server: the config message has no
// partial-words field, so opts.PartialWords is ignored and partial replies
// carry text only.
func (p *Provider) NewSession(ctx context.Context, model *recognizer.Model, sampleRate int, opts recognizer.SessionOptions) (recognizer.Session, error) {
	if sampleRate <= 0 {
		return nil, errors.InvalidInput("sample_rate", "must be positive")
	}
	log := logger.Get("voskws").WithLevel(opts.LogLevel)
	if model != nil {
		log = log.WithFields(logger.Fields(logger.FieldModelPath, model.Path, "model", model.Name))
	}

	ws, err := p.dial(ctx)
	if err != nil {
		return nil, recognizer.Fail("session", err)
	}
	c := newConn(ws, p.cfg.ReadTimeout)

	words := 0
	if opts.Words {
		words = 1
	}
	msg, err := controlFrame(map[string]any{
		"config": map[string]any{"sample_rate": sampleRate, "words": words},
	})
	if err == nil {
		err = c.Send(msg)
	}
	if err != nil {
		_ = c.Close()
		return nil, recognizer.Fail("session", err)
	}

	if opts.PartialWords {
		log.Debug("partial words not supported by the server, ignoring")
	}
	log.Debug("session opened", logger.Fields("url", p.cfg.URL, "sample_rate", sampleRate, "words", opts.Words))
	return &Session{stream: c, log: log}, nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	ws, resp, err := p.dialer.DialContext(ctx, p.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", p.cfg.URL, err)
	}
	return ws, nil
}
