/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "geosolve/internal/log"
	"geosolve/internal/units"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SolverConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type DiagramConfig struct {
	BaseUnitPixels  float64 `yaml:"base_unit_pixels"`
	DefaultScale    float64 `yaml:"default_scale"`
	MinScale        float64 `yaml:"min_scale"`
	MaxScale        float64 `yaml:"max_scale"`
	RevealFrames    int     `yaml:"reveal_frames"`
	AlphaThreshold  int     `yaml:"alpha_threshold"`
	FrameIntervalMs int     `yaml:"frame_interval_ms"`
	CompassEpsilon  float64 `yaml:"compass_epsilon"`
}

type HistoryConfig struct {
	// DSN is a sqlite file path or a postgres:// URL. Empty means history.db next to the config file.
	DSN     string `yaml:"dsn"`
	Disable bool   `yaml:"disable"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Solver        SolverConfig  `yaml:"solver"`
	Diagram       DiagramConfig `yaml:"diagram"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Solver:        SolverConfig{BaseURL: "http://localhost:5000", TimeoutMs: 30000},
		Diagram: DiagramConfig{
			BaseUnitPixels:  units.BaseUnitPixels,
			DefaultScale:    float64(units.DefaultScale),
			MinScale:        float64(units.MinScale),
			MaxScale:        float64(units.MaxScale),
			RevealFrames:    30,
			AlphaThreshold:  128,
			FrameIntervalMs: 16,
			CompassEpsilon:  0.5,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "GEO_CONFIG"
	EnvSolverURL       = "GEO_SOLVER_URL"
	EnvSolverTimeoutMs = "GEO_SOLVER_TIMEOUT_MS"
	EnvSolverTLSInsec  = "GEO_TLS_INSECURE"
	EnvDefaultScale    = "GEO_DEFAULT_SCALE"
	EnvRevealFrames    = "GEO_REVEAL_FRAMES"
	EnvHistoryDSN      = "GEO_HISTORY_DSN"
	EnvTelemetryOptIn  = "GEO_TELEMETRY_OPT_IN"
	EnvTelemetryURL    = "GEO_TELEMETRY_URL"
	// Logging envs share names with the log package.
	EnvLogLevel  = applog.EnvLevel
	EnvLogFormat = applog.EnvFormat
	EnvLogSource = applog.EnvSource
	EnvLogFile   = applog.EnvFile
)

// Service/keys for OS keyring.
const (
	keyringService = "GeoSolve"
	keyringToken   = "solver_token"
)

// TokenStore abstracts the keyring so tests and headless hosts can swap it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the token backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// Token reads the solver token; a missing entry is not an error.
func Token() (string, error) {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SetToken stores the solver token; an empty token deletes it.
func SetToken(token string) error {
	if token == "" {
		err := tokenStore.Delete(keyringService, keyringToken)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, keyringToken, token)
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return filepath.Dir(p), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GeoSolve")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GeoSolve")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "geosolve")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "geosolve")
		}
	}
	if base == "" || base == "geosolve" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. GEO_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the solver token from the keyring (not kept inside the struct; returned separately).
// A malformed file is reported but the defaults plus env overrides are still returned.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	var fileErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fileErr = fmt.Errorf("config %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		applog.WithComponent("config").Warn("invalid diagram settings, using defaults", "err", err)
		cfg.Diagram = Defaults().Diagram
	}
	tok, _ := Token()
	return cfg, tok, fileErr
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := SetToken(token); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the diagram section for values the renderer cannot use.
func (c AppConfig) Validate() error {
	d := c.Diagram
	switch {
	case d.BaseUnitPixels <= 0:
		return fmt.Errorf("diagram.base_unit_pixels must be positive, got %v", d.BaseUnitPixels)
	case d.MinScale <= 0 || d.MaxScale < d.MinScale:
		return fmt.Errorf("diagram scale range [%v, %v] is invalid", d.MinScale, d.MaxScale)
	case d.DefaultScale < d.MinScale || d.DefaultScale > d.MaxScale:
		return fmt.Errorf("diagram.default_scale %v outside [%v, %v]", d.DefaultScale, d.MinScale, d.MaxScale)
	case d.RevealFrames <= 0:
		return fmt.Errorf("diagram.reveal_frames must be positive, got %d", d.RevealFrames)
	case d.AlphaThreshold < 0 || d.AlphaThreshold > 254:
		return fmt.Errorf("diagram.alpha_threshold must be in [0, 254], got %d", d.AlphaThreshold)
	case d.CompassEpsilon < 0:
		return fmt.Errorf("diagram.compass_epsilon must not be negative, got %v", d.CompassEpsilon)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.General.TelemetryURL != "" {
		dst.General.TelemetryURL = src.General.TelemetryURL
	}
	if src.Solver.BaseURL != "" {
		dst.Solver.BaseURL = src.Solver.BaseURL
	}
	if src.Solver.TimeoutMs != 0 {
		dst.Solver.TimeoutMs = src.Solver.TimeoutMs
	}
	dst.Solver.TLSInsecure = src.Solver.TLSInsecure
	// diagram: zero means "not set"
	sd, dd := src.Diagram, &dst.Diagram
	if sd.BaseUnitPixels != 0 {
		dd.BaseUnitPixels = sd.BaseUnitPixels
	}
	if sd.DefaultScale != 0 {
		dd.DefaultScale = sd.DefaultScale
	}
	if sd.MinScale != 0 {
		dd.MinScale = sd.MinScale
	}
	if sd.MaxScale != 0 {
		dd.MaxScale = sd.MaxScale
	}
	if sd.RevealFrames != 0 {
		dd.RevealFrames = sd.RevealFrames
	}
	if sd.AlphaThreshold != 0 {
		dd.AlphaThreshold = sd.AlphaThreshold
	}
	if sd.FrameIntervalMs != 0 {
		dd.FrameIntervalMs = sd.FrameIntervalMs
	}
	if sd.CompassEpsilon != 0 {
		dd.CompassEpsilon = sd.CompassEpsilon
	}
	if strings.TrimSpace(src.History.DSN) != "" {
		dst.History.DSN = strings.TrimSpace(src.History.DSN)
	}
	dst.History.Disable = src.History.Disable
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSolverURL)); v != "" {
		cfg.Solver.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSolverTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSolverTLSInsec)); v != "" {
		cfg.Solver.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDefaultScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Diagram.DefaultScale = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRevealFrames)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Diagram.RevealFrames = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDSN)); v != "" {
		cfg.History.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.General.TelemetryURL = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var overrideEnv = map[string]string{
	"solver.base_url":          EnvSolverURL,
	"solver.timeout_ms":        EnvSolverTimeoutMs,
	"solver.tls_insecure":      EnvSolverTLSInsec,
	"diagram.default_scale":    EnvDefaultScale,
	"diagram.reveal_frames":    EnvRevealFrames,
	"history.dsn":              EnvHistoryDSN,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.telemetry_url":    EnvTelemetryURL,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideEnv[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the solver request timeout.
func (s SolverConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return time.Duration(Defaults().Solver.TimeoutMs) * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Range is the accepted zoom range.
func (d DiagramConfig) Range() units.Range {
	return units.Range{Min: units.Scale(d.MinScale), Max: units.Scale(d.MaxScale)}
}

// Mapper is the coordinate mapper calibrated by BaseUnitPixels.
func (d DiagramConfig) Mapper() units.Mapper { return units.Mapper{BasePixels: d.BaseUnitPixels} }

// FrameInterval is the reveal tick period.
func (d DiagramConfig) FrameInterval() time.Duration {
	if d.FrameIntervalMs <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(d.FrameIntervalMs) * time.Millisecond
}

// ResolvedDSN returns the history DSN, defaulting to a sqlite file in the config directory.
func (h HistoryConfig) ResolvedDSN() (string, error) {
	if h.DSN != "" {
		return h.DSN, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
