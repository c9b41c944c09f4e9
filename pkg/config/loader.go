package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix scopes the environment variables read by the loader.
const EnvPrefix = "CATALOG_"

// SourceType identifies where a configuration value came from.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceCLI     SourceType = "cli"
)

// Source provides a layer of configuration values.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

// Service loads and validates configuration.
type Service struct {
	mu        sync.Mutex
	koanf     *koanf.Koanf
	validator *validator.Validate
	sources   map[string]SourceType
	environ   func() []string
}

// NewService creates a new configuration service with validation support.
func NewService() *Service {
	return &Service{
		validator: validator.New(),
		sources:   make(map[string]SourceType),
		environ:   os.Environ,
	}
}

// Load applies defaults, then sources in order, then environment variables.
// Later layers win.
func (s *Service) Load(_ context.Context, sources ...Source) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.koanf = koanf.New(".")
	s.sources = make(map[string]SourceType)
	if err := s.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	s.track(SourceDefault, nil)
	for _, source := range sources {
		if source == nil {
			continue
		}
		if err := s.loadSource(source); err != nil {
			return nil, err
		}
	}
	if err := s.loadEnvironment(); err != nil {
		return nil, err
	}
	return s.unmarshalAndValidate()
}

// GetSource returns which layer provided key.
func (s *Service) GetSource(key string) SourceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source, ok := s.sources[key]; ok {
		return source
	}
	return SourceDefault
}

func (s *Service) loadSource(source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load from source %s: %w", source.Type(), err)
	}
	if len(data) == 0 {
		return nil
	}
	before := s.snapshot()
	if err := s.koanf.Load(rawMap(data), nil); err != nil {
		return fmt.Errorf("failed to apply source %s: %w", source.Type(), err)
	}
	s.track(source.Type(), before)
	return nil
}

func (s *Service) loadEnvironment() error {
	before := s.snapshot()
	provider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
		EnvironFunc:   s.environ,
	})
	if err := s.koanf.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	s.track(SourceEnv, before)
	return nil
}

// transformEnvKey converts CATALOG_INGEST_WATCH_DEBOUNCE into ingest.watch_debounce.
func transformEnvKey(key string, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], value
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_"), value
	}
}

func (s *Service) snapshot() map[string]any {
	keys := s.koanf.Keys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = s.koanf.Get(key)
	}
	return out
}

func (s *Service) track(source SourceType, before map[string]any) {
	for _, key := range s.koanf.Keys() {
		prev, existed := before[key]
		if before == nil || !existed || !reflect.DeepEqual(prev, s.koanf.Get(key)) {
			s.sources[key] = source
		}
	}
}

func (s *Service) unmarshalAndValidate() (*Config, error) {
	var cfg Config
	if err := s.koanf.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := s.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks struct tags on cfg.
func (s *Service) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := s.validator.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// sensitiveStringDecodeHook is a mapstructure decode hook that converts strings to SensitiveString
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

// rawMap is a koanf.Provider adapter for map[string]any data.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}

// yamlProvider reads a YAML file. A missing file yields no values.
type yamlProvider struct {
	path string
}

// NewYAMLProvider creates a new YAML file configuration source.
func NewYAMLProvider(path string) Source {
	return &yamlProvider{path: path}
}

func (y *yamlProvider) Load() (map[string]any, error) {
	if y.path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	return out, nil
}

func (y *yamlProvider) Type() SourceType {
	return SourceYAML
}

// cliProvider turns dotted flag keys into nested configuration.
type cliProvider struct {
	flags map[string]any
}

// NewCLIProvider creates a source from flags keyed by dotted config path.
func NewCLIProvider(flags map[string]any) Source {
	return &cliProvider{flags: flags}
}

func (c *cliProvider) Load() (map[string]any, error) {
	out := make(map[string]any)
	for path, value := range c.flags {
		if err := setNested(out, path, value); err != nil {
			return nil, fmt.Errorf("failed to set CLI flag %s: %w", path, err)
		}
	}
	return out, nil
}

func (c *cliProvider) Type() SourceType {
	return SourceCLI
}

// setNested sets a value in a nested map structure using dot notation.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}
