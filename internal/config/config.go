package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tsp-cloud/internal/priority/domain/event"
)

// CodeConfig maps one event code to its reconstruction role.
type CodeConfig struct {
	Code int    `yaml:"code"`
	Role string `yaml:"role"`
	Kind string `yaml:"kind"`
}

// LocationConfig holds per-location overrides.
type LocationConfig struct {
	TimeZone string `yaml:"time_zone"`
}

// Config defines the engine configuration file.
type Config struct {
	DefaultTimeZone string                    `yaml:"default_time_zone"`
	Codes           []CodeConfig              `yaml:"codes"`
	Locations       map[string]LocationConfig `yaml:"locations"`
	Lookback        time.Duration             `yaml:"lookback"`

	vocab event.Vocabulary
	zones map[string]*time.Location
	def   *time.Location
}

// Load loads config from the yaml file named by TSP_CONFIG, or defaults.
func Load() (Config, error) {
	cfg := Config{
		DefaultTimeZone: getenvDefault("TSP_DEFAULT_TIME_ZONE", "UTC"),
		Lookback:        getenvDuration("TSP_LOOKBACK", 30*time.Minute),
	}

	if path := os.Getenv("TSP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	return cfg, cfg.resolve()
}

// Parse decodes a yaml document, for callers that do not read from disk.
func Parse(data []byte) (Config, error) {
	cfg := Config{DefaultTimeZone: "UTC", Lookback: 30 * time.Minute}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, cfg.resolve()
}

func (c *Config) resolve() error {
	if c.Lookback < 0 {
		return fmt.Errorf("config: negative lookback %s", c.Lookback)
	}

	def, err := time.LoadLocation(orDefault(c.DefaultTimeZone, "UTC"))
	if err != nil {
		return fmt.Errorf("config: default time zone: %w", err)
	}
	c.def = def

	c.zones = make(map[string]*time.Location, len(c.Locations))
	for id, loc := range c.Locations {
		if loc.TimeZone == "" {
			continue
		}
		zone, err := time.LoadLocation(loc.TimeZone)
		if err != nil {
			return fmt.Errorf("config: location %s time zone: %w", id, err)
		}
		c.zones[id] = zone
	}

	if len(c.Codes) == 0 {
		c.vocab = event.DefaultVocabulary()
		return nil
	}
	entries := make(map[event.Code]event.Entry, len(c.Codes))
	for _, code := range c.Codes {
		role, err := event.ParseRole(code.Role)
		if err != nil {
			return fmt.Errorf("config: code %d: %w", code.Code, err)
		}
		if _, dup := entries[event.Code(code.Code)]; dup {
			return fmt.Errorf("config: duplicate code %d", code.Code)
		}
		entries[event.Code(code.Code)] = event.Entry{Role: role, Kind: code.Kind}
	}
	vocab, err := event.NewVocabulary(entries)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.vocab = vocab
	return nil
}

// Vocabulary returns the resolved event code vocabulary.
func (c Config) Vocabulary() event.Vocabulary {
	if c.vocab.Codes() == 0 {
		return event.DefaultVocabulary()
	}
	return c.vocab
}

// TimeZone returns the wall-clock zone of a location.
func (c Config) TimeZone(location string) *time.Location {
	if zone, ok := c.zones[location]; ok {
		return zone
	}
	if c.def != nil {
		return c.def
	}
	return time.UTC
}

// LocationIDs returns the configured location ids in order.
func (c Config) LocationIDs() []string {
	ids := make([]string, 0, len(c.Locations))
	for id := range c.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		if seconds, convErr := strconv.Atoi(value); convErr == nil {
			return time.Duration(seconds) * time.Second
		}
		return fallback
	}
	return parsed
}
