package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
	// File is an optional sink written next to stderr.
	File string `yaml:"file,omitempty" env:"FILE"`
	// Categories toggles the named loggers (physics, sim, store, runner, viewer).
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// IsCategoryEnabled reports whether a category logs. Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
