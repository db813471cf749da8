package config

// Definition holds the configuration as read from the config file and the
// environment. Each field maps to a key of the YAML config file.
type Definition struct {
	// Root is the directory holding instance directories.
	Root string `mapstructure:"root"`

	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// Quiet disables console logging.
	Quiet bool `mapstructure:"quiet"`

	// LogFormat defines the output format for log messages.
	// Available options: "json", "text"
	LogFormat string `mapstructure:"logFormat"`

	// LockRetryInterval is a duration string such as "50ms".
	LockRetryInterval string `mapstructure:"lockRetryInterval"`
}
