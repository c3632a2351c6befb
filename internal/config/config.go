// Package config provides configuration structures and loading for the subsetter.
package config

// Config represents the complete application configuration.
type Config struct {
	Source      DatabaseConfig    `yaml:"source" mapstructure:"source"`
	Destination DatabaseConfig    `yaml:"destination" mapstructure:"destination"`
	Selection   SelectionConfig   `yaml:"selection" mapstructure:"selection"`
	Constraints map[string][]Edge `yaml:"constraints" mapstructure:"constraints"`
	Processing  ProcessingConfig  `yaml:"processing" mapstructure:"processing"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a relational database connection configuration.
// Dialect selects which SQL dialect (and driver) governs sampling, row-count
// estimation, and identifier quoting for this connection.
type DatabaseConfig struct {
	Dialect            string `yaml:"dialect" mapstructure:"dialect"` // "mysql" or "postgres"
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required (mysql only)
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// SelectionConfig controls which tables the engine manages.
//
// Ported from GoArchive's table-inclusion model, generalized to glob
// patterns matched against both "schema.table" and bare "table".
type SelectionConfig struct {
	Schemas           []string `yaml:"schemas" mapstructure:"schemas"`
	Tables            []string `yaml:"tables" mapstructure:"tables"`
	ExcludeTables     []string `yaml:"exclude_tables" mapstructure:"exclude_tables"`
	FullTables        []string `yaml:"full_tables" mapstructure:"full_tables"`
	GuaranteeChildren []string `yaml:"guarantee_children" mapstructure:"guarantee_children"`
}

// Edge is a user-declared pseudo-foreign-key, shaped like a real FK edge but
// not guaranteed to exist in the source (see model.TableDescriptor.Constraints).
type Edge struct {
	ReferredSchema     string   `yaml:"referred_schema" mapstructure:"referred_schema"`
	ReferredTable      string   `yaml:"referred_table" mapstructure:"referred_table"`
	ReferredColumns    []string `yaml:"referred_columns" mapstructure:"referred_columns"`
	ConstrainedColumns []string `yaml:"constrained_columns" mapstructure:"constrained_columns"`
}

// ProcessingConfig represents the scheduling/buffering knobs the CLI exposes.
type ProcessingConfig struct {
	Fraction    float64  `yaml:"fraction" mapstructure:"fraction"`
	Logarithmic bool     `yaml:"logarithmic" mapstructure:"logarithmic"`
	Buffer      int      `yaml:"buffer" mapstructure:"buffer"`
	ChildrenMax int      `yaml:"children_max" mapstructure:"children_max"`
	Force       []string `yaml:"force" mapstructure:"force"` // "table:pk"
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Dialect:            "mysql",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Destination: DatabaseConfig{
			Dialect:            "mysql",
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: ProcessingConfig{
			Buffer:      1000,
			ChildrenMax: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag overrides to the configuration. logLevel
// applies when non-empty, childrenMax when positive and logarithmic when
// true; buffer applies when zero or more (0 disables buffering, and a
// negative value means the flag was not given).
func (c *Config) ApplyOverrides(logLevel string, buffer, childrenMax int, logarithmic bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if buffer >= 0 {
		c.Processing.Buffer = buffer
	}
	if childrenMax > 0 {
		c.Processing.ChildrenMax = childrenMax
	}
	if logarithmic {
		c.Processing.Logarithmic = true
	}
}
