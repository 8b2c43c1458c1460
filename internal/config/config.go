package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ROADNET_GRAPH_URI.
const EnvPrefix = "ROADNET"

var validate = validator.New()

// Config holds all application configuration.
type Config struct {
	Graph     GraphConfig     `mapstructure:"graph"`
	Input     InputConfig     `mapstructure:"input"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Report    ReportConfig    `mapstructure:"report"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
}

// GraphConfig selects and addresses the graph store.
type GraphConfig struct {
	Backend  string `mapstructure:"backend" validate:"oneof=memory neo4j"`
	URI      string `mapstructure:"uri" validate:"required_if=Backend neo4j"`
	Username string `mapstructure:"username"`
	// Password may be a literal or a reference such as env:NAME or
	// file:/path#key, resolved through the secrets package.
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	BatchSize int    `mapstructure:"batch_size" validate:"gte=0"`
}

type InputConfig struct {
	// EdgeList is the raw "usa.txt" style file.
	EdgeList string `mapstructure:"edge_list"`
	// ExportDir holds intersections.csv and roads.csv.
	ExportDir string `mapstructure:"export_dir"`
}

type MetricsConfig struct {
	TopK int `mapstructure:"top_k" validate:"gt=0"`
}

type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

type DashboardConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
}

type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// HealthAddr is where the worker serves its health endpoints; empty disables them.
	HealthAddr string `mapstructure:"health_addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Graph:     GraphConfig{Backend: "memory", URI: "bolt://localhost:7687", Username: "neo4j", BatchSize: 10000},
		Input:     InputConfig{EdgeList: "usa.txt", ExportDir: "data"},
		Metrics:   MetricsConfig{TopK: 10},
		Report:    ReportConfig{OutputDir: "reports"},
		Dashboard: DashboardConfig{ListenAddr: ":8080"},
		Tracing:   TracingConfig{SampleRate: 1.0},
		Temporal:  TemporalConfig{Host: "localhost:7233", Namespace: "default", TaskQueue: "roadnet", HealthAddr: ":8081"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("graph.backend", d.Graph.Backend)
	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.batch_size", d.Graph.BatchSize)
	v.SetDefault("input.edge_list", d.Input.EdgeList)
	v.SetDefault("input.export_dir", d.Input.ExportDir)
	v.SetDefault("metrics.top_k", d.Metrics.TopK)
	v.SetDefault("report.output_dir", d.Report.OutputDir)
	v.SetDefault("dashboard.listen_addr", d.Dashboard.ListenAddr)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("temporal.host", d.Temporal.Host)
	v.SetDefault("temporal.namespace", d.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", d.Temporal.TaskQueue)
	v.SetDefault("temporal.health_addr", d.Temporal.HealthAddr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Check enforces the hard constraints; a failing config is unusable.
func (c *Config) Check() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			if e.Param() != "" {
				return fmt.Errorf("config %s: failed %s=%s", e.Namespace(), e.Tag(), e.Param())
			}
			return fmt.Errorf("config %s: failed %s", e.Namespace(), e.Tag())
		}
		return err
	}
	return nil
}

// Validate checks configuration for questionable values and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Graph.Backend == "neo4j" && c.Graph.Password == "" {
		warnings = append(warnings, "graph backend 'neo4j' is configured but password is empty")
	}
	if c.Graph.Backend == "neo4j" && c.Graph.BatchSize > 100000 {
		warnings = append(warnings, fmt.Sprintf("graph batch_size %d is large; neo4j transactions may exceed memory limits", c.Graph.BatchSize))
	}
	if c.Metrics.TopK > 1000 {
		warnings = append(warnings, fmt.Sprintf("metrics top_k %d is larger than a dashboard can show", c.Metrics.TopK))
	}
	if c.Input.EdgeList == "" && c.Input.ExportDir == "" {
		warnings = append(warnings, "neither input.edge_list nor input.export_dir is set")
	}

	return warnings
}

// Load reads configuration from path, if given, and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	for _, warning := range cfg.Validate() {
		slog.Warn("config", "warning", warning)
	}

	return &cfg, nil
}
