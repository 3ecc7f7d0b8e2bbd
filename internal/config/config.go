package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Build        BuildConfig        `mapstructure:"build" yaml:"build"`
	Fixgen       FixgenConfig       `mapstructure:"fixgen" yaml:"fixgen"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Risk         RiskConfig         `mapstructure:"risk" yaml:"risk"`
	Git          GitConfig          `mapstructure:"git" yaml:"git"`
	GitHub       GitHubConfig       `mapstructure:"github" yaml:"github"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BuildConfig configures build-tool subprocess execution.
type BuildConfig struct {
	// Tool selects the build tool: "auto" detects by manifest files.
	Tool         string        `mapstructure:"tool" yaml:"tool"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MavenBinary  string        `mapstructure:"maven_binary" yaml:"maven_binary"`
	GradleBinary string        `mapstructure:"gradle_binary" yaml:"gradle_binary"`
}

// FixgenConfig configures the external fix-generation service client.
type FixgenConfig struct {
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetryElapsed   time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	// MaxConcurrentPerHandler bounds concurrent generation requests per
	// category handler, not globally.
	MaxConcurrentPerHandler int `mapstructure:"max_concurrent_per_handler" yaml:"max_concurrent_per_handler"`
}

// OrchestratorConfig tunes the fix pipeline itself.
type OrchestratorConfig struct {
	// RevertOnFailure restores the pre-fix snapshot when validation blocks.
	RevertOnFailure bool `mapstructure:"revert_on_failure" yaml:"revert_on_failure"`
	// KeepSnapshotBranch leaves the snapshot branch in place after a
	// successful run for manual inspection.
	KeepSnapshotBranch bool `mapstructure:"keep_snapshot_branch" yaml:"keep_snapshot_branch"`
}

// RiskConfig drives the pre-pipeline risk gate. The dependency name lists are
// configurable on purpose: which libraries count as critical is a property of
// the project under repair, not of this tool.
type RiskConfig struct {
	// HighRiskDependencies add a score bonus when they appear in a change set.
	HighRiskDependencies []string `mapstructure:"high_risk_dependencies" yaml:"high_risk_dependencies"`
	// CriticalDependencies trigger the stricter 5% validation threshold.
	CriticalDependencies []string `mapstructure:"critical_dependencies" yaml:"critical_dependencies"`
	// MinLevelToRun gates pipeline invocation: changes scoring below this
	// level are fixed without the full pipeline ("low" runs everything).
	MinLevelToRun string `mapstructure:"min_level_to_run" yaml:"min_level_to_run"`
}

// GitConfig defines the committer identity.
type GitConfig struct {
	AuthorName  string `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email"`
}

// GitHubConfig defines the configuration for GitHub integration.
type GitHubConfig struct {
	Token      string `mapstructure:"token" yaml:"-"`
	RepoOwner  string `mapstructure:"repo_owner" yaml:"repo_owner"`
	RepoName   string `mapstructure:"repo_name" yaml:"repo_name"`
	BaseBranch string `mapstructure:"base_branch" yaml:"base_branch"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dependafix")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Build --
	v.SetDefault("build.tool", "auto")
	v.SetDefault("build.timeout", "5m")
	v.SetDefault("build.maven_binary", "mvn")
	v.SetDefault("build.gradle_binary", "gradle")

	// -- Fixgen --
	v.SetDefault("fixgen.timeout", "60s")
	v.SetDefault("fixgen.max_retry_elapsed", "2m")
	v.SetDefault("fixgen.requests_per_second", 2.0)
	v.SetDefault("fixgen.max_concurrent_per_handler", 4)

	// -- Orchestrator --
	v.SetDefault("orchestrator.revert_on_failure", true)
	v.SetDefault("orchestrator.keep_snapshot_branch", false)

	// -- Risk --
	v.SetDefault("risk.high_risk_dependencies", []string{
		"org.springframework", "org.hibernate", "org.apache.logging.log4j",
		"com.fasterxml.jackson", "jakarta.servlet",
	})
	v.SetDefault("risk.critical_dependencies", []string{
		"org.springframework", "org.hibernate",
	})
	v.SetDefault("risk.min_level_to_run", "low")

	// -- Git / GitHub --
	v.SetDefault("git.author_name", "dependafix-bot")
	v.SetDefault("git.author_email", "bot@dependafix.dev")
	v.SetDefault("github.base_branch", "main")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, this indicates a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper creates a configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	_ = v.BindEnv("github.token", "DEPENDAFIX_GITHUB_TOKEN")
	_ = v.BindEnv("fixgen.api_key", "DEPENDAFIX_FIXGEN_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Unmarshal does not always pick up bound env vars for unset keys.
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("DEPENDAFIX_GITHUB_TOKEN")
	}
	if cfg.Fixgen.APIKey == "" {
		cfg.Fixgen.APIKey = os.Getenv("DEPENDAFIX_FIXGEN_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Build.Tool {
	case "auto", "maven", "gradle":
	default:
		return fmt.Errorf("build.tool must be one of auto, maven, gradle (got %q)", c.Build.Tool)
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("build.timeout must be a positive duration")
	}
	if c.Fixgen.MaxConcurrentPerHandler <= 0 {
		return fmt.Errorf("fixgen.max_concurrent_per_handler must be a positive integer")
	}
	if c.Fixgen.RequestsPerSecond <= 0 {
		return fmt.Errorf("fixgen.requests_per_second must be positive")
	}
	switch c.Risk.MinLevelToRun {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("risk.min_level_to_run must be one of low, medium, high (got %q)", c.Risk.MinLevelToRun)
	}
	return nil
}
