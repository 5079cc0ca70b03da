package model

import "time"

// Config is the complete runtime configuration.
// It is unmarshaled by viper (mapstructure tags) and printed by `config show` (yaml tags).
type Config struct {
	DataDir  string         `yaml:"data_dir" mapstructure:"data_dir"`
	TextIn   TextInConfig   `yaml:"textin" mapstructure:"textin"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Classify ClassifyConfig `yaml:"classify" mapstructure:"classify"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

// TextInConfig configures the TextIn XParse extraction backend
type TextInConfig struct {
	AppID      string        `yaml:"app_id" mapstructure:"app_id"`
	SecretCode string        `yaml:"secret_code" mapstructure:"secret_code"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PageCount  int           `yaml:"page_count" mapstructure:"page_count"`
	MaxBytes   int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`

	// Client-side throttling, applied per endpoint
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig configures the optional role-classification advisor
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig configures the extraction result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StoreConfig configures the review report
type StoreConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"` // xlsx, csv, sqlite; empty = derive from extension
	Sheet  string `yaml:"sheet" mapstructure:"sheet"`   // xlsx only
	Table  string `yaml:"table" mapstructure:"table"`   // sqlite only
	Batch  bool   `yaml:"batch" mapstructure:"batch"`   // write all records once at the end of the run
}

// ClassifyConfig tunes the role classifier
type ClassifyConfig struct {
	UsePreviews   bool `yaml:"use_previews" mapstructure:"use_previews"`
	MinFormLabels int  `yaml:"min_form_labels" mapstructure:"min_form_labels"`
	PreviewChars  int  `yaml:"preview_chars" mapstructure:"preview_chars"`
}

// OutputConfig controls terminal output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	Notify  bool `yaml:"notify" mapstructure:"notify"` // print a task update per dossier
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		TextIn: TextInConfig{
			BaseURL:           "https://api.textin.com",
			Timeout:           2 * time.Minute,
			PageCount:         50,
			MaxBytes:          50 << 20,
			MaxRetries:        3,
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 500,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".textaudit-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path:  "review_results.xlsx",
			Sheet: "Sheet1",
			Table: "review_results",
		},
		Classify: ClassifyConfig{
			UsePreviews:   true,
			MinFormLabels: 4,
			PreviewChars:  4000,
		},
		Output: OutputConfig{
			Notify: true,
		},
	}
}
