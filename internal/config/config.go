package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 100 * 1024 * 1024 // 100MB
	DefaultMinTextLength = 100
	DefaultRenderDPI     = 144.0 // 2x zoom of the 72dpi page box
	DefaultPDFLanguages  = "chi_sim+eng"
	DefaultImageLanguage = "chi_sim"

	DefaultProjectManager = "马晓健"
	DefaultInvoiceType    = "增值税电子普通发票"
	DefaultPaymentType    = "科研费用"
	DefaultSubjectDetail  = "科研耗材"
	DefaultAmountCeiling  = 1000000.0
	DefaultReviewLimit    = 100000.0

	DefaultDepartment = "人工智能研究院"

	DefaultPendingFolder     = "tbd"
	DefaultDoneFolder        = "done"
	DefaultDuplicatesFolder  = "duplicates"
	DefaultIndexDatabaseName = ".invoice_index.db"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultLLMBaseURL     = "https://api.siliconflow.cn/v1"
	DefaultLLMModel       = "Qwen/Qwen2.5-7B-Instruct"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultLLMMaxPages    = 10
	DefaultLLMTemperature = 0.3
	DefaultLLMMaxTokens   = 2000
	DefaultLLMTimeout     = 120 * time.Second

	envPrefix = "CLERK"
)

// Config holds all configuration for pdf-clerk.
type Config struct {
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
	ConfigFile  string

	Server      ServerConfig
	Extraction  ExtractionConfig
	Expense     ExpenseConfig
	Procurement ProcurementConfig
	Archive     ArchiveConfig
	LLM         LLMConfig
}

// ServerConfig configures the MCP stdio server.
type ServerConfig struct {
	Name      string
	Version   string
	Directory string
}

// ExtractionConfig controls the native text / OCR fallback chain.
type ExtractionConfig struct {
	MinTextLength int
	RenderDPI     float64
	PDFLanguages  []string
	ImageLanguage []string
}

// ExpenseConfig carries the fixed columns of an expense report.
type ExpenseConfig struct {
	ProjectManager string
	InvoiceType    string
	PaymentType    string
	SubjectDetail  string
	AmountCeiling  float64 // exclusive upper bound for a parsed amount
	ReviewLimit    float64 // amounts above this need manual confirmation
}

// ProcurementConfig carries the header block of a procurement request.
type ProcurementConfig struct {
	Applicant  string
	Department string
}

// ArchiveConfig locates the reimbursed-invoice archive.
type ArchiveConfig struct {
	BasePath         string
	PendingFolder    string
	DoneFolder       string
	DuplicatesFolder string
	IndexPath        string
}

// LLMConfig configures the summarization client.
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxPages    int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// PendingPath returns the absolute pending folder inside the archive.
func (a ArchiveConfig) PendingPath() string {
	return filepath.Join(a.BasePath, a.PendingFolder)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
		Server: ServerConfig{
			Name:      "pdf-clerk",
			Version:   "1.0.0",
			Directory: currentDir,
		},
		Extraction: ExtractionConfig{
			MinTextLength: DefaultMinTextLength,
			RenderDPI:     DefaultRenderDPI,
			PDFLanguages:  splitLanguages(DefaultPDFLanguages),
			ImageLanguage: splitLanguages(DefaultImageLanguage),
		},
		Expense: ExpenseConfig{
			ProjectManager: DefaultProjectManager,
			InvoiceType:    DefaultInvoiceType,
			PaymentType:    DefaultPaymentType,
			SubjectDetail:  DefaultSubjectDetail,
			AmountCeiling:  DefaultAmountCeiling,
			ReviewLimit:    DefaultReviewLimit,
		},
		Procurement: ProcurementConfig{
			Department: DefaultDepartment,
		},
		Archive: ArchiveConfig{
			BasePath:         currentDir,
			PendingFolder:    DefaultPendingFolder,
			DoneFolder:       DefaultDoneFolder,
			DuplicatesFolder: DefaultDuplicatesFolder,
		},
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     DefaultLLMBaseURL,
			Model:       DefaultLLMModel,
			MaxPages:    DefaultLLMMaxPages,
			Temperature: DefaultLLMTemperature,
			MaxTokens:   DefaultLLMMaxTokens,
			Timeout:     DefaultLLMTimeout,
		},
	}
}

// RegisterFlags defines the persistent command line flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	cfg := DefaultConfig()

	fs.String("config", "", "Optional config file (yaml, toml or json)")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.String("dir", cfg.Server.Directory, "Directory the MCP server may read from")
	fs.Int("min-text", cfg.Extraction.MinTextLength, "Native text shorter than this falls back to OCR")
	fs.Float64("dpi", cfg.Extraction.RenderDPI, "Render resolution for OCR")
	fs.String("ocr-lang", DefaultPDFLanguages, "Tesseract languages for PDF pages")
	fs.String("image-lang", DefaultImageLanguage, "Tesseract languages for photos")
	fs.String("manager", cfg.Expense.ProjectManager, "Project manager written to expense rows")
	fs.String("applicant", cfg.Procurement.Applicant, "Applicant on procurement requests")
	fs.String("department", cfg.Procurement.Department, "Department on procurement requests")
	fs.String("archive", cfg.Archive.BasePath, "Root folder of reimbursed invoices")
	fs.String("pending", cfg.Archive.PendingFolder, "Pending folder name inside the archive")
	fs.String("index", "", "Invoice index database (default <archive>/"+DefaultIndexDatabaseName+")")
	fs.String("provider", cfg.LLM.Provider, "LLM provider (openai, gemini)")
	fs.String("api-key", "", "LLM API key (default from SILICONFLOW_API_KEY or GEMINI_API_KEY)")
	fs.String("base-url", cfg.LLM.BaseURL, "OpenAI-compatible API base URL")
	fs.String("model", cfg.LLM.Model, "LLM model name")
	fs.Int("max-pages", cfg.LLM.MaxPages, "Pages read per PDF for summaries")
}

// Load builds a Config from defaults, an optional .env file, environment
// variables, an optional config file and the flags in fs, in increasing
// precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	v := viper.New()
	setupViperEnvironment(v, cfg)

	if fs != nil {
		bindFlagsToViper(v, fs)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(v, cfg, fs)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", cfg.LogLevel)
	v.SetDefault("max-file-size", cfg.MaxFileSize)
	v.SetDefault("dir", cfg.Server.Directory)
	v.SetDefault("min-text", cfg.Extraction.MinTextLength)
	v.SetDefault("dpi", cfg.Extraction.RenderDPI)
	v.SetDefault("ocr-lang", DefaultPDFLanguages)
	v.SetDefault("image-lang", DefaultImageLanguage)
	v.SetDefault("manager", cfg.Expense.ProjectManager)
	v.SetDefault("invoice-type", cfg.Expense.InvoiceType)
	v.SetDefault("payment-type", cfg.Expense.PaymentType)
	v.SetDefault("subject-detail", cfg.Expense.SubjectDetail)
	v.SetDefault("amount-ceiling", cfg.Expense.AmountCeiling)
	v.SetDefault("review-limit", cfg.Expense.ReviewLimit)
	v.SetDefault("applicant", cfg.Procurement.Applicant)
	v.SetDefault("department", cfg.Procurement.Department)
	v.SetDefault("archive", cfg.Archive.BasePath)
	v.SetDefault("pending", cfg.Archive.PendingFolder)
	v.SetDefault("provider", cfg.LLM.Provider)
	v.SetDefault("base-url", cfg.LLM.BaseURL)
	v.SetDefault("model", cfg.LLM.Model)
	v.SetDefault("max-pages", cfg.LLM.MaxPages)
	v.SetDefault("temperature", cfg.LLM.Temperature)
	v.SetDefault("max-tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm-timeout", cfg.LLM.Timeout)
}

// bindFlagsToViper binds every flag in fs to the viper key of the same name
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config, fs *pflag.FlagSet) {
	cfg.ConfigFile = v.GetString("config")
	cfg.LogLevel = v.GetString("log-level")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.Server.Directory = v.GetString("dir")

	cfg.Extraction.MinTextLength = v.GetInt("min-text")
	cfg.Extraction.RenderDPI = v.GetFloat64("dpi")
	cfg.Extraction.PDFLanguages = splitLanguages(v.GetString("ocr-lang"))
	cfg.Extraction.ImageLanguage = splitLanguages(v.GetString("image-lang"))

	cfg.Expense.ProjectManager = v.GetString("manager")
	cfg.Expense.InvoiceType = v.GetString("invoice-type")
	cfg.Expense.PaymentType = v.GetString("payment-type")
	cfg.Expense.SubjectDetail = v.GetString("subject-detail")
	cfg.Expense.AmountCeiling = v.GetFloat64("amount-ceiling")
	cfg.Expense.ReviewLimit = v.GetFloat64("review-limit")

	cfg.Procurement.Applicant = v.GetString("applicant")
	cfg.Procurement.Department = v.GetString("department")

	cfg.Archive.BasePath = v.GetString("archive")
	cfg.Archive.PendingFolder = v.GetString("pending")
	cfg.Archive.IndexPath = v.GetString("index")

	cfg.LLM.Provider = strings.ToLower(v.GetString("provider"))
	cfg.LLM.Model = v.GetString("model")
	cfg.LLM.BaseURL = v.GetString("base-url")
	cfg.LLM.MaxPages = v.GetInt("max-pages")
	cfg.LLM.Temperature = v.GetFloat64("temperature")
	cfg.LLM.MaxTokens = v.GetInt("max-tokens")
	cfg.LLM.Timeout = v.GetDuration("llm-timeout")
	cfg.LLM.APIKey = v.GetString("api-key")

	if cfg.LLM.Provider == ProviderGemini {
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
		// The OpenAI default model means nothing to Gemini.
		if fs == nil || !fs.Changed("model") {
			if cfg.LLM.Model == DefaultLLMModel {
				cfg.LLM.Model = DefaultGeminiModel
			}
		}
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("SILICONFLOW_API_KEY")
	}
}

func (c *Config) expandPaths() {
	if c.Server.Directory != "" {
		if abs, err := filepath.Abs(c.Server.Directory); err == nil {
			c.Server.Directory = abs
		}
	}
	if c.Archive.BasePath != "" {
		if abs, err := filepath.Abs(c.Archive.BasePath); err == nil {
			c.Archive.BasePath = abs
		}
	}
	if c.Archive.IndexPath == "" {
		c.Archive.IndexPath = filepath.Join(c.Archive.BasePath, DefaultIndexDatabaseName)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Extraction.MinTextLength < 0 {
		return errors.New("minimum text length cannot be negative")
	}
	if c.Extraction.RenderDPI <= 0 {
		return errors.New("render DPI must be positive")
	}
	if len(c.Extraction.PDFLanguages) == 0 || len(c.Extraction.ImageLanguage) == 0 {
		return errors.New("OCR languages cannot be empty")
	}

	if c.Expense.AmountCeiling <= 0 || c.Expense.ReviewLimit <= 0 {
		return errors.New("amount limits must be positive")
	}
	if c.Expense.AmountCeiling <= c.Expense.ReviewLimit {
		return fmt.Errorf("amount ceiling %.2f must exceed review limit %.2f",
			c.Expense.AmountCeiling, c.Expense.ReviewLimit)
	}

	if c.Archive.PendingFolder == "" {
		return errors.New("pending folder name cannot be empty")
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("invalid LLM provider: %s (must be one of: openai, gemini)", c.LLM.Provider)
	}
	if c.LLM.MaxPages < 0 {
		return errors.New("max pages cannot be negative")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("max tokens must be positive")
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{LogLevel: %s, MaxFileSize: %d, Archive: %s, Provider: %s, Model: %s}",
		c.LogLevel, c.MaxFileSize, c.Archive.BasePath, c.LLM.Provider, c.LLM.Model)
}

func splitLanguages(s string) []string {
	var langs []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}
