package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Render  RenderConfig  `yaml:"render" mapstructure:"render"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the job/template persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ExtractConfig configures PDF text extraction.
type ExtractConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// RenderConfig configures document rendering and post-processing.
type RenderConfig struct {
	OutDir       string `yaml:"out_dir" mapstructure:"out_dir"`
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`
	UploadsDir   string `yaml:"uploads_dir" mapstructure:"uploads_dir"`
	SofficePath  string `yaml:"soffice_path" mapstructure:"soffice_path"`
	ConvertPDF   bool   `yaml:"convert_pdf" mapstructure:"convert_pdf"`

	// Static holds the fixed document blocks (supplier identity, acquirer
	// default, GQAR contacts, contract modification and deviation texts)
	// bound into the template alongside the canonical fields.
	Static map[string]string `yaml:"static" mapstructure:"static"`
}

// ServerConfig configures the HTTP boundary layer.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// BatchConfig configures batch conversion.
type BatchConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "coc.db")
	v.SetDefault("extract.provider", "embedded")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("render.out_dir", "out")
	v.SetDefault("render.templates_dir", "templates")
	v.SetDefault("render.uploads_dir", "uploads")
	v.SetDefault("render.soffice_path", "libreoffice")
	v.SetDefault("render.convert_pdf", false)
	v.SetDefault("render.static", defaultStatic())
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("batch.max_concurrent_jobs", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// defaultStatic returns the reference blocks printed on every certificate
// unless a deployment overrides them.
func defaultStatic() map[string]string {
	return map[string]string{
		"supplier_name":    "Elbit Systems C4I and Cyber Ltd",
		"supplier_address": "2 Hamachshev, Netanya\nIsrael",
		"supplier_contact": "Ido Shilo",
		"supplier_email":   "Ido.Shilo@elbitsystems.com",
		"acquirer_default": "NETHERLANDS MINISTRY OF DEFENCE\nCOMMIT\nProjects Procurement Division\nHerculeslaan 1, 3584 AB Utrecht MPC 55 A\nThe Netherlands",
		"gqar_name":        "R. Kompier",
		"gqar_phone":       "+31620415178",
		"gqar_email":       "R.Kompier@mindef.nl",
		"contract_modification": "AMENDEMENT 15-12-2020 VOSS additional order\n" +
			"C4I solution and deliveries 11-12-2020\n" +
			"10-01-2022 Amendment to the Agreement TCP\n" +
			"187, TCP 192, TCP 193 DMO signed\n" +
			"Approved TCP's list",
		"approved_deviations": "See remarks in Box 14.\nELB_VOS_POR001\nELB_VOS_CE0003\nELB_VOS_SEC001\nELB_VOS_CE0004",
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
