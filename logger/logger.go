package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config.Format values.
const (
	// FormatJSON writes one JSON object per line.
	FormatJSON = "json"
	// FormatConsole writes human-readable lines through zerolog.ConsoleWriter.
	FormatConsole = "console"
)

// Config.Output values.
const (
	// OutputStdout writes to standard output.
	OutputStdout = "stdout"
	// OutputStderr writes to standard error.
	OutputStderr = "stderr"
	// OutputNone disables the stream writer; only File receives lines.
	OutputNone = "none"
)

// Config contains logging configuration.
type Config struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Output  string `mapstructure:"output"`
	NoColor bool   `mapstructure:"no_color"`

	// File, when set, receives JSON lines in addition to Output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

// Validate checks level, format and output.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logger: invalid level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("logger: format must be json or console (got %q)", c.Format)
	}
	switch strings.ToLower(c.Output) {
	case OutputStdout, OutputStderr, OutputNone:
	default:
		return fmt.Errorf("logger: output must be stdout, stderr or none (got %q)", c.Output)
	}
	if c.Output == OutputNone && c.File == "" {
		return fmt.Errorf("logger: output none requires a file")
	}
	return nil
}

// New builds a logger tagged with service. The returned close function
// flushes and closes the rotating file, if any.
func New(cfg Config, service string) (zerolog.Logger, func() error, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return zerolog.Nop(), noClose, err
	}
	level, _ := zerolog.ParseLevel(strings.ToLower(cfg.Level))

	var writers []io.Writer
	if w := streamWriter(cfg); w != nil {
		writers = append(writers, w)
	}

	closeFn := noClose
	if cfg.File != "" {
		file := Rotating(cfg.File, cfg)
		writers = append(writers, file)
		closeFn = file.Close
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if service != "" {
		zl = zl.With().Str("service", service).Logger()
	}
	return zl, closeFn, nil
}

// Rotating returns a lumberjack file writer for path using cfg's rotation
// settings.
func Rotating(path string, cfg Config) *lumberjack.Logger {
	cfg.ApplyDefaults()
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

func streamWriter(cfg Config) io.Writer {
	var f *os.File
	switch strings.ToLower(cfg.Output) {
	case OutputNone:
		return nil
	case OutputStderr:
		f = os.Stderr
	default:
		f = os.Stdout
	}

	if strings.ToLower(cfg.Format) == FormatConsole {
		return zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}
	}
	return f
}

func noClose() error { return nil }
