package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/broadband-plan-service/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure inicializa o logger global baseando-se na configuração do YAML.
// O logger retornado também passa a ser o padrão de log.Ctx para contextos
// sem logger próprio.
func Configure(cfg config.LoggingConf, service string) zerolog.Logger {
	logger := New(os.Stdout, cfg, service)

	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// New monta o logger sobre um writer qualquer, sem tocar no estado global
// além do nível.
func New(w io.Writer, cfg config.LoggingConf, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// JSON para produção, Console "bonito" para local se solicitado
	output := w
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	return ctx.Logger()
}
