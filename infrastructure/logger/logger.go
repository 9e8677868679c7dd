package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spooky-finn/go-bitmex-orderbook/config"
)

type Logger = zerolog.Logger

// output lets package level loggers created at init follow a later Setup.
type output struct {
	mu sync.RWMutex
	w  io.Writer
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.w.Write(p)
}

func (o *output) set(w io.Writer) {
	o.mu.Lock()
	o.w = w
	o.mu.Unlock()
}

var out = &output{w: os.Stderr}

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
}

// New returns a logger tagged with the component name.
func New(component string) Logger {
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

// Setup applies level and format to every logger returned by New.
func Setup(cfg config.Logging) {
	if cfg.Pretty {
		out.set(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	} else {
		out.set(os.Stderr)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// SetOutput redirects every logger; used by tests.
func SetOutput(w io.Writer) { out.set(w) }
