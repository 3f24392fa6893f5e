package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	ModeWindow   = "window"
	ModeTerminal = "terminal"
	ModeHeadless = "headless"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrInvalidColor  = errors.New("invalid color")
)

// Color is an RGB triple shared by the raylib and terminal renderers.
type Color struct {
	R, G, B uint8
}

// Palette holds the colors used to draw a frame.
type Palette struct {
	Background Color
	Food       Color
	Snake      Color
}

type Config struct {
	Mode         string
	CellSize     int
	Period       time.Duration
	WindowWidth  int
	WindowHeight int
	Seed         uint64
	Autopilot    bool
	Spectate     string
	RestartDelay time.Duration
	MaxGames     int
	LogLevel     string
	LogFile      string
	Palette      Palette

	// Headless grid size, in cells.
	GridWidth  int
	GridHeight int
}

func Default() Config {
	return Config{
		Mode:         ModeWindow,
		CellSize:     20,
		Period:       100 * time.Millisecond,
		WindowWidth:  1280,
		WindowHeight: 800,
		RestartDelay: time.Second,
		LogLevel:     "info",
		GridWidth:    40,
		GridHeight:   30,
		Palette: Palette{
			Background: Color{R: 0x22, G: 0x22, B: 0x22},
			Food:       Color{R: 0xff, G: 0x00, B: 0x00},
			Snake:      Color{R: 0x00, G: 0xff, B: 0x00},
		},
	}
}

// Parse fills a Config from command line arguments, starting from Default.
func Parse(args []string) (Config, error) {
	return parseWithOutput(args, os.Stderr)
}

func parseWithOutput(args []string, output io.Writer) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("snake", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "host: window, terminal or headless")
	fs.IntVar(&cfg.CellSize, "cell", cfg.CellSize, "cell size in pixels")
	fs.DurationVar(&cfg.Period, "speed", cfg.Period, "time between moves (lower = faster)")
	fs.IntVar(&cfg.WindowWidth, "width", cfg.WindowWidth, "window width in pixels")
	fs.IntVar(&cfg.WindowHeight, "height", cfg.WindowHeight, "window height in pixels")
	fs.IntVar(&cfg.GridWidth, "grid-width", cfg.GridWidth, "grid width in cells (headless)")
	fs.IntVar(&cfg.GridHeight, "grid-height", cfg.GridHeight, "grid height in cells (headless)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "food placement seed, 0 for time based")
	fs.BoolVar(&cfg.Autopilot, "autopilot", cfg.Autopilot, "let the Q-learning pilot steer")
	fs.StringVar(&cfg.Spectate, "spectate", cfg.Spectate, "address for the spectator feed, e.g. :8080")
	fs.DurationVar(&cfg.RestartDelay, "restart-delay", cfg.RestartDelay, "pause before restarting when nobody acknowledges game over")
	fs.IntVar(&cfg.MaxGames, "games", cfg.MaxGames, "stop after this many games, 0 for no limit")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file, stderr if empty")

	background := fs.String("bg", FormatHexColor(cfg.Palette.Background), "background color")
	food := fs.String("food-color", FormatHexColor(cfg.Palette.Food), "food color")
	snake := fs.String("snake-color", FormatHexColor(cfg.Palette.Snake), "snake color")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	var err error
	if cfg.Palette.Background, err = ParseHexColor(*background); err != nil {
		return cfg, errors.Wrap(err, "bg")
	}
	if cfg.Palette.Food, err = ParseHexColor(*food); err != nil {
		return cfg, errors.Wrap(err, "food-color")
	}
	if cfg.Palette.Snake, err = ParseHexColor(*snake); err != nil {
		return cfg, errors.Wrap(err, "snake-color")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeWindow, ModeTerminal, ModeHeadless:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown mode %q", c.Mode)
	}
	if c.CellSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "cell size %d", c.CellSize)
	}
	if c.Period <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "speed %s", c.Period)
	}
	if c.WindowWidth < c.CellSize || c.WindowHeight < c.CellSize {
		return errors.Wrapf(ErrInvalidConfig, "window %dx%d smaller than one cell", c.WindowWidth, c.WindowHeight)
	}
	if c.GridWidth <= 0 || c.GridHeight <= 0 || c.GridWidth*c.GridHeight < 2 {
		return errors.Wrapf(ErrInvalidConfig, "grid %dx%d", c.GridWidth, c.GridHeight)
	}
	if c.MaxGames < 0 {
		return errors.Wrapf(ErrInvalidConfig, "games %d", c.MaxGames)
	}
	if c.RestartDelay < 0 {
		return errors.Wrapf(ErrInvalidConfig, "restart delay %s", c.RestartDelay)
	}
	return nil
}

// GridFor derives the grid size from a viewport in pixels.
func (c Config) GridFor(pixelsWide, pixelsHigh int) (int, int) {
	return pixelsWide / c.CellSize, pixelsHigh / c.CellSize
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, errors.Wrapf(ErrInvalidColor, "%q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, errors.Wrapf(ErrInvalidColor, "%q", s)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func FormatHexColor(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
