package theme

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

// terminal is one terminal emulator whose config may carry a palette.
type terminal struct {
	name  string
	dir   func(home string) string // watched by Watcher
	files []string                 // relative to dir
	parse func(path string) (Palette, bool)
}

// terminals in priority order; the first one that parses wins.
var terminals = []terminal{
	{
		name:  "omarchy",
		dir:   func(home string) string { return filepath.Join(home, ".config", "omarchy", "current", "theme") },
		files: []string{"alacritty.toml"},
		parse: parseAlacrittyTOML,
	},
	{
		name:  "alacritty",
		dir:   func(home string) string { return filepath.Join(home, ".config", "alacritty") },
		files: []string{"alacritty.toml", filepath.Join("..", "..", ".alacritty.toml")},
		parse: parseAlacrittyTOML,
	},
	{
		name:  "kitty",
		dir:   func(home string) string { return filepath.Join(home, ".config", "kitty") },
		files: []string{"kitty.conf"},
		parse: parseKittyConf,
	},
	{
		name:  "foot",
		dir:   func(home string) string { return filepath.Join(home, ".config", "foot") },
		files: []string{"foot.ini"},
		parse: parseFootINI,
	},
}

// Detect loads the palette from the user's terminal config.
func Detect() Palette {
	home, err := os.UserHomeDir()
	if err != nil {
		return applyEnvOverrides(DefaultPalette(), os.Getenv)
	}
	p, _ := DetectIn(home)
	return applyEnvOverrides(p, os.Getenv)
}

// DetectIn looks for terminal configs under home and returns the palette
// with the name of the terminal it came from, or the default palette and "".
func DetectIn(home string) (Palette, string) {
	for _, src := range terminals {
		dir := src.dir(home)
		for _, file := range src.files {
			if p, ok := src.parse(filepath.Join(dir, file)); ok {
				return p, src.name
			}
		}
	}
	return DefaultPalette(), ""
}

// alacrittyConfig represents the relevant parts of alacritty.toml
type alacrittyConfig struct {
	Colors struct {
		Primary struct {
			Background string `toml:"background"`
			Foreground string `toml:"foreground"`
		} `toml:"primary"`
		Selection struct {
			Background string `toml:"background"`
		} `toml:"selection"`
		Normal struct {
			Green string `toml:"green"`
			Red   string `toml:"red"`
		} `toml:"normal"`
	} `toml:"colors"`
}

func parseAlacrittyTOML(path string) (Palette, bool) {
	var cfg alacrittyConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Palette{}, false
	}
	c := cfg.Colors
	p, ok := derive(c.Primary.Background, c.Primary.Foreground, c.Selection.Background)
	if !ok {
		return Palette{}, false
	}
	if c.Normal.Green != "" {
		p.Accent = normalizeHex(c.Normal.Green)
	}
	if c.Normal.Red != "" {
		p.Error = normalizeHex(c.Normal.Red)
	}
	return p, true
}

func parseKittyConf(path string) (Palette, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, false
	}

	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if parts := strings.Fields(line); len(parts) >= 2 {
			values[parts[0]] = parts[1]
		}
	}

	p, ok := derive(values["background"], values["foreground"], values["selection_background"])
	if !ok {
		return Palette{}, false
	}
	if green := values["color2"]; green != "" {
		p.Accent = normalizeHex(green)
	}
	return p, true
}

func parseFootINI(path string) (Palette, bool) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Palette{}, false
	}

	colors := cfg.Section("colors")
	p, ok := derive(
		colors.Key("background").String(),
		colors.Key("foreground").String(),
		colors.Key("selection-background").String(),
	)
	if !ok {
		return Palette{}, false
	}
	if green := colors.Key("regular2").String(); green != "" {
		p.Accent = normalizeHex(green)
	}
	return p, true
}

// derive builds a palette from the primary colors. Background and
// foreground are required; everything else is derived when missing.
func derive(bg, fg, selection string) (Palette, bool) {
	if bg == "" || fg == "" {
		return Palette{}, false
	}

	p := DefaultPalette()
	p.BG = normalizeHex(bg)
	p.FG = normalizeHex(fg)
	p.Muted = dimColor(p.FG, 0.5)
	if selection != "" {
		p.AccentBg = normalizeHex(selection)
	} else {
		p.AccentBg = MixColors(p.BG, p.FG, 0.15)
	}
	return p, true
}

// applyEnvOverrides applies TORRENTHUNT_* environment variables
func applyEnvOverrides(p Palette, getenv func(string) string) Palette {
	for env, field := range map[string]*string{
		"TORRENTHUNT_BG":     &p.BG,
		"TORRENTHUNT_FG":     &p.FG,
		"TORRENTHUNT_MUTED":  &p.Muted,
		"TORRENTHUNT_ACCENT": &p.Accent,
	} {
		if v := getenv(env); v != "" {
			*field = normalizeHex(v)
		}
	}
	return p
}

var (
	hexColor   = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	shortColor = regexp.MustCompile(`^#[0-9a-fA-F]{3}$`)
)

// normalizeHex brings "0xRRGGBB", "RRGGBB" and "#RGB" to "#rrggbb". Other
// values are returned with a leading '#' and otherwise untouched.
func normalizeHex(color string) string {
	color = strings.TrimSpace(color)
	color = strings.Trim(color, `'"`)

	if strings.HasPrefix(color, "0x") || strings.HasPrefix(color, "0X") {
		color = "#" + color[2:]
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}

	switch {
	case hexColor.MatchString(color):
		return strings.ToLower(color)
	case shortColor.MatchString(color):
		r, g, b := color[1:2], color[2:3], color[3:4]
		return strings.ToLower("#" + r + r + g + g + b + b)
	}
	return color
}

func rgb(hex string) (r, g, b float64, ok bool) {
	hex = normalizeHex(hex)
	if !hexColor.MatchString(hex) {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff), true
}

func toHex(r, g, b float64) string {
	return fmt.Sprintf("#%02x%02x%02x", uint8(r), uint8(g), uint8(b))
}

// dimColor reduces the brightness of a hex color
func dimColor(hex string, factor float64) string {
	r, g, b, ok := rgb(hex)
	if !ok {
		return hex
	}
	return toHex(r*factor, g*factor, b*factor)
}

// MixColors blends two colors together; t=0 is hex1, t=1 is hex2.
func MixColors(hex1, hex2 string, t float64) string {
	r1, g1, b1, ok1 := rgb(hex1)
	r2, g2, b2, ok2 := rgb(hex2)
	if !ok1 || !ok2 {
		return hex1
	}
	mix := func(a, b float64) float64 { return a*(1-t) + b*t }
	return toHex(mix(r1, r2), mix(g1, g2), mix(b1, b2))
}
