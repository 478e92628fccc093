package termsnap

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ColorTokenKind distinguishes the three ways a color can be expressed in
// the wire protocol: a named terminal color, an indexed palette entry (0-255),
// or a literal RGB triple carried by a 24-bit color-spec escape.
type ColorTokenKind uint8

const (
	ColorNamed ColorTokenKind = iota
	ColorIndexed
	ColorSpec
)

// NamedColorID enumerates the named terminal colors, including the two
// pseudo-colors (Foreground, Background) that have no index in the 256-color
// palette.
type NamedColorID uint8

const (
	NamedForeground NamedColorID = iota
	NamedBackground
	NamedBlack
	NamedRed
	NamedGreen
	NamedYellow
	NamedBlue
	NamedMagenta
	NamedCyan
	NamedWhite
	NamedBrightBlack
	NamedBrightRed
	NamedBrightGreen
	NamedBrightYellow
	NamedBrightBlue
	NamedBrightMagenta
	NamedBrightCyan
	NamedBrightWhite
)

// ColorToken is the unresolved color value attached to a cell or carried in
// an SGR attribute. It is resolved to a concrete RGB value only at render
// time, by Resolve.
type ColorToken struct {
	Kind    ColorTokenKind
	Named   NamedColorID
	Index   uint8
	R, G, B uint8
}

// Named constructs a token referring to one of the named terminal colors.
func Named(id NamedColorID) ColorToken { return ColorToken{Kind: ColorNamed, Named: id} }

// Indexed constructs a token referring to a palette slot (0-255).
func Indexed(i uint8) ColorToken { return ColorToken{Kind: ColorIndexed, Index: i} }

// Spec constructs a token carrying a literal RGB triple (SGR 38/48;2;r;g;b).
func Spec(r, g, b uint8) ColorToken { return ColorToken{Kind: ColorSpec, R: r, G: g, B: b} }

// DefaultForeground and DefaultBackground are the tokens a fresh cell and a
// reset SGR state carry.
var (
	DefaultForeground = Named(NamedForeground)
	DefaultBackground = Named(NamedBackground)
)

// namedHex holds the Solarized Dark values for the pseudo-colors that are
// not part of the 256-entry indexed palette.
var namedHex = map[NamedColorID]string{
	NamedForeground: "#839496",
	NamedBackground: "#002b36",
}

// palette is the fixed 256-entry color table: 16 Solarized Dark named
// colors, a 6x6x6 RGB cube, and a 24-step gray ramp. Index order and the
// cube/ramp formulas match the reference terminal's color table exactly so
// that programs relying on standard xterm-256color indices render correctly.
var palette [256]colorful.Color

func init() {
	namedHexByIndex := [16]string{
		"#073642", // Black
		"#dc322f", // Red
		"#859900", // Green
		"#b58900", // Yellow
		"#268bd2", // Blue
		"#d33682", // Magenta
		"#2aa198", // Cyan
		"#eee8d5", // White
		"#002b36", // BrightBlack
		"#cb4b16", // BrightRed
		"#586e75", // BrightGreen
		"#657b83", // BrightYellow
		"#839496", // BrightBlue
		"#6c71c4", // BrightMagenta
		"#93a1a1", // BrightCyan
		"#fdf6e3", // BrightWhite
	}
	for i, hex := range namedHexByIndex {
		c, err := colorful.Hex(hex)
		if err != nil {
			panic(fmt.Sprintf("termsnap: invalid built-in palette color %q: %v", hex, err))
		}
		palette[i] = c
	}

	cubeStep := func(v int) uint8 {
		if v == 0 {
			return 0
		}
		return uint8(v*40 + 55)
	}
	index := 16
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette[index] = rgbColor(cubeStep(r), cubeStep(g), cubeStep(b))
				index++
			}
		}
	}

	for i := 0; i < 24; i++ {
		v := uint8(i*10 + 8)
		palette[index] = rgbColor(v, v, v)
		index++
	}
}

func rgbColor(r, g, b uint8) colorful.Color {
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// namedColorful resolves a named pseudo-color or an ANSI named color (which
// overlaps with the first 16 palette entries) to a colorful.Color.
func namedColorful(id NamedColorID) colorful.Color {
	if hex, ok := namedHex[id]; ok {
		c, err := colorful.Hex(hex)
		if err == nil {
			return c
		}
	}
	return palette[uint8(id)-uint8(NamedBlack)]
}

// Resolve turns a color token into its "#rrggbb" hex representation, ready
// to drop into an SVG fill or stroke attribute.
func Resolve(token ColorToken) string {
	switch token.Kind {
	case ColorIndexed:
		return palette[token.Index].Hex()
	case ColorSpec:
		return rgbColor(token.R, token.G, token.B).Hex()
	default:
		return namedColorful(token.Named).Hex()
	}
}
