package dashboard

import "predictboard/internal/board"

// Palette is a theme's colours as hex strings. The terminal client feeds
// them to lipgloss and the web page turns them into CSS variables.
type Palette struct {
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	Muted      string `json:"muted"`
	Border     string `json:"border"`
	Accent     string `json:"accent"`
	Up         string `json:"up"`
	Down       string `json:"down"`
}

var (
	darkPalette = Palette{
		Background: "#000000",
		Surface:    "#0f0f0f",
		Text:       "#ffffff",
		Muted:      "#b3b3b3",
		Border:     "#2a2a2a",
		Accent:     "#00ccff",
		Up:         "#00ff88",
		Down:       "#ff6b6b",
	}
	lightPalette = Palette{
		Background: "#fafafa",
		Surface:    "#ffffff",
		Text:       "#212121",
		Muted:      "#616161",
		Border:     "#e0e0e0",
		Accent:     "#00a3cc",
		Up:         "#00a86b",
		Down:       "#d32f2f",
	}
)

// PaletteFor returns the palette of t. Unknown themes get the dark one.
func PaletteFor(t board.Theme) Palette {
	if t == board.ThemeLight {
		return lightPalette
	}
	return darkPalette
}
