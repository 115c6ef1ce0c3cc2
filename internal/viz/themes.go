package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the canvas (Primary) and the sidebar title (Secondary).
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
}

var (
	Themes = []Theme{
		{Name: "cyberpunk", Primary: "#ff00ff", Secondary: "#00ffff"},
		{Name: "retro", Primary: "#00ff00", Secondary: "#88ff88"},
		{Name: "minimal", Primary: "#ffffff", Secondary: "#0088ff"},
		{Name: "ocean", Primary: "#00a8cc", Secondary: "#ffd700"},
		{Name: "sunset", Primary: "#ff6b6b", Secondary: "#feca57"},
	}

	CurrentTheme = Themes[0]
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
