package cli

import "github.com/charmbracelet/lipgloss"

// Color palette for dark terminal backgrounds.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// MutedStyle is for labels and secondary text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// AllowedStyle marks allowed commands and passing cases.
	AllowedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	// BlockedStyle marks blocked commands and failing cases.
	BlockedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CommandStyle is for command text and rule prefixes.
	CommandStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)

// Verdict renders "ALLOWED" or "BLOCKED" in the matching style.
func Verdict(allowed bool) string {
	if allowed {
		return AllowedStyle.Render("ALLOWED")
	}
	return BlockedStyle.Render("BLOCKED")
}

// PassFail renders "PASS" or "FAIL" in the matching style.
func PassFail(passed bool) string {
	if passed {
		return AllowedStyle.Render("PASS")
	}
	return BlockedStyle.Render("FAIL")
}
