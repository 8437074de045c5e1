package tablepatch

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/tablepatch/pkg/errors"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C41E3A", Dark: "#FF5F5F"}).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD75F"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"})
)

// PrintError writes err and what it left behind in the game directory.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Error: %v", err)))

	if code := errors.GetErrorCode(err); code != errors.ErrUnknown {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("code: %s", code)))
	}

	switch errors.OutcomeOf(err) {
	case errors.OutcomeRestored:
		fmt.Fprintln(w, MsgChangesUndone)
	case errors.OutcomeInconsistent:
		fmt.Fprintln(w, warningStyle.Render(MsgInconsistent))
	case errors.OutcomeCommitted:
		fmt.Fprintln(w, warningStyle.Render(MsgLedgerNotSaved))
	default:
		if errors.HasErrorCode(err, errors.ErrLocked) || errors.GetErrorCode(err) == errors.ErrUnknown {
			return
		}
		fmt.Fprintln(w, MsgNoChanges)
	}
}
