package tablepatch

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/tablepatch/pkg/filesystem"
	"github.com/arthur-debert/tablepatch/pkg/manifest"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <mod>",
		Short: MsgShowShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closer, err := filesystem.OpenReadOnly(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			m, err := manifest.Load(src)
			if err != nil {
				return err
			}
			steps, err := m.Plan(src)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(describe(m, steps)))
			return nil
		},
	}
}

func describe(m *manifest.Manifest, steps []manifest.Step) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", m.Name, m.Version)
	if m.Author != "" {
		fmt.Fprintf(&b, "*by %s*\n\n", m.Author)
	}
	if m.Description != "" {
		b.WriteString(strings.TrimSpace(m.Description))
		b.WriteString("\n\n")
	}
	if len(steps) > 0 {
		b.WriteString("## Files\n\n")
		for _, s := range steps {
			fmt.Fprintf(&b, "- `%s`", s.Destination)
			if s.Kind != "" {
				fmt.Fprintf(&b, " (%s)", s.Kind)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(m.Messages) > 0 {
		b.WriteString("## Messages\n\n")
		for _, r := range m.Messages {
			names := make([]string, 0, len(r.Components))
			for _, c := range r.Components {
				names = append(names, c.Name)
			}
			fmt.Fprintf(&b, "- %s: %s\n", r.ID, strings.Join(names, ", "))
		}
	}
	return b.String()
}

// renderMarkdown falls back to the raw text when glamour cannot render.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
