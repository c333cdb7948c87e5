package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

func newListCmd(flags *rootFlags) *cobra.Command {
	var (
		interactive bool
		showTypes   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, flags.config)
			if err != nil {
				return err
			}
			defer a.Close()

			if showTypes {
				out := cmd.OutOrStdout()
				for _, gt := range a.registry.GraphTypes() {
					fmt.Fprintf(out, "%s %s %s\n", StyleHighlight.Render(gt.ID),
						StyleValue.Render(gt.Label), StyleDim.Render(fmt.Sprintf("v%d, %s", gt.Version, gt.DefaultRenderer)))
				}
				return nil
			}

			entries, err := a.registry.GetAllGraphs(ctx, flags.principal)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), StyleDim.Render("no graphs visible"))
				return nil
			}

			if interactive {
				return runInteractiveList(cmd, entries)
			}

			t := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(StyleDim).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return styleHeader
					}
					return listNormalStyle
				}).
				Headers("ID", "NAME", "TYPE", "RENDERER", "REV")
			for _, e := range entries {
				t.Row(shortID(e.ID), e.Name, e.GraphType, e.RendererID, fmt.Sprintf("%d", e.Revision))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse graphs interactively")
	cmd.Flags().BoolVar(&showTypes, "types", false, "list graph types instead of graphs")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runInteractiveList(cmd *cobra.Command, entries []document.Summary) error {
	m := newGraphListModel(entries)
	final, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return fmt.Errorf("run list ui: %w", err)
	}
	if model, ok := final.(graphListModel); ok && model.selected != nil {
		fmt.Fprintln(cmd.OutOrStdout(), model.selected.ID)
	}
	return nil
}

// graphListModel is the bubbletea model for interactive graph browsing.
// Enter prints the selected graph's id so the output can be piped into
// show/export.
type graphListModel struct {
	entries  []document.Summary
	cursor   int
	offset   int
	height   int
	selected *document.Summary
}

func newGraphListModel(entries []document.Summary) graphListModel {
	return graphListModel{entries: entries, height: 15}
}

func (m graphListModel) Init() tea.Cmd { return nil }

func (m graphListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			entry := m.entries[m.cursor]
			m.selected = &entry
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m graphListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Graphs"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.entries) {
		end = len(m.entries)
	}
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("%s  %s %s", shortID(e.ID), e.Name,
			listDimStyle.Render(fmt.Sprintf("(%s/%s rev %d)", e.GraphType, e.RendererID, e.Revision)))
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("> " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
