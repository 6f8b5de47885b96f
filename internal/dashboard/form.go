package dashboard

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/thecardroom/tcr/internal/dashboard/styles"
)

// form is a modal list of text inputs. submit validates the values; an
// error keeps the form open and is shown under the fields.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
	submit func(values []string) (tea.Cmd, error)
}

func newForm(title string, submit func(values []string) (tea.Cmd, error), labels ...string) *form {
	f := &form{title: title, labels: labels, submit: submit}
	for range labels {
		in := textinput.New()
		in.Prompt = "> "
		in.CharLimit = 256
		in.Width = 60
		f.inputs = append(f.inputs, in)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// secret hides the input of field i.
func (f *form) secret(i int) *form {
	f.inputs[i].EchoMode = textinput.EchoPassword
	f.inputs[i].EchoCharacter = '•'
	return f
}

func (f *form) set(i int, value string) *form {
	f.inputs[i].SetValue(value)
	return f
}

func (f *form) placeholder(i int, text string) *form {
	f.inputs[i].Placeholder = text
	return f
}

func (f *form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = strings.TrimSpace(in.Value())
	}
	return out
}

func (f *form) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

// update handles a key; closed is true when the form should be removed.
func (f *form) update(msg tea.KeyMsg) (closed bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return true, nil
	case "tab", "down":
		return false, f.move(1)
	case "shift+tab", "up":
		return false, f.move(-1)
	case "enter":
		if f.focus < len(f.inputs)-1 {
			return false, f.move(1)
		}
		cmd, err := f.submit(f.values())
		if err != nil {
			f.err = err.Error()
			return false, nil
		}
		return true, cmd
	}
	var c tea.Cmd
	f.inputs[f.focus], c = f.inputs[f.focus].Update(msg)
	return false, c
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render(f.title))
	b.WriteString("\n")
	for i, in := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = styles.SelectedStyle.Render(label)
		}
		b.WriteString(label + "\n" + in.View() + "\n\n")
	}
	if f.err != "" {
		b.WriteString(styles.ErrorStyle.Render("✗ "+f.err) + "\n")
	}
	b.WriteString(styles.MutedStyle.Render("tab 다음 필드 · enter 확인 · esc 취소"))
	return styles.DialogStyle.Render(b.String())
}

// confirm asks a yes/no question before a destructive action.
type confirm struct {
	prompt string
	yes    func() tea.Cmd
}

func (c *confirm) update(msg tea.KeyMsg) (closed bool, cmd tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return true, c.yes()
	case "n", "N", "esc":
		return true, nil
	}
	return false, nil
}

func (c *confirm) view() string {
	return styles.DialogStyle.Render(styles.WarningStyle.Render(c.prompt) + "\n\n" +
		styles.MutedStyle.Render("y 확인 · n 취소"))
}
