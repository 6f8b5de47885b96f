package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thecardroom/tcr/internal/dashboard/styles"
	"github.com/thecardroom/tcr/project"
	"github.com/thecardroom/tcr/storage"
)

var projectFields = []string{"series_number", "initial_id", "total_nfts", "output_width", "output_height", "token_name", "nft_name"}

func (m Model) selectedProject() string {
	if m.session == nil {
		return ""
	}
	ps := m.session.Store.Projects()
	if i := m.cursor[tabProjects]; i >= 0 && i < len(ps) {
		return ps[i].Name
	}
	return ""
}

// loadDefinitions reads the NFT definitions file of the selected project.
func (m *Model) loadDefinitions() {
	m.defs, m.defsErr = nil, ""
	name := m.selectedProject()
	if name == "" {
		return
	}
	s, err := m.session.Store.Project(name)
	if err != nil {
		m.defsErr = err.Error()
		return
	}
	if s.NftData == "" {
		m.defsErr = "no nft data file set"
		return
	}
	defs, err := project.LoadDefinitions(s.NftData)
	if err != nil {
		m.defsErr = err.Error()
		return
	}
	m.defs = defs
}

func parseNftType(s string) (project.NftType, error) {
	switch strings.ToLower(s) {
	case "card", "1":
		return project.NftCard, nil
	case "layers", "2":
		return project.NftLayers, nil
	}
	return 0, fmt.Errorf("nft type %q: use card or layers", s)
}

func (m Model) projectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.selectedProject()
	if name == "" {
		return m, nil
	}
	switch msg.String() {
	case "e":
		m.form = m.editProjectForm(name)
		return m, textinputBlink()
	case "a":
		if m.defs == nil {
			return m, nil
		}
		m.form = m.addDefinitionForm()
		return m, textinputBlink()
	case "x":
		if m.defs == nil {
			return m, nil
		}
		m.form = m.deleteDefinitionForm()
		return m, textinputBlink()
	}
	return m, nil
}

func (m Model) createProjectForm() *form {
	store := m.session.Store
	f := newForm("New project", func(values []string) (tea.Cmd, error) {
		p := project.New(values[0], values[1], values[2])
		if p.Name == "" {
			return nil, storage.ErrEmptyName
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if err := store.AddProject(p.Settings()); err != nil {
			return nil, err
		}
		return saveCmd(store, "project "+p.Name+" created"), nil
	}, "Name", "Policy", "NFT data file")
	if p := m.selectedPolicy(); p != "" {
		f.set(1, p)
	}
	return f
}

func (m Model) editProjectForm(name string) *form {
	store := m.session.Store
	return newForm("Edit project: "+name, func(values []string) (tea.Cmd, error) {
		s, err := store.Project(name)
		if err != nil {
			return nil, err
		}
		p := project.FromSettings(s)
		if err := p.SetField(values[0], values[1]); err != nil {
			return nil, err
		}
		if err := store.UpdateProject(p.Settings()); err != nil {
			return nil, err
		}
		return saveCmd(store, fmt.Sprintf("project %s: %s = %s", name, values[0], values[1])), nil
	}, "Field", "Value").placeholder(0, strings.Join(projectFields, ", "))
}

func (m Model) addDefinitionForm() *form {
	defs := m.defs
	return newForm("Add NFT definition", func(values []string) (tea.Cmd, error) {
		t, err := parseNftType(values[1])
		if err != nil {
			return nil, err
		}
		if err := defs.Add(values[0], t); err != nil {
			return nil, err
		}
		if err := defs.Save(); err != nil {
			return nil, err
		}
		return result("definition "+values[0]+" added", nil), nil
	}, "Name", "Type (card, layers)")
}

func (m Model) deleteDefinitionForm() *form {
	defs := m.defs
	return newForm("Delete NFT definition", func(values []string) (tea.Cmd, error) {
		if !defs.Delete(values[0]) {
			return nil, fmt.Errorf("definition %q not found", values[0])
		}
		if err := defs.Save(); err != nil {
			return nil, err
		}
		return result("definition "+values[0]+" deleted", nil), nil
	}, "Name")
}

func (m Model) renderProjects() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("PROJECTS"))
	b.WriteString("\n")

	ps := m.session.Store.Projects()
	if len(ps) == 0 {
		b.WriteString(styles.MutedStyle.Render("  프로젝트가 없습니다 (n: 생성)"))
		return b.String()
	}
	for i, p := range ps {
		row := fmt.Sprintf("%-24s %s", p.Name, styles.MutedStyle.Render(p.PolicyName))
		if i == m.cursor[tabProjects] {
			b.WriteString(styles.TableSelectedRowStyle.Render(row))
		} else {
			b.WriteString(styles.TableRowStyle.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	s, err := m.session.Store.Project(m.selectedProject())
	if err != nil {
		b.WriteString(styles.ErrorStyle.Render("  " + err.Error()))
		return b.String()
	}
	p := project.FromSettings(s)
	b.WriteString(styles.HeaderStyle.Render("Project " + p.Name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Policy:        %s\n", p.PolicyName))
	b.WriteString(fmt.Sprintf("  NFT data:      %s\n", p.NftData))
	b.WriteString(fmt.Sprintf("  series_number: %d\n", p.SeriesNumber))
	b.WriteString(fmt.Sprintf("  initial_id:    %d\n", p.InitialID))
	b.WriteString(fmt.Sprintf("  total_nfts:    %d\n", p.TotalNFTs))
	b.WriteString(fmt.Sprintf("  output:        %dx%d\n", p.OutputWidth, p.OutputHeight))
	b.WriteString(fmt.Sprintf("  token_name:    %s\n", p.TokenName))
	b.WriteString(fmt.Sprintf("  nft_name:      %s\n", p.NftName))

	b.WriteString("\n")
	b.WriteString(styles.HeaderStyle.Render("NFT definitions"))
	b.WriteString("\n")
	switch {
	case m.defsErr != "":
		b.WriteString(styles.MutedStyle.Render("  " + m.defsErr))
	case m.defs == nil || len(m.defs.Defs) == 0:
		b.WriteString(styles.MutedStyle.Render("  정의가 없습니다 (a: 추가)"))
	default:
		for _, d := range m.defs.Defs {
			b.WriteString(fmt.Sprintf("  %-24s %s\n", d.Name, d.Type))
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render("  e 설정 수정 · a 정의 추가 · x 정의 삭제"))
	return b.String()
}
