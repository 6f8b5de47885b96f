package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/thecardroom/tcr/config"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/internal/dashboard/api"
	"github.com/thecardroom/tcr/internal/dashboard/components"
	"github.com/thecardroom/tcr/internal/dashboard/styles"
	"github.com/thecardroom/tcr/mint"
	"github.com/thecardroom/tcr/policy"
	"github.com/thecardroom/tcr/project"
	"github.com/thecardroom/tcr/storage"
)

const (
	statusInterval = 15 * time.Second
	walletInterval = 30 * time.Second
	policyInterval = 60 * time.Second
	requestTimeout = 30 * time.Second
)

// Chain is the indexer side the dashboard reads.
type Chain interface {
	Status(ctx context.Context) indexer.Status
	AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error)
	RoyaltyInfo(ctx context.Context, policyID string) (policy.Royalty, error)
	PolicyNFTCount(ctx context.Context, policyID string) (uint64, error)
}

type TokenBurner interface {
	BurnToken(ctx context.Context, p *policy.Policy, name string) (string, error)
}

// Session is everything the dashboard needs once the settings are known.
type Session struct {
	Store   *storage.ProjectData
	Chain   Chain
	Royalty mint.RoyaltyMinter
	Burner  TokenBurner
}

// Config는 대시보드 설정
type Config struct {
	Settings *config.Config
	// Connect opens the project data and services for the settings. It is
	// called after the setup form and when Session is nil.
	Connect   func(cfg *config.Config) (*Session, error)
	Session   *Session
	LogDir    string
	LogApps   []string
	RunnerURL string
	Version   string
}

type tab int

const (
	tabWallets tab = iota
	tabPolicies
	tabProjects
)

var tabNames = []string{"Wallets", "Policies", "Projects"}

// Model은 Bubbletea 모델
type Model struct {
	config  Config
	session *Session
	runner  *api.Client

	tab    tab
	cursor [3]int

	status       indexer.Status
	runnerStatus *api.RunnerStatus
	runnerErr    string

	utxos       map[string][]walletUTxO
	walletAddrs map[string]walletAddresses
	policyInfo  map[string]*policyInfo
	defs        *project.Definitions
	defsErr     string
	showQR      bool

	form    *form
	confirm *confirm
	message string
	msgErr  bool

	logViewer *components.LogViewer
	width     int
	height    int
	showHelp  bool
	quitting  bool
	now       func() time.Time
}

// Run은 대시보드 실행
func Run(config Config) error {
	p := tea.NewProgram(initialModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(cfg Config) Model {
	runnerURL := cfg.RunnerURL
	if runnerURL == "" && cfg.Settings != nil {
		runnerURL = fmt.Sprintf("http://localhost:%d", cfg.Settings.Server.RestPort)
	}
	network := "none"
	if cfg.Settings != nil {
		network = cfg.Settings.Common.Network
	}
	m := Model{
		config:      cfg,
		session:     cfg.Session,
		runner:      api.NewClientURL(runnerURL),
		utxos:       make(map[string][]walletUTxO),
		walletAddrs: make(map[string]walletAddresses),
		policyInfo:  make(map[string]*policyInfo),
		logViewer:   components.NewLogViewer(cfg.LogDir, network, cfg.LogApps, 8),
		now:         time.Now,
	}
	if m.session == nil && (cfg.Settings == nil || !cfg.Settings.IsConfigured()) {
		m.form = m.setupForm()
	}
	return m
}

// tick messages
type statusTickMsg time.Time
type walletTickMsg time.Time
type policyTickMsg time.Time

type statusMsg indexer.Status

type runnerMsg struct {
	status *api.RunnerStatus
	err    error
}

type connectedMsg struct {
	session *Session
	err     error
}

// resultMsg reports the outcome of a user action.
type resultMsg struct {
	text string
	err  error
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tick(statusInterval, func(t time.Time) tea.Msg { return statusTickMsg(t) }),
		tick(walletInterval, func(t time.Time) tea.Msg { return walletTickMsg(t) }),
		tick(policyInterval, func(t time.Time) tea.Msg { return policyTickMsg(t) }),
		m.fetchRunner(),
	}
	switch {
	case m.session != nil:
		cmds = append(cmds, m.onConnected()...)
	case m.form == nil && m.config.Connect != nil:
		cmds = append(cmds, connectCmd(m.config))
	}
	if m.form != nil {
		cmds = append(cmds, textinputBlink())
	}
	return tea.Batch(cmds...)
}

func tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return tea.Tick(d, fn)
}

func connectCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		s, err := cfg.Connect(cfg.Settings)
		return connectedMsg{session: s, err: err}
	}
}

// onConnected loads what the first screen shows.
func (m Model) onConnected() []tea.Cmd {
	cmds := []tea.Cmd{m.fetchStatus(), m.fetchSelectedWallet()}
	cmds = append(cmds, m.fetchPolicies(true)...)
	return cmds
}

func (m Model) fetchStatus() tea.Cmd {
	if m.session == nil {
		return nil
	}
	chain := m.session.Chain
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return statusMsg(chain.Status(ctx))
	}
}

func (m Model) fetchRunner() tea.Cmd {
	client := m.runner
	return func() tea.Msg {
		st, err := client.GetStatus()
		return runnerMsg{status: st, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.form != nil {
			closed, cmd := m.form.update(msg)
			if closed {
				m.form = nil
			}
			return m, cmd
		}
		if m.confirm != nil {
			closed, cmd := m.confirm.update(msg)
			if closed {
				m.confirm = nil
			}
			return m, cmd
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case statusTickMsg:
		cmds = append(cmds, tick(statusInterval, func(t time.Time) tea.Msg { return statusTickMsg(t) }))
		cmds = append(cmds, m.fetchStatus(), m.fetchRunner())
		m.logViewer.Refresh()

	case walletTickMsg:
		cmds = append(cmds, tick(walletInterval, func(t time.Time) tea.Msg { return walletTickMsg(t) }))
		cmds = append(cmds, m.fetchSelectedWallet())

	case policyTickMsg:
		cmds = append(cmds, tick(policyInterval, func(t time.Time) tea.Msg { return policyTickMsg(t) }))
		cmds = append(cmds, m.fetchPolicies(false)...)

	case statusMsg:
		m.status = indexer.Status(msg)

	case runnerMsg:
		m.runnerStatus = msg.status
		m.runnerErr = ""
		if msg.err != nil {
			m.runnerErr = msg.err.Error()
		}

	case connectedMsg:
		if msg.err != nil {
			m.setMessage("", msg.err)
			m.form = m.setupForm()
			m.form.err = msg.err.Error()
			return m, nil
		}
		m.session = msg.session
		if cmd := m.syncStoreNetwork(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		m.logViewer.SetNetwork(string(m.session.Store.Network()))
		m.logViewer.Refresh()
		cmds = append(cmds, m.onConnected()...)

	case utxoMsg:
		m.applyUTxOs(msg)

	case policyMsg:
		m.applyPolicy(msg)

	case royaltyChangedMsg:
		m.setMessage(msg.text, msg.err)
		if info, ok := m.policyInfo[msg.name]; ok && msg.err == nil {
			info.royaltyLoaded = false
		}

	case resultMsg:
		m.setMessage(msg.text, msg.err)
		m.clampCursors()
		if m.tab == tabProjects {
			m.loadDefinitions()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) setMessage(text string, err error) {
	if err != nil {
		m.message = err.Error()
		m.msgErr = true
		return
	}
	m.message = text
	m.msgErr = false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp

	case "tab", "right":
		return m.switchTab((m.tab + 1) % 3)

	case "shift+tab", "left":
		return m.switchTab((m.tab + 2) % 3)

	case "1", "2", "3":
		return m.switchTab(tab(msg.String()[0] - '1'))

	case "up", "k":
		if m.cursor[m.tab] > 0 {
			m.cursor[m.tab]--
			cmd := m.onSelect()
			return m, cmd
		}

	case "down", "j":
		if m.cursor[m.tab] < m.listLen()-1 {
			m.cursor[m.tab]++
			cmd := m.onSelect()
			return m, cmd
		}

	case "l":
		m.logViewer.NextApp()
		m.logViewer.Refresh()

	case "r":
		cmds := []tea.Cmd{m.fetchStatus(), m.fetchRunner(), m.fetchSelectedWallet()}
		cmds = append(cmds, m.fetchPolicies(false)...)
		return m, tea.Batch(cmds...)
	}

	if m.session == nil {
		return m, nil
	}

	switch msg.String() {
	case "n":
		m.form = m.createForm()
		return m, textinputBlink()
	case "d":
		m.confirm = m.deleteConfirm()
	default:
		switch m.tab {
		case tabWallets:
			return m.walletKey(msg)
		case tabPolicies:
			return m.policyKey(msg)
		case tabProjects:
			return m.projectKey(msg)
		}
	}
	return m, nil
}

func (m Model) switchTab(t tab) (tea.Model, tea.Cmd) {
	m.tab = t
	cmd := m.onSelect()
	return m, cmd
}

// onSelect refreshes the detail of the newly selected row.
func (m *Model) onSelect() tea.Cmd {
	if m.session == nil {
		return nil
	}
	switch m.tab {
	case tabWallets:
		return m.fetchSelectedWallet()
	case tabPolicies:
		if name := m.selectedPolicy(); name != "" {
			if _, ok := m.policyInfo[name]; !ok {
				return m.fetchPolicy(name, true)
			}
		}
	case tabProjects:
		m.loadDefinitions()
	}
	return nil
}

func (m Model) listLen() int {
	if m.session == nil {
		return 0
	}
	switch m.tab {
	case tabWallets:
		return len(m.session.Store.Wallets())
	case tabPolicies:
		return len(m.session.Store.Policies())
	default:
		return len(m.session.Store.Projects())
	}
}

func (m *Model) clampCursors() {
	if m.session == nil {
		return
	}
	lens := []int{
		len(m.session.Store.Wallets()),
		len(m.session.Store.Policies()),
		len(m.session.Store.Projects()),
	}
	for i, n := range lens {
		if m.cursor[i] >= n {
			m.cursor[i] = n - 1
		}
		if m.cursor[i] < 0 {
			m.cursor[i] = 0
		}
	}
}

func (m Model) createForm() *form {
	switch m.tab {
	case tabWallets:
		return m.createWalletForm()
	case tabPolicies:
		return m.createPolicyForm()
	default:
		return m.createProjectForm()
	}
}

func (m Model) deleteConfirm() *confirm {
	store := m.session.Store
	var kind, name string
	var del func(string) error
	switch m.tab {
	case tabWallets:
		kind, name, del = "wallet", m.selectedWallet(), store.DeleteWallet
	case tabPolicies:
		kind, name, del = "policy", m.selectedPolicy(), store.DeletePolicy
	default:
		kind, name, del = "project", m.selectedProject(), store.DeleteProject
	}
	if name == "" {
		return nil
	}
	return &confirm{
		prompt: fmt.Sprintf("Delete %s %q?", kind, name),
		yes: func() tea.Cmd {
			if err := del(name); err != nil {
				return result("", err)
			}
			return saveCmd(store, fmt.Sprintf("%s %s deleted", kind, name))
		},
	}
}

// result wraps an immediate outcome as a command.
func result(text string, err error) tea.Cmd {
	return func() tea.Msg { return resultMsg{text: text, err: err} }
}

// saveCmd encrypts and writes the project data off the UI goroutine.
func saveCmd(store *storage.ProjectData, text string) tea.Cmd {
	return func() tea.Msg {
		if err := store.Save(); err != nil {
			return resultMsg{err: fmt.Errorf("save project data: %w", err)}
		}
		return resultMsg{text: text}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.form != nil && m.session == nil {
		b.WriteString(m.form.view())
		return b.String()
	}

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.form != nil:
		b.WriteString(m.form.view())
	case m.confirm != nil:
		b.WriteString(m.confirm.view())
	case m.session == nil:
		b.WriteString(styles.MutedStyle.Render("  연결 중..."))
	default:
		switch m.tab {
		case tabWallets:
			b.WriteString(m.renderWallets())
		case tabPolicies:
			b.WriteString(m.renderPolicies())
		case tabProjects:
			b.WriteString(m.renderProjects())
		}
	}
	b.WriteString("\n")

	if m.message != "" {
		if m.msgErr {
			b.WriteString(styles.ErrorStyle.Render("✗ " + m.message))
		} else {
			b.WriteString(styles.SuccessStyle.Render("✓ " + m.message))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderRunner())
	b.WriteString("\n")
	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderHelpBar())
	}
	return b.String()
}

func (m Model) renderHeader() string {
	version := m.config.Version
	if version == "" {
		version = "dev"
	}
	title := styles.TitleStyle.Render(fmt.Sprintf(" tcr dashboard v%s ", version))

	var status string
	if m.status.Healthy {
		status = styles.HealthStyle(true).Render("● healthy") +
			styles.MutedStyle.Render(fmt.Sprintf(" | slot %d | height %d", m.status.Slot, m.status.Height))
	} else {
		status = styles.HealthStyle(false).Render("● offline")
	}
	if m.session != nil {
		status += styles.MutedStyle.Render(" | " + string(m.session.Store.Network()))
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + status
}

func (m Model) renderTabs() string {
	var parts []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			parts = append(parts, styles.ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, styles.TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderRunner() string {
	title := styles.HeaderStyle.Render("MINT RUNNER")
	if m.runnerStatus == nil {
		return title + "\n" + styles.MutedStyle.Render("  not running")
	}
	st := m.runnerStatus
	var b strings.Builder
	b.WriteString(title + "\n")
	if r := st.Runner; r != nil {
		b.WriteString(fmt.Sprintf("  drop %s  policy %s  remaining %d/%d\n", r.Drop, r.Policy, r.Remaining, r.Total))
	}
	for _, s := range storage.PaymentStatuses {
		name := string(s)
		b.WriteString("  " + styles.PaymentStatusStyle(name).Render(fmt.Sprintf("%s %d", name, st.Payments[name])))
	}
	return b.String()
}

func (m Model) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"←→", "탭"},
		{"↑↓", "선택"},
		{"n", "생성"},
		{"d", "삭제"},
		{"r", "새로고침"},
		{"?", "도움말"},
		{"q", "종료"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts,
			styles.HelpKeyStyle.Render(k.key)+
				styles.HelpDescStyle.Render(" "+k.desc))
	}

	return styles.HelpBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) renderFullHelp() string {
	help := `
╭──────────────────────────────────────────╮
│  ←/→, tab     탭 전환 (1-3 직접 선택)      │
│  ↑/↓, j/k     목록 이동                    │
│  n / d        생성 / 삭제                  │
│  Wallets      c QR 코드 토글               │
│  Policies     y 로열티 생성, b 로열티 소각  │
│  Projects     e 설정 수정, a/x 정의 추가/삭제│
│  l            로그 전환                    │
│  r            수동 새로고침                │
│  q, Ctrl+C    종료                        │
╰──────────────────────────────────────────╯`
	return styles.MutedStyle.Render(help)
}
