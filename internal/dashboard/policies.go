package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thecardroom/tcr/internal/dashboard/styles"
	"github.com/thecardroom/tcr/mint"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

const (
	lockDateLayout = "2006-01-02"
	mintTimeout    = 3 * time.Minute
)

// policyInfo is what the policy detail shows, keyed by policy name.
type policyInfo struct {
	id         string
	sigHash    string
	beforeSlot uint64
	wallet     string
	royaltyTo  string // owner root address, the default royalty address
	loadErr    string

	royalty       policy.Royalty
	royaltyErr    string
	royaltyLoaded bool

	count       uint64
	countErr    string
	countLoaded bool
}

// policyMsg carries a policy refresh. Royalty is only read when asked.
type policyMsg struct {
	name        string
	info        policyInfo
	loadErr     error
	withRoyalty bool
	royalty     policy.Royalty
	royaltyErr  error
	count       uint64
	countErr    error
}

type royaltyChangedMsg struct {
	name string
	text string
	err  error
}

func (m Model) selectedPolicy() string {
	if m.session == nil {
		return ""
	}
	ps := m.session.Store.Policies()
	if i := m.cursor[tabPolicies]; i >= 0 && i < len(ps) {
		return ps[i].Name
	}
	return ""
}

// fetchPolicies refreshes the NFT count of every policy, and the royalty
// of those not read yet.
func (m Model) fetchPolicies(force bool) []tea.Cmd {
	if m.session == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, s := range m.session.Store.Policies() {
		info, ok := m.policyInfo[s.Name]
		cmds = append(cmds, m.fetchPolicy(s.Name, force || !ok || !info.royaltyLoaded))
	}
	return cmds
}

func (m Model) fetchPolicy(name string, withRoyalty bool) tea.Cmd {
	store, chain := m.session.Store, m.session.Chain
	return func() tea.Msg {
		msg := policyMsg{name: name, withRoyalty: withRoyalty}
		p, err := store.LoadPolicy(name)
		if err != nil {
			msg.loadErr = err
			return msg
		}
		root, err := p.Owner().DelegatedPaymentAddress(prt.AddressRoot)
		if err != nil {
			msg.loadErr = err
			return msg
		}
		msg.info = policyInfo{
			id:         p.ID(),
			sigHash:    p.SignatureKeyHash(),
			beforeSlot: p.BeforeSlot(),
			wallet:     p.WalletName(),
			royaltyTo:  root.Bech32(),
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if withRoyalty {
			msg.royalty, msg.royaltyErr = chain.RoyaltyInfo(ctx, p.ID())
		}
		msg.count, msg.countErr = chain.PolicyNFTCount(ctx, p.ID())
		return msg
	}
}

func (m *Model) applyPolicy(msg policyMsg) {
	info, ok := m.policyInfo[msg.name]
	if !ok {
		info = &policyInfo{}
		m.policyInfo[msg.name] = info
	}
	if msg.loadErr != nil {
		info.loadErr = msg.loadErr.Error()
		return
	}
	royalty, royaltyErr, royaltyLoaded := info.royalty, info.royaltyErr, info.royaltyLoaded
	*info = msg.info
	info.royalty, info.royaltyErr, info.royaltyLoaded = royalty, royaltyErr, royaltyLoaded

	if msg.withRoyalty {
		info.royaltyLoaded = true
		info.royalty = msg.royalty
		info.royaltyErr = ""
		if msg.royaltyErr != nil {
			info.royaltyErr = msg.royaltyErr.Error()
		}
	}
	info.countLoaded = true
	info.count = msg.count
	info.countErr = ""
	if msg.countErr != nil {
		info.countErr = msg.countErr.Error()
	}
}

func (m Model) policyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := m.selectedPolicy()
	if name == "" {
		return m, nil
	}
	switch msg.String() {
	case "y":
		m.form = m.royaltyForm(name)
		return m, textinputBlink()
	case "b":
		m.confirm = m.burnRoyaltyConfirm(name)
	}
	return m, nil
}

func (m Model) createPolicyForm() *form {
	store := m.session.Store
	slot := m.status.Slot
	now := m.now
	f := newForm("New policy", func(values []string) (tea.Cmd, error) {
		name, walletName, lock := values[0], values[1], values[2]
		if name == "" {
			return nil, storage.ErrEmptyName
		}
		if _, err := store.Policy(name); err == nil {
			return nil, fmt.Errorf("policy %s: %w", name, storage.ErrDuplicateName)
		}
		lockDate, err := time.ParseInLocation(lockDateLayout, lock, time.Local)
		if err != nil {
			return nil, fmt.Errorf("lock date %q: use YYYY-MM-DD", lock)
		}
		beforeSlot, err := policy.BeforeSlotFor(slot, lockDate, now())
		if err != nil {
			return nil, err
		}
		owner, err := store.LoadWallet(walletName)
		if err != nil {
			return nil, err
		}
		p, err := policy.Create(name, owner, beforeSlot)
		if err != nil {
			return nil, err
		}
		if err := store.AddPolicy(p.Settings(), slot); err != nil {
			return nil, err
		}
		return saveCmd(store, fmt.Sprintf("policy %s created, id %s, locks at slot %d", name, p.ID(), beforeSlot)), nil
	}, "Name", "Wallet", "Lock date (YYYY-MM-DD)")
	if w := m.selectedWallet(); w != "" {
		f.set(1, w)
	}
	f.set(2, m.now().AddDate(1, 0, 0).Format(lockDateLayout))
	return f
}

func (m Model) royaltyForm(name string) *form {
	store, chain, minter := m.session.Store, m.session.Chain, m.session.Royalty
	f := newForm("Create royalty token: "+name, func(values []string) (tea.Cmd, error) {
		percent, err := strconv.ParseFloat(values[0], 64)
		if err != nil || percent <= 0 {
			return nil, errors.New("royalty must be > 0")
		}
		if minter == nil {
			return nil, errors.New("no transaction builder configured")
		}
		p, err := store.LoadPolicy(name)
		if err != nil {
			return nil, err
		}
		address := values[1]
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), mintTimeout)
			defer cancel()
			tx, err := mint.SetRoyalty(ctx, chain, minter, p, percent, address)
			return royaltyChangedMsg{name: name, text: "royalty token minted, tx " + tx, err: err}
		}, nil
	}, "Percent", "Royalty address")
	if info, ok := m.policyInfo[name]; ok {
		f.set(1, info.royaltyTo)
	}
	return f
}

func (m Model) burnRoyaltyConfirm(name string) *confirm {
	store, burner := m.session.Store, m.session.Burner
	return &confirm{
		prompt: fmt.Sprintf("Burn the royalty token of policy %q?", name),
		yes: func() tea.Cmd {
			if burner == nil {
				return result("", errors.New("no transaction builder configured"))
			}
			return func() tea.Msg {
				p, err := store.LoadPolicy(name)
				if err != nil {
					return royaltyChangedMsg{name: name, err: err}
				}
				ctx, cancel := context.WithTimeout(context.Background(), mintTimeout)
				defer cancel()
				tx, err := burner.BurnToken(ctx, p, "")
				return royaltyChangedMsg{name: name, text: "royalty token burned, tx " + tx, err: err}
			}
		},
	}
}

func (m Model) renderPolicies() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("POLICIES"))
	b.WriteString("\n")

	ps := m.session.Store.Policies()
	if len(ps) == 0 {
		b.WriteString(styles.MutedStyle.Render("  정책이 없습니다 (n: 생성)"))
		return b.String()
	}
	for i, p := range ps {
		row := fmt.Sprintf("%-24s %s", p.Name, styles.MutedStyle.Render(p.Wallet))
		if i == m.cursor[tabPolicies] {
			b.WriteString(styles.TableSelectedRowStyle.Render(row))
		} else {
			b.WriteString(styles.TableRowStyle.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	name := m.selectedPolicy()
	info, ok := m.policyInfo[name]
	switch {
	case !ok || (info.id == "" && info.loadErr == ""):
		b.WriteString(styles.MutedStyle.Render("  loading " + name + "..."))
		return b.String()
	case info.loadErr != "":
		b.WriteString(styles.ErrorStyle.Render("  " + info.loadErr))
		return b.String()
	}

	b.WriteString(styles.HeaderStyle.Render("Policy " + name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  ID:             %s\n", info.id))
	b.WriteString(fmt.Sprintf("  Signature hash: %s\n", info.sigHash))
	lock := fmt.Sprintf("%d", info.beforeSlot)
	if m.status.Slot > 0 {
		if m.status.Slot >= info.beforeSlot {
			lock += styles.ErrorStyle.Render("  locked")
		} else {
			lock += styles.MutedStyle.Render(fmt.Sprintf("  (%d slots left)", info.beforeSlot-m.status.Slot))
		}
	}
	b.WriteString(fmt.Sprintf("  Before slot:    %s\n", lock))
	b.WriteString(fmt.Sprintf("  Wallet:         %s\n", info.wallet))

	switch {
	case !info.royaltyLoaded:
		b.WriteString(styles.MutedStyle.Render("  Royalty:        loading...") + "\n")
	case info.royaltyErr != "":
		b.WriteString(fmt.Sprintf("  Royalty:        %s\n", styles.MutedStyle.Render(info.royaltyErr)))
	default:
		b.WriteString(fmt.Sprintf("  Royalty:        %g%% to %s\n", info.royalty.Percent(), info.royalty.Address))
		b.WriteString(fmt.Sprintf("  Royalty tx:     %s\n", info.royalty.TxHash))
	}

	count := "loading..."
	if info.countLoaded {
		count = fmt.Sprintf("%d", info.count)
		if info.countErr != "" {
			count = info.countErr
		}
	}
	b.WriteString(fmt.Sprintf("  NFTs:           %s\n", count))
	b.WriteString(styles.MutedStyle.Render("  y 로열티 토큰 생성 · b 로열티 토큰 소각"))
	return b.String()
}
