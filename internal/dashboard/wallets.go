package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/internal/dashboard/styles"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
	"github.com/thecardroom/tcr/wallet"
)

// walletUTxO is a UTxO with the wallet address it sits at.
type walletUTxO struct {
	indexer.UTxO
	Index     prt.AddressIndex
	Delegated bool
}

type walletAddresses struct {
	entries []wallet.AddressEntry
	stake   string
}

type utxoMsg struct {
	wallet    string
	addresses walletAddresses
	utxos     []walletUTxO
	err       error
}

func (m Model) selectedWallet() string {
	if m.session == nil {
		return ""
	}
	ws := m.session.Store.Wallets()
	if i := m.cursor[tabWallets]; i >= 0 && i < len(ws) {
		return ws[i].Name
	}
	return ""
}

// fetchSelectedWallet reads the UTxOs of every delegated and enterprise
// address of the selected wallet.
func (m Model) fetchSelectedWallet() tea.Cmd {
	name := m.selectedWallet()
	if name == "" {
		return nil
	}
	store, chain := m.session.Store, m.session.Chain
	return func() tea.Msg {
		w, err := store.LoadWallet(name)
		if err != nil {
			return utxoMsg{wallet: name, err: err}
		}
		entries, err := w.Addresses()
		if err != nil {
			return utxoMsg{wallet: name, err: err}
		}
		stake, err := w.StakeAddress()
		if err != nil {
			return utxoMsg{wallet: name, err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var out []walletUTxO
		for _, e := range entries {
			utxos, err := chain.AddressUTXOs(ctx, e.Address)
			if err != nil {
				return utxoMsg{wallet: name, err: err}
			}
			for _, u := range utxos {
				out = append(out, walletUTxO{UTxO: u, Index: e.Index, Delegated: e.Delegated})
			}
		}
		return utxoMsg{wallet: name, addresses: walletAddresses{entries: entries, stake: stake}, utxos: out}
	}
}

// diffUTxOs compares two listings by UTxO reference.
func diffUTxOs(old, cur []walletUTxO) (added, spent int) {
	before := make(map[prt.UTxORef]bool, len(old))
	for _, u := range old {
		before[u.Ref()] = true
	}
	for _, u := range cur {
		if before[u.Ref()] {
			delete(before, u.Ref())
		} else {
			added++
		}
	}
	return added, len(before)
}

func (m *Model) applyUTxOs(msg utxoMsg) {
	if msg.err != nil {
		m.setMessage("", fmt.Errorf("wallet %s: %w", msg.wallet, msg.err))
		return
	}
	m.walletAddrs[msg.wallet] = msg.addresses
	old, seen := m.utxos[msg.wallet]
	added, spent := diffUTxOs(old, msg.utxos)
	if seen && added == 0 && spent == 0 {
		return
	}
	m.utxos[msg.wallet] = msg.utxos
	if seen {
		m.setMessage(fmt.Sprintf("wallet %s: %d new, %d spent utxo(s)", msg.wallet, added, spent), nil)
	}
}

func (m Model) walletKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "c" {
		m.showQR = !m.showQR
	}
	return m, nil
}

func (m Model) createWalletForm() *form {
	store := m.session.Store
	return newForm("New wallet", func(values []string) (tea.Cmd, error) {
		name := values[0]
		if name == "" {
			return nil, storage.ErrEmptyName
		}
		if _, err := store.Wallet(name); err == nil {
			return nil, fmt.Errorf("wallet %s: %w", name, storage.ErrDuplicateName)
		}
		network := store.Network()
		if network == prt.NetworkNone {
			return nil, errors.New("project data has no network")
		}
		w, err := wallet.Create(network, name)
		if err != nil {
			return nil, err
		}
		if err := store.AddWallet(w.Settings()); err != nil {
			return nil, err
		}
		return saveCmd(store, "wallet "+name+" created"), nil
	}, "Name")
}

func (m Model) renderWallets() string {
	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render("WALLETS"))
	b.WriteString("\n")

	ws := m.session.Store.Wallets()
	if len(ws) == 0 {
		b.WriteString(styles.MutedStyle.Render("  지갑이 없습니다 (n: 생성)"))
		return b.String()
	}
	for i, w := range ws {
		row := w.Name
		if i == m.cursor[tabWallets] {
			b.WriteString(styles.TableSelectedRowStyle.Render(row))
		} else {
			b.WriteString(styles.TableRowStyle.Render(row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	name := m.selectedWallet()
	addrs, ok := m.walletAddrs[name]
	if !ok {
		b.WriteString(styles.MutedStyle.Render("  loading " + name + "..."))
		return b.String()
	}

	b.WriteString(styles.HeaderStyle.Render("Wallet " + name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Stake: %s\n", addrs.stake))
	for _, e := range addrs.entries {
		kind := "enterprise"
		if e.Delegated {
			kind = "delegated "
		}
		b.WriteString(fmt.Sprintf("  %-14s %s %s\n", e.Index, styles.MutedStyle.Render(kind), e.Address))
	}

	if m.showQR && len(addrs.entries) > 0 {
		if qr, err := utils.RenderQR(addrs.entries[0].Address); err == nil {
			b.WriteString("\n" + qr)
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderUTxOs(m.utxos[name]))
	return b.String()
}

func (m Model) renderUTxOs(utxos []walletUTxO) string {
	var b strings.Builder
	header := fmt.Sprintf("%-14s %-6s %-70s %18s %-6s", "Address", "Type", "UTxO", "ADA", "Tokens")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")
	if len(utxos) == 0 {
		b.WriteString(styles.MutedStyle.Render("  UTxO 없음"))
		return b.String()
	}
	for _, u := range utxos {
		kind := "ent"
		if u.Delegated {
			kind = "base"
		}
		row := fmt.Sprintf("%-14s %-6s %-70s %18s %-6d",
			u.Index, kind, u.Ref(), utils.FormatAda(u.Lovelace()), len(u.Assets()))
		b.WriteString(styles.TableRowStyle.Render(row))
		b.WriteString("\n")
	}
	return b.String()
}
