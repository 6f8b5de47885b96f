package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecardroom/tcr/common/crypto"
	"github.com/thecardroom/tcr/config"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

type fakeChain struct {
	utxos map[string][]indexer.UTxO
	slot  uint64
}

func (f *fakeChain) Status(ctx context.Context) indexer.Status {
	return indexer.Status{Healthy: true, Slot: f.slot, Height: 100}
}

func (f *fakeChain) AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error) {
	return f.utxos[address], nil
}

func (f *fakeChain) RoyaltyInfo(ctx context.Context, policyID string) (policy.Royalty, error) {
	return policy.Royalty{}, policy.ErrRoyaltyNotSet
}

func (f *fakeChain) PolicyNFTCount(ctx context.Context, policyID string) (uint64, error) {
	return 42, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestConfig(t *testing.T) (Config, *fakeChain) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.NewConfig(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	cfg.LogInfo.Path = filepath.Join(dir, "log")

	chain := &fakeChain{utxos: map[string][]indexer.UTxO{}, slot: 50_000_000}
	return Config{
		Settings: cfg,
		LogDir:   cfg.LogInfo.Path,
		Connect: func(c *config.Config) (*Session, error) {
			store, err := storage.OpenProjectDataWithParams(c.Common.DataFile, c.Blockfrost.ProjectID, crypto.LightScrypt)
			if err != nil {
				return nil, err
			}
			return &Session{Store: store, Chain: chain}, nil
		},
	}, chain
}

// run executes cmd and feeds every message it yields back into m.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil:
		return m
	case tea.BatchMsg:
		for _, c := range msg {
			m = run(t, m, c)
		}
		return m
	case statusTickMsg, walletTickMsg, policyTickMsg:
		return m
	default:
		next, c := m.Update(msg)
		return run(t, next.(Model), c)
	}
}

func connected(t *testing.T) (Model, *fakeChain) {
	t.Helper()
	cfg, chain := newTestConfig(t)
	m := initialModel(cfg)
	require.NotNil(t, m.form)

	dataFile := filepath.Join(filepath.Dir(cfg.Settings.LogInfo.Path), "projects.dat")
	cmd, err := m.form.submit([]string{"preprodKEY", dataFile, "preprod"})
	require.NoError(t, err)
	m.form = nil
	m = run(t, m, cmd)
	require.NotNil(t, m.session)
	return m, chain
}

func TestSetupFormValidation(t *testing.T) {
	cfg, _ := newTestConfig(t)
	m := initialModel(cfg)
	require.NotNil(t, m.form)

	_, err := m.form.submit([]string{"", "x", "preprod"})
	assert.Error(t, err)
	_, err = m.form.submit([]string{"key", "x", "moon"})
	assert.Error(t, err)
	_, err = m.form.submit([]string{"key", "x", "none"})
	assert.Error(t, err)
}

func TestSetupConnects(t *testing.T) {
	m, _ := connected(t)
	assert.Equal(t, prt.NetworkPreprod, m.session.Store.Network())
	assert.True(t, m.config.Settings.IsConfigured())
	assert.True(t, m.status.Healthy)

	// settings were written
	reloaded, err := config.NewConfig(m.config.Settings.Path())
	require.NoError(t, err)
	assert.Equal(t, "preprod", reloaded.Common.Network)
	assert.Equal(t, "preprodKEY", reloaded.Blockfrost.ProjectID)
}

func TestCreateWalletPolicyProject(t *testing.T) {
	m, chain := connected(t)
	store := m.session.Store

	f := m.createWalletForm()
	cmd, err := f.submit([]string{"alice"})
	require.NoError(t, err)
	m = run(t, m, cmd)
	assert.False(t, m.msgErr, m.message)
	_, err = store.Wallet("alice")
	require.NoError(t, err)

	_, err = m.createWalletForm().submit([]string{"alice"})
	assert.ErrorIs(t, err, storage.ErrDuplicateName)

	// no slot yet
	m.status = indexer.Status{}
	_, err = m.createPolicyForm().submit([]string{"cards", "alice", "2099-01-01"})
	assert.ErrorIs(t, err, policy.ErrSlotNotSynced)

	m.status = indexer.Status{Healthy: true, Slot: chain.slot}
	_, err = m.createPolicyForm().submit([]string{"cards", "alice", "2000-01-01"})
	assert.ErrorIs(t, err, policy.ErrLockInPast)
	_, err = m.createPolicyForm().submit([]string{"cards", "alice", "01/01/2099"})
	assert.Error(t, err)

	cmd, err = m.createPolicyForm().submit([]string{"cards", "alice", "2099-01-01"})
	require.NoError(t, err)
	m = run(t, m, cmd)
	ps, err := store.Policy("cards")
	require.NoError(t, err)
	assert.Greater(t, ps.BeforeSlot, chain.slot)

	nftData := filepath.Join(t.TempDir(), "nft.json")
	cmd, err = m.createProjectForm().submit([]string{"series1", "cards", nftData})
	require.NoError(t, err)
	m = run(t, m, cmd)
	_, err = store.Project("series1")
	require.NoError(t, err)

	_, err = m.createProjectForm().submit([]string{"series2", "nopolicy", nftData})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// the policy is in use
	m.tab = tabPolicies
	c := m.deleteConfirm()
	require.NotNil(t, c)
	m = run(t, m, c.yes())
	assert.True(t, m.msgErr)
	assert.True(t, errors.Is(store.DeletePolicy("cards"), storage.ErrInUse))
}

func TestProjectDefinitions(t *testing.T) {
	m, chain := connected(t)
	store := m.session.Store

	m = run(t, m, mustSubmit(t, m.createWalletForm(), "alice"))
	m.status = indexer.Status{Healthy: true, Slot: chain.slot}
	m = run(t, m, mustSubmit(t, m.createPolicyForm(), "cards", "alice", "2099-01-01"))
	nftData := filepath.Join(t.TempDir(), "nft.json")
	m = run(t, m, mustSubmit(t, m.createProjectForm(), "series1", "cards", nftData))

	next, _ := m.Update(key("3"))
	m = next.(Model)
	require.Equal(t, tabProjects, m.tab)
	require.NotNil(t, m.defs)

	m = run(t, m, mustSubmit(t, m.addDefinitionForm(), "hero", "card"))
	_, err := m.addDefinitionForm().submit([]string{"hero", "layers"})
	assert.Error(t, err)
	_, err = m.addDefinitionForm().submit([]string{"villain", "sculpture"})
	assert.Error(t, err)
	require.NotNil(t, m.defs)
	assert.Len(t, m.defs.Defs, 1)

	m = run(t, m, mustSubmit(t, m.editProjectForm("series1"), "total_nfts", "250"))
	s, err := store.Project("series1")
	require.NoError(t, err)
	require.NotNil(t, s.TotalNFTs)
	assert.Equal(t, 250, *s.TotalNFTs)
	_, err = m.editProjectForm("series1").submit([]string{"total_nfts", "abc"})
	assert.Error(t, err)

	m = run(t, m, mustSubmit(t, m.deleteDefinitionForm(), "hero"))
	assert.Empty(t, m.defs.Defs)
	assert.Contains(t, m.View(), "Project series1")
}

func mustSubmit(t *testing.T, f *form, values ...string) tea.Cmd {
	t.Helper()
	cmd, err := f.submit(values)
	require.NoError(t, err)
	return cmd
}

func TestWalletUTxOs(t *testing.T) {
	m, chain := connected(t)
	m = run(t, m, mustSubmit(t, m.createWalletForm(), "alice"))

	w, err := m.session.Store.LoadWallet("alice")
	require.NoError(t, err)
	root, err := w.DelegatedPaymentAddress(prt.AddressRoot)
	require.NoError(t, err)
	addr := root.Bech32()
	chain.utxos[addr] = []indexer.UTxO{{
		Address: addr, TxHash: strings.Repeat("a", 64),
		Amount: []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: "5000000"}},
	}}

	m = run(t, m, m.fetchSelectedWallet())
	require.Len(t, m.utxos["alice"], 1)
	assert.Equal(t, prt.AddressRoot, m.utxos["alice"][0].Index)
	assert.True(t, m.utxos["alice"][0].Delegated)
	assert.Contains(t, m.View(), "5.000000 ADA")

	chain.utxos[addr] = append(chain.utxos[addr], indexer.UTxO{Address: addr, TxHash: strings.Repeat("b", 64)})
	m = run(t, m, m.fetchSelectedWallet())
	assert.Len(t, m.utxos["alice"], 2)
	assert.Equal(t, "wallet alice: 1 new, 0 spent utxo(s)", m.message)

	next, _ := m.Update(key("c"))
	m = next.(Model)
	assert.True(t, m.showQR)
}

func TestDiffUTxOs(t *testing.T) {
	u := func(h string, i uint32) walletUTxO {
		return walletUTxO{UTxO: indexer.UTxO{TxHash: h, OutputIndex: i}}
	}
	added, spent := diffUTxOs([]walletUTxO{u("a", 0), u("a", 1)}, []walletUTxO{u("a", 1), u("b", 0), u("c", 0)})
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, spent)

	added, spent = diffUTxOs(nil, nil)
	assert.Zero(t, added)
	assert.Zero(t, spent)
}

func TestPolicyInfo(t *testing.T) {
	m, chain := connected(t)
	m = run(t, m, mustSubmit(t, m.createWalletForm(), "alice"))
	m.status = indexer.Status{Healthy: true, Slot: chain.slot}
	m = run(t, m, mustSubmit(t, m.createPolicyForm(), "cards", "alice", "2099-01-01"))

	m = run(t, m, m.fetchPolicy("cards", true))
	info := m.policyInfo["cards"]
	require.NotNil(t, info)
	assert.Len(t, info.id, 56)
	assert.True(t, info.royaltyLoaded)
	assert.Equal(t, policy.ErrRoyaltyNotSet.Error(), info.royaltyErr)
	assert.Equal(t, uint64(42), info.count)

	// a count refresh keeps the royalty
	info.royaltyErr = "kept"
	m = run(t, m, m.fetchPolicy("cards", false))
	assert.Equal(t, "kept", m.policyInfo["cards"].royaltyErr)

	m.tab = tabPolicies
	view := m.View()
	assert.Contains(t, view, "Policy cards")
	assert.Contains(t, view, "42")

	f := m.royaltyForm("cards")
	assert.Equal(t, m.policyInfo["cards"].royaltyTo, f.values()[1])
	_, err := f.submit([]string{"0", f.values()[1]})
	assert.Error(t, err)
	_, err = f.submit([]string{"5", f.values()[1]})
	assert.Error(t, err) // no builder in the test session
}

func TestKeysAndForms(t *testing.T) {
	m, _ := connected(t)

	next, _ := m.Update(key("tab"))
	m = next.(Model)
	assert.Equal(t, tabPolicies, m.tab)
	next, _ = m.Update(key("n"))
	m = next.(Model)
	require.NotNil(t, m.form)
	assert.Equal(t, "New policy", m.form.title)

	next, _ = m.Update(key("esc"))
	m = next.(Model)
	assert.Nil(t, m.form)

	next, _ = m.Update(key("1"))
	m = next.(Model)
	next, _ = m.Update(key("n"))
	m = next.(Model)
	for _, r := range "bob" {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	assert.Equal(t, []string{"bob"}, m.form.values())
	next, cmd := m.Update(key("enter"))
	m = next.(Model)
	assert.Nil(t, m.form)
	m = run(t, m, cmd)
	_, err := m.session.Store.Wallet("bob")
	assert.NoError(t, err)

	next, _ = m.Update(key("q"))
	assert.True(t, next.(Model).quitting)
}

func TestRunnerOffline(t *testing.T) {
	cfg, _ := newTestConfig(t)
	cfg.RunnerURL = "http://127.0.0.1:1"
	m := initialModel(cfg)
	m = run(t, m, m.fetchRunner())
	assert.Nil(t, m.runnerStatus)
	assert.NotEmpty(t, m.runnerErr)
	assert.Contains(t, m.renderRunner(), "not running")
}
