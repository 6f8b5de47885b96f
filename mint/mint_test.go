package mint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/echovl/cardano-go/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecardroom/tcr/chain"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
	"github.com/thecardroom/tcr/wallet"
)

const (
	testMnemonic   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
	policyMnemonic = "legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth useful legal winner thank year wave sausage worth title"
)

func testPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	owner, err := wallet.New(prt.NetworkPreprod, wallet.Settings{Name: "owner", SeedPhrase: testMnemonic})
	require.NoError(t, err)
	p, err := policy.New(policy.Settings{Name: "cards", Wallet: "owner", SeedPhrase: policyMnemonic, BeforeSlot: 90_000_000}, owner)
	require.NoError(t, err)
	return p
}

type memCursor map[string]int

func (m memCursor) DropCursor(drop string) (int, error) { return m[drop], nil }
func (m memCursor) SetDropCursor(drop string, n int) error {
	m[drop] = n
	return nil
}

func testMetametadata(drop string) *Metametadata {
	return &Metametadata{
		DropName:  drop,
		Prices:    map[string]int{"10000000": 1, "20000000": 2, "50000000": 5},
		Presale:   map[string]int{"8000000": 1},
		MaxPerTx:  3,
		InitialID: 1,
		Total:     5,
		TokenName: "Card",
		NftName:   "The Card",
		Image:     "ipfs://QmTestCid/{id}.png",
		MediaType: "image/png",
	}
}

func createTestDrop(t *testing.T, p *policy.Policy) (Paths, *Metametadata, string) {
	t.Helper()
	paths := Paths{Root: t.TempDir(), Network: prt.NetworkPreprod}
	m := testMetametadata("drop1")
	require.NoError(t, SaveMetametadata(paths, m))
	setFile, err := CreateDrop(paths, p, m, 42)
	require.NoError(t, err)
	return paths, m, setFile
}

func TestMetametadata(t *testing.T) {
	paths := Paths{Root: t.TempDir(), Network: prt.NetworkPreview}
	assert.Equal(t, filepath.Join(paths.Root, "nft", "preview", "d", "d_metametadata.json"), paths.MetametadataFile("d"))
	assert.Equal(t, filepath.Join(paths.Root, "nft", "preview", "d", "d.json"), paths.MetadataSetFile("d"))

	file, err := WriteTemplate(paths, "d")
	require.NoError(t, err)
	assert.True(t, utils.FileExists(file))
	_, err = WriteTemplate(paths, "d")
	assert.Error(t, err)

	m, err := LoadMetametadata(paths, "d")
	require.NoError(t, err)
	assert.Equal(t, 3, m.MaxPerTx)

	prices, err := m.PriceTable(false)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int{25_000_000: 1, 50_000_000: 2, 75_000_000: 3}, prices)
	presale, err := m.PriceTable(true)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int{20_000_000: 1}, presale)
	assert.Equal(t, "25.000000 ADA -> 1", m.PriceList()[0])

	// a file renamed to another drop is refused
	require.NoError(t, os.MkdirAll(paths.DropDir("e"), 0o755))
	data, _ := os.ReadFile(file)
	require.NoError(t, os.WriteFile(paths.MetametadataFile("e"), data, 0o644))
	_, err = LoadMetametadata(paths, "e")
	assert.ErrorIs(t, err, ErrDropNameMatch)

	m.Prices = map[string]int{"abc": 1}
	_, err = m.PriceTable(false)
	assert.Error(t, err)
}

func TestLoadWhitelist(t *testing.T) {
	paths := Paths{Root: t.TempDir(), Network: prt.NetworkPreprod}
	ref := strings.Repeat("ab", 32) + "#1"
	data, _ := json.Marshal(map[string][]string{"whitelist": {ref}})
	require.NoError(t, utils.WriteFileAtomic(paths.WhitelistFile("d", "wl.json"), data, 0o644))

	refs, err := LoadWhitelist(paths, "d", "wl.json")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ref, refs[0].String())
}

func TestCreateDrop(t *testing.T) {
	p := testPolicy(t)
	paths, m, setFile := createTestDrop(t, p)
	assert.Equal(t, "cards", m.Policy)

	cur := memCursor{}
	list, err := OpenMetadataList(setFile, "drop1", cur)
	require.NoError(t, err)
	assert.Equal(t, 5, list.Total())
	require.NoError(t, ValidateDrop(list, p.ID()))
	assert.Equal(t, 5, list.Remaining())

	seen := map[string]bool{}
	for _, f := range list.Pending() {
		md, err := ParseNFTFile(f)
		require.NoError(t, err)
		require.Len(t, md.TokenNames, 1)
		seen[md.TokenNames[0]] = true
		assert.True(t, strings.HasPrefix(md.Image(md.TokenNames[0]), "ipfs://QmTestCid/"))
	}
	assert.Equal(t, map[string]bool{"Card0001": true, "Card0002": true, "Card0003": true, "Card0004": true, "Card0005": true}, seen)

	_, err = CreateDrop(paths, p, m, 42)
	assert.ErrorIs(t, err, ErrDropExists)

	// same seed, same order
	other := Paths{Root: t.TempDir(), Network: prt.NetworkPreprod}
	m2 := testMetametadata("drop1")
	setFile2, err := CreateDrop(other, p, m2, 42)
	require.NoError(t, err)
	a, _ := os.ReadFile(setFile)
	b, _ := os.ReadFile(setFile2)
	assert.JSONEq(t, string(a), string(b))
}

func TestValidateDropRejectsBadImage(t *testing.T) {
	p := testPolicy(t)
	paths := Paths{Root: t.TempDir(), Network: prt.NetworkPreprod}
	m := testMetametadata("drop1")
	m.Image = "https://example.com/{id}.png"
	setFile, err := CreateDrop(paths, p, m, 1)
	require.NoError(t, err)

	list, err := OpenMetadataList(setFile, "drop1", memCursor{})
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateDrop(list, p.ID()), ErrImageNotIPFS)
	assert.ErrorIs(t, ValidateDrop(list, strings.Repeat("0", 56)), ErrPolicyMismatch)
}

func TestMetadataListCommitRevert(t *testing.T) {
	p := testPolicy(t)
	_, _, setFile := createTestDrop(t, p)

	cur := memCursor{}
	list, err := OpenMetadataList(setFile, "drop1", cur)
	require.NoError(t, err)

	first, ok := list.Next()
	require.True(t, ok)
	list.Next()
	assert.Equal(t, 3, list.Remaining())
	list.Revert()
	assert.Equal(t, 5, list.Remaining())
	again, _ := list.Peek()
	assert.Equal(t, first, again)

	list.Next()
	require.NoError(t, list.Commit())
	assert.Equal(t, 1, cur["drop1"])

	reopened, err := OpenMetadataList(setFile, "drop1", cur)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.Remaining())

	cur["drop1"] = 99
	_, err = OpenMetadataList(setFile, "drop1", cur)
	assert.Error(t, err)
}

func TestMergeMetadata(t *testing.T) {
	long := "ipfs://" + strings.Repeat("x", 80)
	files := []*NFTMetadata{
		{PolicyID: "p", TokenNames: []string{"A"}, Version: "1.0", Properties: map[string]map[string]interface{}{
			"A": {"name": "A", "id": json.Number("7"), "image": long, "ratio": json.Number("1.5")},
		}},
		{PolicyID: "p", TokenNames: []string{"B"}, Properties: map[string]map[string]interface{}{"B": {"name": "B"}}},
	}
	md, names, err := MergeMetadata(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	nft := md[prt.NFTLabel].(map[string]interface{})
	assert.Equal(t, "1.0", nft["version"])
	a := nft["p"].(map[string]interface{})["A"].(map[string]interface{})
	assert.Equal(t, int64(7), a["id"])
	assert.Equal(t, "1.5", a["ratio"])
	img := a["image"].([]interface{})
	assert.Len(t, img, 2)
	assert.Equal(t, long, img[0].(string)+img[1].(string))

	names2, err := chain.TokenNames(md, "p")
	require.NoError(t, err)
	assert.Equal(t, names, names2)

	files[1].PolicyID = "q"
	_, _, err = MergeMetadata(files)
	assert.ErrorIs(t, err, ErrPolicyMismatch)
}

// fakes for the processor and burner

type fakeChain struct {
	utxos  map[string][]indexer.UTxO
	payers map[string]string
}

func (f *fakeChain) AddressUTXOs(ctx context.Context, address string) ([]indexer.UTxO, error) {
	return f.utxos[address], nil
}

func (f *fakeChain) PayerAddress(ctx context.Context, txHash string) (string, error) {
	if p, ok := f.payers[txHash]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown tx %s", txHash)
}

func (f *fakeChain) ContainsUTxO(ctx context.Context, address, txHash string, index uint32) (bool, error) {
	for _, u := range f.utxos[address] {
		if u.TxHash == txHash && u.OutputIndex == index {
			return true, nil
		}
	}
	return false, nil
}

type fakeMinter struct {
	mints   []chain.MintRequest
	refunds []string
	failing bool
}

func (f *fakeMinter) MintNFT(ctx context.Context, req chain.MintRequest) (string, error) {
	if f.failing {
		return "", fmt.Errorf("node down")
	}
	f.mints = append(f.mints, req)
	return fmt.Sprintf("mint%d", len(f.mints)), nil
}

func (f *fakeMinter) Refund(ctx context.Context, owner *wallet.Wallet, idx prt.AddressIndex, utxo indexer.UTxO, dest string) (string, error) {
	f.refunds = append(f.refunds, utxo.Ref().String())
	return fmt.Sprintf("refund%d", len(f.refunds)), nil
}

type recordSink struct{ events []Event }

func (r *recordSink) Publish(ev Event) { r.events = append(r.events, ev) }

func hashOf(i int) string {
	return fmt.Sprintf("%064x", i)
}

func payment(addr string, i int, lovelace uint64) indexer.UTxO {
	return indexer.UTxO{
		Address: addr,
		TxHash:  hashOf(i),
		Amount:  []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: fmt.Sprint(lovelace)}},
	}
}

type fixedSlots map[string]uint64

func (f fixedSlots) TxSlot(ctx context.Context, txHash string) (uint64, error) {
	if s, ok := f[txHash]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("no slot")
}

func TestProcessorPoll(t *testing.T) {
	p := testPolicy(t)
	_, m, setFile := createTestDrop(t, p)

	ledger, err := storage.OpenLedger(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer ledger.Close()
	list, err := OpenMetadataList(setFile, "drop1", ledger)
	require.NoError(t, err)

	mintAddr, err := p.Owner().PaymentAddress(prt.AddressMint)
	require.NoError(t, err)
	addr := mintAddr.Bech32()

	fc := &fakeChain{
		utxos: map[string][]indexer.UTxO{addr: {
			payment(addr, 3, 20_000_000), // 2 NFTs
			payment(addr, 1, 10_000_000), // 1 NFT, oldest
			payment(addr, 2, 12_345_678), // no price
			payment(addr, 4, 50_000_000), // over max per tx
		}},
		payers: map[string]string{hashOf(1): "addr_test1buyer1", hashOf(2): "addr_test1buyer2", hashOf(3): "addr_test1buyer3", hashOf(4): "addr_test1buyer4"},
	}
	slots := fixedSlots{hashOf(1): 10, hashOf(2): 20, hashOf(3): 30, hashOf(4): 40}
	fm := &fakeMinter{}
	sink := &recordSink{}

	proc, err := NewProcessor(ProcessorConfig{Policy: p, Metametadata: m, List: list, PollInterval: time.Millisecond}, fc, slots, fm, ledger, sink)
	require.NoError(t, err)
	assert.Equal(t, addr, proc.Snapshot().MintAddress)

	require.NoError(t, proc.Poll(context.Background()))

	require.Len(t, fm.mints, 2)
	assert.Equal(t, "addr_test1buyer1", fm.mints[0].Output)
	assert.Len(t, fm.mints[0].Inputs, 1)
	assert.Equal(t, hashOf(1), fm.mints[0].Inputs[0].TxHash)
	names, err := chain.TokenNames(fm.mints[1].Metadata, p.ID())
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Equal(t, []string{hashOf(2) + "#0", hashOf(4) + "#0"}, fm.refunds)

	snap := proc.Snapshot()
	assert.Equal(t, 2, snap.Minted)
	assert.Equal(t, 2, snap.Refunded)
	assert.Equal(t, 2, snap.Remaining)

	cursor, err := ledger.DropCursor("drop1")
	require.NoError(t, err)
	assert.Equal(t, 3, cursor)

	rec, err := ledger.GetPayment(prt.UTxORef{TxHash: hashOf(3)})
	require.NoError(t, err)
	assert.Equal(t, storage.PaymentMinted, rec.Status)
	assert.Equal(t, "mint2", rec.TxHash)
	tx, err := ledger.TokenTx(p.ID(), rec.Tokens[0])
	require.NoError(t, err)
	assert.Equal(t, "mint2", tx)

	// a second poll sees the same UTxOs and does nothing
	require.NoError(t, proc.Poll(context.Background()))
	assert.Len(t, fm.mints, 2)
	assert.Len(t, fm.refunds, 2)

	// 3 left wanted, 2 remain
	fc.utxos[addr] = append(fc.utxos[addr], payment(addr, 5, 20_000_000), payment(addr, 6, 20_000_000))
	fc.payers[hashOf(5)] = "addr_test1buyer5"
	fc.payers[hashOf(6)] = "addr_test1buyer6"
	slots[hashOf(5)] = 50
	slots[hashOf(6)] = 60
	require.NoError(t, proc.Poll(context.Background()))
	assert.Len(t, fm.mints, 3)
	assert.Equal(t, []string{hashOf(2) + "#0", hashOf(4) + "#0", hashOf(6) + "#0"}, fm.refunds)
	rec, err = ledger.GetPayment(prt.UTxORef{TxHash: hashOf(6)})
	require.NoError(t, err)
	assert.Equal(t, ErrSoldOut.Error(), rec.Reason)

	var types []EventType
	for _, ev := range sink.events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, EventMinted)
	assert.Contains(t, types, EventRefunded)
}

func TestProcessorMintFailureRevertsCursor(t *testing.T) {
	p := testPolicy(t)
	_, m, setFile := createTestDrop(t, p)
	cur := memCursor{}
	list, err := OpenMetadataList(setFile, "drop1", cur)
	require.NoError(t, err)
	ledger, err := storage.OpenLedger(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer ledger.Close()

	mintAddr, _ := p.Owner().PaymentAddress(prt.AddressMint)
	addr := mintAddr.Bech32()
	fc := &fakeChain{
		utxos:  map[string][]indexer.UTxO{addr: {payment(addr, 1, 10_000_000)}},
		payers: map[string]string{hashOf(1): "addr_test1buyer"},
	}
	fm := &fakeMinter{failing: true}
	proc, err := NewProcessor(ProcessorConfig{Policy: p, Metametadata: m, List: list}, fc, nil, fm, ledger, nil)
	require.NoError(t, err)

	require.NoError(t, proc.Poll(context.Background()))
	assert.Equal(t, 5, list.Remaining())
	assert.Equal(t, 0, cur["drop1"])
	rec, err := ledger.GetPayment(prt.UTxORef{TxHash: hashOf(1)})
	require.NoError(t, err)
	assert.Equal(t, storage.PaymentRejected, rec.Status)
}

func TestProcessorWhitelist(t *testing.T) {
	p := testPolicy(t)
	_, m, setFile := createTestDrop(t, p)
	list, err := OpenMetadataList(setFile, "drop1", memCursor{})
	require.NoError(t, err)
	ledger, err := storage.OpenLedger(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer ledger.Close()

	presaleAddr, _ := p.Owner().PaymentAddress(prt.AddressPresale)
	addr := presaleAddr.Bech32()
	fc := &fakeChain{
		utxos:  map[string][]indexer.UTxO{addr: {payment(addr, 1, 8_000_000), payment(addr, 2, 8_000_000)}},
		payers: map[string]string{hashOf(1): "addr_test1wl", hashOf(2): "addr_test1other"},
	}
	fm := &fakeMinter{}
	cfg := ProcessorConfig{
		Policy:       p,
		Metametadata: m,
		List:         list,
		Whitelist:    []prt.UTxORef{{TxHash: hashOf(1)}, {TxHash: hashOf(9)}},
	}
	proc, err := NewProcessor(cfg, fc, nil, fm, ledger, nil)
	require.NoError(t, err)

	require.NoError(t, proc.ProcessWhitelist(context.Background()))
	require.Len(t, fm.mints, 1)
	assert.Equal(t, "addr_test1wl", fm.mints[0].Output)
	ok, err := ledger.HasPayment(prt.UTxORef{TxHash: hashOf(2)})
	require.NoError(t, err)
	assert.False(t, ok)
	rec, err := ledger.GetPayment(prt.UTxORef{TxHash: hashOf(1)})
	require.NoError(t, err)
	assert.True(t, rec.Presale)
}

func TestProcessorRunStops(t *testing.T) {
	p := testPolicy(t)
	_, m, setFile := createTestDrop(t, p)
	list, err := OpenMetadataList(setFile, "drop1", memCursor{})
	require.NoError(t, err)
	ledger, err := storage.OpenLedger(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	defer ledger.Close()

	proc, err := NewProcessor(ProcessorConfig{Policy: p, Metametadata: m, List: list, PollInterval: time.Millisecond},
		&fakeChain{}, nil, &fakeMinter{}, ledger, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, proc.Run(ctx))
}

func asset(policyID, name string, qty int) indexer.Amount {
	return indexer.Amount{Unit: utils.AssetUnit(policyID, name), Quantity: fmt.Sprint(qty)}
}

func TestSelectBurn(t *testing.T) {
	pid := strings.Repeat("ab", 28)
	other := strings.Repeat("cd", 28)
	held := []heldUTxO{
		{UTxO: indexer.UTxO{TxHash: hashOf(1), Amount: []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: "5000000"}, asset(pid, "", 1)}}, slot: 1},
		{UTxO: indexer.UTxO{TxHash: hashOf(2), Amount: []indexer.Amount{asset(other, "X", 1)}}, slot: 2},
		{UTxO: indexer.UTxO{TxHash: hashOf(3), Amount: []indexer.Amount{asset(pid, "A", 1), asset(pid, "B", 2)}}, slot: 3},
	}
	all := func(string) bool { return true }

	inputs, names, last := selectBurn(held, pid, all, 200)
	assert.Equal(t, []string{"", "A", "B", "B"}, names)
	assert.Len(t, inputs, 2)
	assert.Equal(t, hashOf(3), last.TxHash)

	inputs, names, last = selectBurn(held, pid, all, 2)
	assert.Equal(t, []string{"", "A"}, names)
	assert.Len(t, inputs, 2)
	assert.Equal(t, hashOf(3), last.TxHash)

	_, names, _ = selectBurn(held, pid, func(n string) bool { return n == "B" }, 200)
	assert.Equal(t, []string{"B", "B"}, names)
}

type fakeBurner struct {
	fc    *fakeChain
	calls [][]string
}

func (f *fakeBurner) BurnTokens(ctx context.Context, p *policy.Policy, inputs []indexer.UTxO, key crypto.PrvKey, names []string, change string) (string, error) {
	f.calls = append(f.calls, names)
	spent := map[prt.UTxORef]bool{}
	for _, in := range inputs {
		spent[in.Ref()] = true
	}
	for addr, utxos := range f.fc.utxos {
		var keep []indexer.UTxO
		for _, u := range utxos {
			if !spent[u.Ref()] {
				keep = append(keep, u)
			}
		}
		f.fc.utxos[addr] = keep
	}
	return fmt.Sprintf("burn%d", len(f.calls)), nil
}

func TestBurnAll(t *testing.T) {
	p := testPolicy(t)
	root, err := p.Owner().DelegatedPaymentAddress(prt.AddressRoot)
	require.NoError(t, err)
	addr := root.Bech32()

	var utxos []indexer.UTxO
	for i := 0; i < 250; i++ {
		utxos = append(utxos, indexer.UTxO{
			Address: addr,
			TxHash:  hashOf(i + 1),
			Amount:  []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: "2000000"}, asset(p.ID(), fmt.Sprintf("Card%04d", i), 1)},
		})
	}
	fc := &fakeChain{utxos: map[string][]indexer.UTxO{addr: utxos}}
	fb := &fakeBurner{fc: fc}
	b := NewBurner(fc, fb, nil, nil)
	b.SetWait(time.Millisecond)

	n, err := b.BurnAll(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	require.Len(t, fb.calls, 2)
	assert.Len(t, fb.calls[0], prt.MaxBurnPerTx)
	assert.Len(t, fb.calls[1], 50)

	_, err = b.BurnAll(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoTokens)

	_, err = b.BurnToken(context.Background(), p, "Card0001")
	assert.ErrorIs(t, err, ErrNoTokens)
}

func TestBurnAllLeavesSiblingOutputs(t *testing.T) {
	p := testPolicy(t)
	root, err := p.Owner().DelegatedPaymentAddress(prt.AddressRoot)
	require.NoError(t, err)
	addr := root.Bech32()

	// one tx left three token outputs and an ADA change output at root
	tx := hashOf(7)
	var utxos []indexer.UTxO
	for i := 0; i < 3; i++ {
		amount := []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: "5000000"}}
		for j := 0; j < 100; j++ {
			amount = append(amount, asset(p.ID(), fmt.Sprintf("C%d_%03d", i, j), 1))
		}
		utxos = append(utxos, indexer.UTxO{Address: addr, TxHash: tx, OutputIndex: uint32(i), Amount: amount})
	}
	utxos = append(utxos, indexer.UTxO{
		Address:     addr,
		TxHash:      tx,
		OutputIndex: 3,
		Amount:      []indexer.Amount{{Unit: indexer.LovelaceUnit, Quantity: "90000000"}},
	})
	fc := &fakeChain{utxos: map[string][]indexer.UTxO{addr: utxos}}
	fb := &fakeBurner{fc: fc}
	b := NewBurner(fc, fb, nil, nil)
	b.SetWait(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := b.BurnAll(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 300, n)
	require.Len(t, fb.calls, 2)
	assert.Len(t, fb.calls[0], prt.MaxBurnPerTx)
	assert.Len(t, fb.calls[1], 100)

	left := fc.utxos[addr]
	require.Len(t, left, 1)
	assert.Equal(t, uint32(3), left[0].OutputIndex)
}

type fakeRoyalty struct {
	r   policy.Royalty
	err error
}

func (f fakeRoyalty) RoyaltyInfo(ctx context.Context, policyID string) (policy.Royalty, error) {
	return f.r, f.err
}

type fakeRoyaltyMinter struct{ rate, addr string }

func (f *fakeRoyaltyMinter) MintRoyaltyToken(ctx context.Context, p *policy.Policy, addr, rate string) (string, error) {
	f.rate, f.addr = rate, addr
	return "royaltytx", nil
}

func TestSetRoyalty(t *testing.T) {
	p := testPolicy(t)
	root, err := p.Owner().PaymentAddress(prt.AddressRoot)
	require.NoError(t, err)
	addr := root.Bech32()

	fm := &fakeRoyaltyMinter{}
	tx, err := SetRoyalty(context.Background(), fakeRoyalty{err: policy.ErrRoyaltyNotSet}, fm, p, 5, addr)
	require.NoError(t, err)
	assert.Equal(t, "royaltytx", tx)
	assert.Equal(t, "0.05", fm.rate)
	assert.Equal(t, addr, fm.addr)

	_, err = SetRoyalty(context.Background(), fakeRoyalty{r: policy.Royalty{Rate: 0.05, Address: addr}}, fm, p, 5, addr)
	assert.ErrorIs(t, err, ErrRoyaltyAlreadySet)

	_, err = SetRoyalty(context.Background(), fakeRoyalty{err: policy.ErrRoyaltyNotSet}, fm, p, 0, addr)
	assert.Error(t, err)
	_, err = SetRoyalty(context.Background(), fakeRoyalty{err: policy.ErrRoyaltyNotSet}, fm, p, 5, "addr1notvalid")
	assert.Error(t, err)
}
