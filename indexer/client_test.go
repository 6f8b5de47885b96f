package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

const testPolicy = "1c3dd4b1a9f9a9b7b6e1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9"

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]interface{}{"status_code": 404, "error": "Not Found", "message": "The requested component has not been found."})
}

func newTestClient(t *testing.T, mux *http.ServeMux, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	c, err := NewClient(prt.NetworkPreprod, "preprodTEST", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(prt.NetworkPreview, "key")
	require.NoError(t, err)
	assert.Equal(t, "https://cardano-preview.blockfrost.io/api/v0", c.baseURL)

	_, err = NewClient(prt.NetworkNone, "key")
	assert.Error(t, err)
	_, err = NewClient(prt.NetworkMainnet, "")
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "preprodTEST", r.Header.Get("project_id"))
		writeJSON(w, Health{IsHealthy: true})
	})
	mux.HandleFunc("/health/clock", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Clock{ServerTime: 1700000000000})
	})
	mux.HandleFunc("/blocks/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Block{Height: 1234, Slot: 56789})
	})
	c := newTestClient(t, mux)

	st := c.Status(context.Background())
	assert.Equal(t, Status{Healthy: true, ServerTime: 1700000000000, Height: 1234, Slot: 56789}, st)
}

func TestStatusFailureIsZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Health{IsHealthy: true})
	})
	mux.HandleFunc("/health/clock", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/blocks/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Block{Height: 1, Slot: 2})
	})
	c := newTestClient(t, mux)

	assert.Equal(t, Status{}, c.Status(context.Background()))
}

func TestAddressUTXOsPaging(t *testing.T) {
	const total = 130
	mux := http.NewServeMux()
	mux.HandleFunc("/addresses/addr_test1abc/utxos", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		start := (page - 1) * pageSize
		var out []UTxO
		for i := start; i < total && i < start+pageSize; i++ {
			out = append(out, UTxO{
				TxHash:      fmt.Sprintf("%064x", i),
				OutputIndex: 0,
				Amount:      []Amount{{Unit: LovelaceUnit, Quantity: "2000000"}, {Unit: testPolicy + "41", Quantity: "1"}},
			})
		}
		if out == nil {
			out = []UTxO{}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/addresses/addr_test1unused/utxos", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	c := newTestClient(t, mux)

	utxos, err := c.AddressUTXOs(context.Background(), "addr_test1abc")
	require.NoError(t, err)
	require.Len(t, utxos, total)
	assert.Equal(t, uint64(2_000_000), utxos[0].Lovelace())
	assert.Equal(t, map[string]uint64{testPolicy + "41": 1}, utxos[0].Assets())

	ok, err := c.ContainsUTxO(context.Background(), "addr_test1abc", fmt.Sprintf("%064x", 129), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.ContainsUTxO(context.Background(), "addr_test1abc", fmt.Sprintf("%064x", 129), 1)
	require.NoError(t, err)
	assert.False(t, ok)

	utxos, err = c.AddressUTXOs(context.Background(), "addr_test1unused")
	require.NoError(t, err)
	assert.Empty(t, utxos)
}

func TestAssetsByPolicyStopsOnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/policy/"+testPolicy, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeJSON(w, []PolicyAsset{{Asset: testPolicy + "41", Quantity: "1"}, {Asset: testPolicy, Quantity: "1"}})
		case "2":
			writeJSON(w, []PolicyAsset{{Asset: testPolicy + "42", Quantity: "3"}})
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	})
	c := newTestClient(t, mux)

	assets, err := c.AssetsByPolicy(context.Background(), testPolicy)
	require.NoError(t, err)
	assert.Len(t, assets, 3)

	n, err := c.PolicyNFTCount(context.Background(), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/txs/"+fmt.Sprintf("%064x", 1), func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	c := newTestClient(t, mux)

	_, err := c.Transaction(context.Background(), fmt.Sprintf("%064x", 1))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Not Found", ae.ErrorText)
}

func TestResolveAdaHandle(t *testing.T) {
	asset := utils.AssetUnit(prt.AdaHandlePolicyID, "cardroom")
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/"+asset+"/addresses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []AssetAddress{{Address: "addr_test1holder", Quantity: "1"}})
	})
	c := newTestClient(t, mux)

	addr, err := c.ResolveAdaHandle(context.Background(), "$cardroom")
	require.NoError(t, err)
	assert.Equal(t, "addr_test1holder", addr)
}

func TestRoyaltyInfo(t *testing.T) {
	mintTx := fmt.Sprintf("%064x", 7)
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/"+testPolicy+"/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []AssetHistory{
			{TxHash: fmt.Sprintf("%064x", 6), Amount: "2", Action: "minted"},
			{TxHash: mintTx, Amount: "1", Action: "minted"},
		})
	})
	mux.HandleFunc("/txs/"+mintTx+"/metadata", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []TxMetadata{
			{Label: "721", JSONMetadata: map[string]interface{}{testPolicy: map[string]interface{}{"": map[string]interface{}{}}}},
			{Label: "777", JSONMetadata: map[string]interface{}{
				"rate": "0.05",
				"addr": []string{"addr_test1qpart1", "part2"},
			}},
		})
	})
	c := newTestClient(t, mux)

	r, err := c.RoyaltyInfo(context.Background(), testPolicy)
	require.NoError(t, err)
	assert.Equal(t, mintTx, r.TxHash)
	assert.Equal(t, "addr_test1qpart1part2", r.Address)
	assert.InDelta(t, 5.0, r.Percent(), 1e-9)
}

func TestRoyaltyInfoNotSet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/assets/"+testPolicy+"/history", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})
	c := newTestClient(t, mux)

	_, err := c.RoyaltyInfo(context.Background(), testPolicy)
	assert.ErrorIs(t, err, policy.ErrRoyaltyNotSet)
}

func TestSubmitTx(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/cbor", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x84, 0x01}, body)
		writeJSON(w, fmt.Sprintf("%064x", 9))
	})
	c := newTestClient(t, mux)

	hash, err := c.SubmitTx(context.Background(), []byte{0x84, 0x01})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%064x", 9), hash)
}

func TestTransactionCached(t *testing.T) {
	var hits int32
	txHash := fmt.Sprintf("%064x", 3)
	mux := http.NewServeMux()
	mux.HandleFunc("/txs/"+txHash, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, Transaction{Hash: txHash, Slot: 4242})
	})
	cache, err := storage.OpenMemoryCache(time.Minute)
	require.NoError(t, err)
	defer cache.Close()
	c := newTestClient(t, mux, WithCache(cache), WithRateLimit(100, 10))

	for i := 0; i < 3; i++ {
		slot, err := c.TxSlot(context.Background(), txHash)
		require.NoError(t, err)
		assert.Equal(t, uint64(4242), slot)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestProtocolParameters(t *testing.T) {
	p := ProtocolParameters{MinFeeA: 44, MinFeeB: 155381, CoinsPerUTxOSize: "4310"}
	assert.Equal(t, uint64(34480), p.CoinsPerUTxOWordValue())
	p.CoinsPerUTxOWord = "34482"
	assert.Equal(t, uint64(34482), p.CoinsPerUTxOWordValue())
}

func TestAccountAddressesAndAssetTransactions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/stake_test1xyz/addresses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		writeJSON(w, []AccountAddress{{Address: "addr_test1a"}, {Address: "addr_test1b"}})
	})
	mux.HandleFunc("/assets/"+testPolicy+"43617264/transactions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []AssetTransaction{{TxHash: "aa", TxIndex: 1, BlockHeight: 10}})
	})
	c := newTestClient(t, mux, WithHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	ctx := context.Background()

	addrs, err := c.AccountAddresses(ctx, "stake_test1xyz")
	require.NoError(t, err)
	assert.Equal(t, []AccountAddress{{Address: "addr_test1a"}, {Address: "addr_test1b"}}, addrs)

	txs, err := c.AssetTransactions(ctx, testPolicy, "Card")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, uint32(1), txs[0].TxIndex)

	_, err = c.AssetTransactions(ctx, testPolicy, "Missing")
	assert.True(t, IsNotFound(err))
}
