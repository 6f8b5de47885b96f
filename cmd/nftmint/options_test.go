package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsAction(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want action
		err  string
	}{
		{"help", options{}, actHelp, ""},
		{"create wallet", options{createWallet: "w"}, actCreateWallet, ""},
		{"create wallet extra", options{createWallet: "w", wallet: "x"}, 0, "--create-wallet <NAME>, Does not permit other parameters"},
		{"create policy", options{createPolicy: "p", wallet: "w", months: 12}, actCreatePolicy, ""},
		{"create policy no wallet", options{createPolicy: "p", months: 12}, 0, "--create-policy=<NAME>, Requires --wallet"},
		{"create policy extra", options{createPolicy: "p", wallet: "w", drop: "d", months: 12}, 0, "--create-policy=<NAME>, Requires only --wallet"},
		{"create policy months", options{createPolicy: "p", wallet: "w"}, 0, "--months must be positive: 0"},
		{"create drop", options{createDrop: "d", policy: "p"}, actCreateDrop, ""},
		{"create drop no policy", options{createDrop: "d"}, 0, "--create-drop <NAME>, Requires --policy"},
		{"create drop extra", options{createDrop: "d", policy: "p", wallet: "w"}, 0, "--create-drop <NAME>, Requires only --policy"},
		{"template", options{createDropTemplate: "d"}, actCreateDropTemplate, ""},
		{"mint", options{mint: true, drop: "d", whitelist: "wl.json"}, actMint, ""},
		{"mint no drop", options{mint: true}, 0, "--mint, Requires --drop"},
		{"mint with policy", options{mint: true, drop: "d", policy: "p"}, 0, "--mint, Wallet and policy derived from metadata"},
		{"mint and burn", options{mint: true, drop: "d", burn: true}, 0, "--mint, Requires --drop only"},
		{"royalty", options{setRoyalty: 5, policy: "p", royaltyAddress: "addr"}, actSetRoyalty, ""},
		{"royalty negative", options{setRoyalty: -1, policy: "p", royaltyAddress: "addr"}, 0, "royalty must be > 0: -1"},
		{"royalty no policy", options{setRoyalty: 5, royaltyAddress: "addr"}, 0, "--set-royalty, Requires --policy"},
		{"royalty no address", options{setRoyalty: 5, policy: "p"}, 0, "--set-royalty, Requires --royalty-address"},
		{"burn all", options{burn: true, policy: "p", confirm: true}, actBurnAll, ""},
		{"burn token", options{burn: true, policy: "p", tokenSet: true, token: "Card0001"}, actBurnToken, ""},
		{"burn royalty token", options{burn: true, policy: "p", tokenSet: true}, actBurnToken, ""},
		{"burn no policy", options{burn: true, confirm: true}, 0, "--burn, Requires --policy"},
		{"burn nothing", options{burn: true, policy: "p"}, 0, "nothing to do, --burn needs --confirm or --token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.action()
			if tt.err != "" {
				require.EqualError(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsChain(t *testing.T) {
	assert.True(t, actCreatePolicy.needsChain())
	assert.True(t, actMint.needsChain())
	assert.False(t, actCreateDrop.needsChain())
	assert.False(t, actCreateDropTemplate.needsChain())
	assert.False(t, actHelp.needsChain())
}
