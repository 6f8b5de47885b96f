package main

import (
	"errors"
	"fmt"
)

type action int

const (
	actHelp action = iota
	actCreateWallet
	actCreatePolicy
	actCreateDrop
	actCreateDropTemplate
	actMint
	actSetRoyalty
	actBurnAll
	actBurnToken
)

// options are the parsed command line flags.
type options struct {
	network            string
	createWallet       string
	createPolicy       string
	createDrop         string
	createDropTemplate string
	mint               bool
	burn               bool
	confirm            bool
	setRoyalty         float64
	policy             string
	wallet             string
	royaltyAddress     string
	drop               string
	whitelist          string
	token              string
	tokenSet           bool // --token given, the empty name is the royalty token
	seed               int64
	months             int
}

// needsChain reports whether the action reads the chain tip.
func (a action) needsChain() bool {
	switch a {
	case actCreateWallet, actCreatePolicy, actMint, actSetRoyalty, actBurnAll, actBurnToken:
		return true
	}
	return false
}

// action picks what to do, in the same precedence as the flags are
// documented, and rejects flag combinations the action does not take.
func (o options) action() (action, error) {
	switch {
	case o.createWallet != "":
		if o.createPolicy != "" || o.createDrop != "" || o.createDropTemplate != "" ||
			o.mint || o.drop != "" || o.policy != "" || o.wallet != "" {
			return 0, errors.New("--create-wallet <NAME>, Does not permit other parameters")
		}
		return actCreateWallet, nil

	case o.createPolicy != "":
		if o.createDrop != "" || o.createDropTemplate != "" || o.mint || o.policy != "" || o.drop != "" {
			return 0, errors.New("--create-policy=<NAME>, Requires only --wallet")
		}
		if o.wallet == "" {
			return 0, errors.New("--create-policy=<NAME>, Requires --wallet")
		}
		if o.months <= 0 {
			return 0, fmt.Errorf("--months must be positive: %d", o.months)
		}
		return actCreatePolicy, nil

	case o.createDrop != "":
		if o.createDropTemplate != "" || o.mint || o.wallet != "" || o.drop != "" {
			return 0, errors.New("--create-drop <NAME>, Requires only --policy")
		}
		if o.policy == "" {
			return 0, errors.New("--create-drop <NAME>, Requires --policy")
		}
		return actCreateDrop, nil

	case o.createDropTemplate != "":
		if o.mint || o.burn || o.policy != "" || o.wallet != "" || o.drop != "" {
			return 0, errors.New("--create-drop-template <NAME>, Does not permit other parameters")
		}
		return actCreateDropTemplate, nil

	case o.mint:
		if o.drop == "" {
			return 0, errors.New("--mint, Requires --drop")
		}
		if o.wallet != "" || o.policy != "" {
			return 0, errors.New("--mint, Wallet and policy derived from metadata")
		}
		if o.burn || o.setRoyalty != 0 {
			return 0, errors.New("--mint, Requires --drop only")
		}
		return actMint, nil

	case o.setRoyalty != 0:
		if o.setRoyalty < 0 {
			return 0, fmt.Errorf("royalty must be > 0: %v", o.setRoyalty)
		}
		if o.policy == "" {
			return 0, errors.New("--set-royalty, Requires --policy")
		}
		if o.royaltyAddress == "" {
			return 0, errors.New("--set-royalty, Requires --royalty-address")
		}
		return actSetRoyalty, nil

	case o.burn:
		if o.policy == "" {
			return 0, errors.New("--burn, Requires --policy")
		}
		switch {
		case o.tokenSet:
			return actBurnToken, nil
		case o.confirm:
			return actBurnAll, nil
		}
		return 0, errors.New("nothing to do, --burn needs --confirm or --token")
	}
	return actHelp, nil
}

var helpLines = []string{
	"",
	"Help:",
	"\t$ nftmint --network=<preprod | mainnet> --create-wallet=<name>",
	"\t$ nftmint --network=<preprod | mainnet> --create-policy=<name> --wallet=<name> [--months=12]",
	"\t$ nftmint --network=<preprod | mainnet> --create-drop-template=<name>",
	"\t$ nftmint --network=<preprod | mainnet> --create-drop=<name> --policy=<name> --seed=<value>",
	"\t$ nftmint --network=<preprod | mainnet> --mint --drop=<name> [--whitelist=<file>]",
	"\t$ nftmint --network=<preprod | mainnet> --set-royalty=<percent> --policy=<name> --royalty-address=<addr>",
	"\t$ nftmint --network=<preprod | mainnet> --burn --policy=<name> [--confirm | --token=<name>]",
}
