package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/thecardroom/tcr/app"
	"github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/mint"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
	"github.com/thecardroom/tcr/wallet"
)

// Version info (Injected from Makefile)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	configFile string
	debug      bool
	opts       options
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "nftmint",
		Short: "The Card Room payment processor / NFT minter",
		Long: `nftmint creates wallets, policies and drops, processes payments for a drop
and mints the NFTs, burns tokens and sets the CIP-27 royalty of a policy.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.tokenSet = cmd.Flags().Changed("token")
			return run(opts)
		},
	}

	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "Path to config file")
	f.BoolVar(&debug, "debug", false, "Write debug logs to the console")
	f.StringVar(&opts.network, "network", "", "Which network to use, [mainnet | preprod | preview]")
	f.StringVar(&opts.createWallet, "create-wallet", "", "Create a new wallet for <network>. No other parameters required.")
	f.StringVar(&opts.createPolicy, "create-policy", "", "Create a new policy for <wallet>, locked after <months>. Requires --wallet")
	f.StringVar(&opts.createDrop, "create-drop", "", "Create the metadata set of a drop for <policy>. Requires --policy")
	f.StringVar(&opts.createDropTemplate, "create-drop-template", "", "Write a metametadata template for a new drop")
	f.Float64Var(&opts.setRoyalty, "set-royalty", 0, "Percent royalty. Requires --policy, --royalty-address")
	f.BoolVar(&opts.mint, "mint", false, "Process payments, mint NFTs. Requires --drop, Optional: --whitelist")
	f.StringVar(&opts.whitelist, "whitelist", "", "Whitelist payments to process before general payments")
	f.BoolVar(&opts.burn, "burn", false, "Burn tokens of the policy. Requires --policy and --confirm or --token")
	f.BoolVar(&opts.confirm, "confirm", false, "Confirm burn all tokens in policy")
	f.StringVar(&opts.policy, "policy", "", "The name of the policy for minting")
	f.StringVar(&opts.wallet, "wallet", "", "The name of the wallet for accepting payment and minting")
	f.StringVar(&opts.royaltyAddress, "royalty-address", "", "Address for receiving royalty payments")
	f.StringVar(&opts.drop, "drop", "", "The name of the NFT drop")
	f.Int64Var(&opts.seed, "seed", 0, "Seed for the drop shuffle, 0 uses the current time")
	f.IntVar(&opts.months, "months", 12, "How long the new policy is unlocked")
	f.StringVar(&opts.token, "token", "", "The token to burn, empty for the royalty token")
	_ = rootCmd.MarkFlagRequired("network")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nftmint v%s (built: %s)\n", Version, BuildTime)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("")
		fmt.Println("EXCEPTION:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if _, err := prt.ParseNetwork(o.network); err != nil {
		return fmt.Errorf("Invalid Network: %s", o.network)
	}
	act, err := o.action()
	if err != nil {
		return err
	}

	application, err := app.New(app.Options{
		ConfigPath: configFile,
		AppName:    "nftmint",
		Console:    true,
		Network:    o.network,
		DiskCache:  act == actMint,
	})
	if err != nil {
		return err
	}
	defer application.Close()
	application.SigHandler()

	logger.Info("Log File: ", application.LogPath)
	logger.Info(strings.ToUpper(string(application.Network)), " Payment Processor / NFT Minter")
	logger.Info("Copyright 2021-2022 The Card Room")
	logger.Info("Network: ", application.Network)

	ctx := application.Context()
	var tipSlot uint64
	if act.needsChain() {
		tipSlot = application.Report(ctx)
	}

	if err := dispatch(ctx, application, act, o, tipSlot); err != nil {
		logger.Error(err)
		return err
	}
	return nil
}

func dispatch(ctx context.Context, a *app.App, act action, o options, tipSlot uint64) error {
	switch act {
	case actCreateWallet:
		return createWallet(a, o.createWallet)
	case actCreatePolicy:
		return createPolicy(a, o.createPolicy, o.wallet, tipSlot, o.months)
	case actCreateDrop:
		return createDrop(a, o.createDrop, o.policy, o.seed)
	case actCreateDropTemplate:
		file, err := mint.WriteTemplate(a.Paths(), o.createDropTemplate)
		if err != nil {
			return err
		}
		logger.Info("Wrote drop template: ", file)
		return nil
	case actMint:
		return runMint(ctx, a, o.drop, o.whitelist)
	case actSetRoyalty:
		p, err := loadPolicy(a, o.policy)
		if err != nil {
			return err
		}
		tx, err := mint.SetRoyalty(ctx, a.Indexer, a.Builder, p, o.setRoyalty, o.royaltyAddress)
		if err != nil {
			return err
		}
		logger.Info("tx id = ", tx)
		return nil
	case actBurnAll, actBurnToken:
		p, err := loadPolicy(a, o.policy)
		if err != nil {
			return err
		}
		logger.Info("Burn Wallet: ", p.WalletName())
		burner := a.Burner(nil)
		if act == actBurnToken {
			tx, err := burner.BurnToken(ctx, p, o.token)
			if err != nil {
				return err
			}
			logger.Info("tx id = ", tx)
			return nil
		}
		n, err := burner.BurnAll(ctx, p)
		logger.Info("burned ", n, " token(s)")
		if errors.Is(err, mint.ErrNoTokens) {
			logger.Error("No tokens found for policy")
			return nil
		}
		return err
	}
	for _, line := range helpLines {
		logger.Info(line)
	}
	return nil
}

func createWallet(a *app.App, name string) error {
	if _, err := a.Store.Wallet(name); err == nil {
		return fmt.Errorf("Wallet: <%s> already exists", name)
	}
	w, err := wallet.Create(a.Network, name)
	if err != nil {
		return fmt.Errorf("Failed to create wallet: <%s>: %w", name, err)
	}
	if err := a.Store.AddWallet(w.Settings()); err != nil {
		return err
	}
	if err := a.Store.Save(); err != nil {
		return err
	}
	root, err := w.DelegatedPaymentAddress(prt.AddressRoot)
	if err != nil {
		return err
	}
	logger.Info("Successfully created new wallet: <", name, ">")
	logger.Info("Root address: ", root.Bech32())
	return nil
}

func createPolicy(a *app.App, name, walletName string, tipSlot uint64, months int) error {
	if _, err := a.Store.Policy(name); err == nil {
		return fmt.Errorf("Policy: <%s> already exists", name)
	}
	owner, err := a.Store.LoadWallet(walletName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("Wallet: <%s> does not exist", walletName)
		}
		return err
	}
	beforeSlot, err := policy.BeforeSlotInMonths(tipSlot, months)
	if err != nil {
		return err
	}
	p, err := policy.Create(name, owner, beforeSlot)
	if err != nil {
		return fmt.Errorf("Failed to create policy: <%s>: %w", name, err)
	}
	if err := a.Store.AddPolicy(p.Settings(), tipSlot); err != nil {
		return err
	}
	if err := a.Store.Save(); err != nil {
		return err
	}
	logger.Info("Successfully created new policy: ", name, " / ", p.ID())
	logger.Info("Expires at slot: ", beforeSlot)
	logger.Info("Expires in: ", months, " months")
	return nil
}

func createDrop(a *app.App, drop, policyName string, seed int64) error {
	p, err := loadPolicy(a, policyName)
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = time.Now().Unix()
	}
	logger.Info("Create RNG with SEED: ", seed)
	m, err := mint.LoadMetametadata(a.Paths(), drop)
	if err != nil {
		return err
	}
	setFile, err := mint.CreateDrop(a.Paths(), p, m, seed)
	if err != nil {
		return err
	}
	logger.Info("Successfully created new drop: ", setFile)
	return nil
}

func loadPolicy(a *app.App, name string) (*policy.Policy, error) {
	p, err := a.Store.LoadPolicy(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("Policy: %s, does not exist", name)
		}
		return nil, err
	}
	logger.Info("Policy: ", name, " / ", p.ID())
	return p, nil
}

// runMint checks the drop, serves the whitelist and then the general sale
// until a signal arrives.
func runMint(ctx context.Context, a *app.App, drop, whitelist string) error {
	paths := a.Paths()
	m, err := mint.LoadMetametadata(paths, drop)
	if err != nil {
		return err
	}
	p, err := loadPolicy(a, m.Policy)
	if err != nil {
		return err
	}
	logger.Info("Mint Wallet: ", p.WalletName())

	setFile := paths.MetadataSetFile(drop)
	if !utils.FileExists(setFile) {
		return fmt.Errorf("Series Metadata Set: %s, does not exist!", setFile)
	}
	logger.Info("Metadata Set File: ", setFile)

	ledger, err := a.Ledger()
	if err != nil {
		return err
	}
	list, err := mint.OpenMetadataList(setFile, drop, ledger)
	if err != nil {
		return err
	}
	if err := mint.ValidateDrop(list, p.ID()); err != nil {
		return err
	}
	logger.Info("prices: ", strings.Join(m.PriceList(), ", "))

	var wl []prt.UTxORef
	if whitelist != "" {
		if wl, err = mint.LoadWhitelist(paths, drop, whitelist); err != nil {
			return err
		}
		logger.Info("Whitelist Contains ", len(wl), " UTXOs")
	}

	sink := a.NewRest(ledger)
	proc, err := mint.NewProcessor(mint.ProcessorConfig{
		Policy:       p,
		Metametadata: m,
		List:         list,
		Whitelist:    wl,
		PollInterval: time.Duration(a.Conf.Mint.PollSec) * time.Second,
	}, a.Indexer, a.Slots(), a.Builder, ledger, sink)
	if err != nil {
		return err
	}
	if err := a.StartRest(proc); err != nil {
		return err
	}
	return proc.Run(ctx)
}
