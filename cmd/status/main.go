package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thecardroom/tcr/app"
	"github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/wallet"
)

var (
	configFile string
	network    string
	walletName string
	showQR     bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "status",
		Short:        "Chain, db-sync and wallet status",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	f := rootCmd.Flags()
	f.StringVarP(&configFile, "config", "c", "", "Path to config file")
	f.StringVar(&network, "network", "", "Which network to use, [mainnet | preprod | preview]")
	f.StringVar(&walletName, "wallet", "", "Dump UTXOs of a wallet name or an external addr...")
	f.BoolVar(&showQR, "qr", true, "Print a QR code of the root address")
	_ = rootCmd.MarkFlagRequired("network")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("")
		fmt.Println("EXCEPTION:", err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := prt.ParseNetwork(network); err != nil {
		return fmt.Errorf("Invalid Network: %s", network)
	}
	application, err := app.New(app.Options{ConfigPath: configFile, AppName: "status", Console: true, Network: network})
	if err != nil {
		return err
	}
	defer application.Close()
	application.SigHandler()

	ctx := application.Context()
	application.Report(ctx)
	if walletName == "" {
		return nil
	}

	addrs, err := resolveAddresses(ctx, application, walletName)
	if err != nil {
		logger.Error(err)
		return err
	}
	for _, a := range addrs.labelled {
		logger.Info(fmt.Sprintf("%15s = %s", a.label, a.address))
	}
	logger.Info(fmt.Sprintf("%15s = %s", "Stake address", addrs.stake))

	utxos, err := collectUTxOs(ctx, application.Indexer, application.Slots(), addrs.query)
	if err != nil {
		logger.Error(err)
		return err
	}
	var total uint64
	for _, u := range utxos {
		total += u.Lovelace()
		line := fmt.Sprintf("%10d  %s  %s", u.Slot, u.Ref(), utils.FormatAda(u.Lovelace()))
		for unit, qty := range u.Assets() {
			line += fmt.Sprintf("  %d %s", qty, unit)
		}
		logger.Info(line)
	}
	logger.Info("UTXOs: ", len(utxos), ", total ", utils.FormatAda(total))

	if showQR && len(addrs.labelled) > 0 {
		qr, err := utils.RenderQR(addrs.labelled[0].address)
		if err != nil {
			return err
		}
		fmt.Println(qr)
	}
	return nil
}

type labelledAddress struct {
	label   string
	address string
}

type walletAddresses struct {
	labelled []labelledAddress
	query    []string
	stake    string
}

// resolveAddresses lists the addresses to report for a stored wallet, or
// the single external address when name starts with addr.
func resolveAddresses(ctx context.Context, a *app.App, name string) (*walletAddresses, error) {
	if strings.HasPrefix(name, "addr") {
		if err := wallet.ValidateAddress(a.Network, name); err != nil {
			return nil, err
		}
		out := &walletAddresses{
			labelled: []labelledAddress{{"External", name}},
			query:    []string{name},
		}
		switch {
		case a.DBSync != nil:
			out.stake, _ = a.DBSync.StakeAddress(ctx, name)
		default:
			if ext, err := a.Indexer.AddressExtended(ctx, name); err == nil {
				out.stake = ext.StakeAddress
			}
		}
		return out, nil
	}

	w, err := a.Store.LoadWallet(name)
	if err != nil {
		return nil, fmt.Errorf("Wallet: <%s> does not exist: %w", name, err)
	}
	out := &walletAddresses{}
	for _, idx := range prt.AddressIndexes {
		d, err := w.DelegatedPaymentAddress(idx)
		if err != nil {
			return nil, err
		}
		out.labelled = append(out.labelled, labelledAddress{idx.String() + " address", d.Bech32()})
	}
	entries, err := w.Addresses()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		out.query = append(out.query, e.Address)
	}
	if out.stake, err = w.StakeAddress(); err != nil {
		return nil, err
	}
	return out, nil
}
