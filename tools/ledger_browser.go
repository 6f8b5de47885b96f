package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/ledger_browser.go <ledger_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  meta                - Show network and payment counts")
		fmt.Println("  payments [status]   - List payments, optionally of one status")
		fmt.Println("  payment <hash#idx>  - Show one payment")
		fmt.Println("  cursors             - List drop cursors")
		fmt.Println("  tokens [policy_id]  - List minted tokens")
		fmt.Println("  all                 - Show all data")
		return
	}

	dbPath := os.Args[1]
	command := "meta"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}
	arg := ""
	if len(os.Args) > 3 {
		arg = os.Args[3]
	}

	// 읽기 전용, 민트 러너가 실행 중이면 열리지 않는다
	db, err := leveldb.OpenFile(dbPath, &opt.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	ledger := storage.NewLedger(db)
	defer ledger.Close()

	fmt.Printf("Ledger opened: %s\n\n", dbPath)

	switch command {
	case "meta":
		showMetadata(db, ledger)
	case "payments":
		listPayments(ledger, arg)
	case "payment":
		if arg == "" {
			fmt.Println("Usage: go run tools/ledger_browser.go <ledger_path> payment <hash#idx>")
			return
		}
		showPayment(ledger, arg)
	case "cursors":
		listPrefix(db, prt.PrefixDropCursor, func(key string, value []byte) {
			fmt.Printf("Drop %s: %d\n", strings.TrimPrefix(key, prt.PrefixDropCursor), utils.BytesToUint64(value))
		})
	case "tokens":
		prefix := prt.PrefixToken
		if arg != "" {
			prefix += arg + ":"
		}
		listPrefix(db, prefix, func(key string, value []byte) {
			policyID, nameHex, _ := strings.Cut(strings.TrimPrefix(key, prt.PrefixToken), ":")
			name, err := utils.HexToAssetName(nameHex)
			if err != nil {
				name = nameHex
			}
			if name == "" {
				name = "(royalty)"
			}
			fmt.Printf("%s.%s: %s\n", policyID, name, string(value))
		})
	case "all":
		showAllData(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func showMetadata(db *leveldb.DB, ledger *storage.Ledger) {
	fmt.Println("=== METADATA ===")

	network, err := db.Get([]byte(prt.PrefixMetaNetwork), nil)
	if err != nil {
		fmt.Printf("Network: Not found (%v)\n", err)
	} else {
		fmt.Printf("Network: %s\n", string(network))
	}

	counts, err := ledger.CountByStatus()
	if err != nil {
		fmt.Printf("Payments: %v\n", err)
		return
	}
	for _, st := range storage.PaymentStatuses {
		fmt.Printf("Payments %-9s %d\n", st+":", counts[st])
	}
	fmt.Println()
}

func listPayments(ledger *storage.Ledger, status string) {
	statuses := storage.PaymentStatuses
	if status != "" {
		statuses = []storage.PaymentStatus{storage.PaymentStatus(status)}
	}

	total := 0
	for _, st := range statuses {
		fmt.Printf("=== PAYMENTS (%s) ===\n", st)
		payments, err := ledger.Payments(st)
		if err != nil {
			fmt.Printf("Failed to list payments: %v\n", err)
			return
		}
		for _, p := range payments {
			fmt.Printf("%s  %s  %d lovelace  x%d  %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"), p.Ref, p.Lovelace, p.Count, p.TxHash)
			if p.Reason != "" {
				fmt.Printf("    reason: %s\n", p.Reason)
			}
		}
		total += len(payments)
		fmt.Println()
	}
	fmt.Printf("Total payments: %d\n", total)
}

func showPayment(ledger *storage.Ledger, refStr string) {
	fmt.Printf("=== PAYMENT %s ===\n", refStr)

	ref, err := prt.ParseUTxORef(refStr)
	if err != nil {
		fmt.Printf("Invalid payment reference: %v\n", err)
		return
	}
	p, err := ledger.GetPayment(ref)
	if err != nil {
		fmt.Printf("Payment not found: %v\n", err)
		return
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode payment: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// listPrefix calls fn for every entry under prefix.
func listPrefix(db *leveldb.DB, prefix string, fn func(key string, value []byte)) {
	iter := db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		fn(string(iter.Key()), iter.Value())
		count++
	}
	if err := iter.Error(); err != nil {
		fmt.Printf("Iterator error: %v\n", err)
	}
	fmt.Printf("Total entries: %d\n\n", count)
}

func showAllData(db *leveldb.DB) {
	fmt.Println("=== ALL LEDGER DATA ===")

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		value := iter.Value()

		fmt.Printf("[%d] Key: %s\n", count, key)
		fmt.Printf("     Value Size: %d bytes\n", len(value))
		if len(value) <= 100 {
			fmt.Printf("     Value: %s\n", string(value))
		} else {
			fmt.Printf("     Value (hex): %s...\n", hex.EncodeToString(value[:50]))
		}
		fmt.Println()

		count++
		if count >= 50 { // Show max 50 entries
			fmt.Printf("... (showing first 50 entries)\n")
			break
		}
	}

	fmt.Printf("Total entries: %d\n", count)
}
