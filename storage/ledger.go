package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
)

// PaymentStatus is the processing state of an incoming mint payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentMinted   PaymentStatus = "minted"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentRejected PaymentStatus = "rejected"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentMinted, PaymentRefunded, PaymentRejected}

// Payment is one UTxO sent to a mint or presale address.
type Payment struct {
	Ref       prt.UTxORef   `json:"ref"`
	Drop      string        `json:"drop"`
	Payer     string        `json:"payer"`
	Lovelace  uint64        `json:"lovelace"`
	Count     int           `json:"count"`
	Presale   bool          `json:"presale"`
	Tokens    []string      `json:"tokens,omitempty"`
	Status    PaymentStatus `json:"status"`
	TxHash    string        `json:"tx_hash,omitempty"` // mint or refund tx
	Reason    string        `json:"reason,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Ledger records what the mint runner has done so a restart never pays
// out or mints twice for one UTxO.
type Ledger struct {
	db *leveldb.DB
}

func NewLedger(db *leveldb.DB) *Ledger {
	return &Ledger{db: db}
}

// OpenLedger opens (or creates) a ledger directory.
func OpenLedger(path string) (*Ledger, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// CheckNetwork stamps an empty ledger with network and refuses a ledger
// created for another one.
func (l *Ledger) CheckNetwork(network prt.Network) error {
	v, err := l.db.Get([]byte(prt.PrefixMetaNetwork), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return l.db.Put([]byte(prt.PrefixMetaNetwork), []byte(network), nil)
	}
	if err != nil {
		return err
	}
	if prt.Network(v) != network {
		return fmt.Errorf("ledger belongs to %s, not %s", string(v), network)
	}
	return nil
}

// PutPayment stores p and moves its status marker in one batch.
func (l *Ledger) PutPayment(p *Payment) error {
	if p.Status == "" {
		p.Status = PaymentPending
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := utils.SerializeData(p, utils.SerializationFormatJSON)
	if err != nil {
		return fmt.Errorf("failed to serialize payment: %w", err)
	}

	batch := new(leveldb.Batch)
	old, err := l.GetPayment(p.Ref)
	switch {
	case err == nil:
		if old.Status != p.Status {
			batch.Delete(utils.GetPaymentStatusKey(string(old.Status), &p.Ref))
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	batch.Put(utils.GetPaymentKey(p.Ref), data)
	batch.Put(utils.GetPaymentStatusKey(string(p.Status), &p.Ref), []byte{})

	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write payment: %w", err)
	}
	return nil
}

func (l *Ledger) GetPayment(ref prt.UTxORef) (*Payment, error) {
	data, err := l.db.Get(utils.GetPaymentKey(ref), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, fmt.Errorf("payment %s: %w", ref, ErrNotFound)
		}
		return nil, err
	}
	var p Payment
	if err := utils.DeserializeData(data, &p, utils.SerializationFormatJSON); err != nil {
		return nil, fmt.Errorf("failed to deserialize payment: %w", err)
	}
	return &p, nil
}

// HasPayment reports whether ref was seen before, whatever its status.
func (l *Ledger) HasPayment(ref prt.UTxORef) (bool, error) {
	return l.db.Has(utils.GetPaymentKey(ref), nil)
}

// Payments lists payments with the given status, or all of them when
// status is empty.
func (l *Ledger) Payments(status PaymentStatus) ([]*Payment, error) {
	if status == "" {
		return l.allPayments()
	}

	prefix := utils.GetPaymentStatusKey(string(status), nil)
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var out []*Payment
	for iter.Next() {
		ref, err := prt.ParseUTxORef(string(iter.Key()[len(prefix):]))
		if err != nil {
			return nil, err
		}
		p, err := l.GetPayment(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, iter.Error()
}

func (l *Ledger) allPayments() ([]*Payment, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prt.PrefixPayment)), nil)
	defer iter.Release()

	var out []*Payment
	for iter.Next() {
		var p Payment
		if err := utils.DeserializeData(iter.Value(), &p, utils.SerializationFormatJSON); err != nil {
			return nil, fmt.Errorf("failed to deserialize payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, iter.Error()
}

// CountByStatus 상태별 결제 건수
func (l *Ledger) CountByStatus() (map[PaymentStatus]int, error) {
	out := make(map[PaymentStatus]int, len(PaymentStatuses))
	for _, st := range PaymentStatuses {
		iter := l.db.NewIterator(util.BytesPrefix(utils.GetPaymentStatusKey(string(st), nil)), nil)
		n := 0
		for iter.Next() {
			n++
		}
		err := iter.Error()
		iter.Release()
		if err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, nil
}

// DropCursor is the number of metadata files of drop already handed out.
func (l *Ledger) DropCursor(drop string) (int, error) {
	v, err := l.db.Get(utils.GetDropCursorKey(drop), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(utils.BytesToUint64(v)), nil
}

func (l *Ledger) SetDropCursor(drop string, n int) error {
	if n < 0 {
		return fmt.Errorf("negative drop cursor: %d", n)
	}
	return l.db.Put(utils.GetDropCursorKey(drop), utils.Uint64ToBytes(uint64(n)), nil)
}

// PutToken records the tx that minted policyID.name.
func (l *Ledger) PutToken(policyID, name, txHash string) error {
	return l.db.Put(utils.GetTokenKey(policyID, name), []byte(txHash), nil)
}

func (l *Ledger) TokenTx(policyID, name string) (string, error) {
	v, err := l.db.Get(utils.GetTokenKey(policyID, name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", fmt.Errorf("token %s.%s: %w", policyID, name, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}
