package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/thecardroom/tcr/common/crypto"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/policy"
	"github.com/thecardroom/tcr/project"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/wallet"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate name")
	ErrInUse         = errors.New("still referenced")
	ErrEmptyName     = errors.New("name is empty")
	ErrPolicyExpired = errors.New("policy expiry slot is not after the tip")
	ErrBadPassphrase = errors.New("project data: wrong api key or corrupted file")
)

const documentVersion = 1

// Document is the plaintext form of the project data file.
type Document struct {
	Network  prt.Network        `json:"network"`
	Wallets  []wallet.Settings  `json:"wallets"`
	Policies []policy.Settings  `json:"policies"`
	Projects []project.Settings `json:"projects"`
}

type envelope struct {
	Version int           `json:"version"`
	Crypto  crypto.Crypto `json:"crypto"`
}

// ProjectData is the encrypted store of wallets, policies and projects.
// Names are unique per kind and references between kinds are checked.
type ProjectData struct {
	mu     sync.RWMutex
	path   string
	key    string
	params crypto.ScryptParams

	network  prt.Network
	wallets  *keyed[wallet.Settings]
	policies *keyed[policy.Settings]
	projects *keyed[project.Settings]
}

// OpenProjectData decrypts path with a key derived from the indexer api
// key. A missing file gives an empty document on network none.
func OpenProjectData(path, apiKey string) (*ProjectData, error) {
	return OpenProjectDataWithParams(path, apiKey, crypto.StandardScrypt)
}

func OpenProjectDataWithParams(path, apiKey string, params crypto.ScryptParams) (*ProjectData, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("project data: api key is empty")
	}
	pd := &ProjectData{
		path:     path,
		key:      apiKey,
		params:   params,
		network:  prt.NetworkNone,
		wallets:  newKeyed[wallet.Settings](),
		policies: newKeyed[policy.Settings](),
		projects: newKeyed[project.Settings](),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pd, nil
		}
		return nil, fmt.Errorf("read project data: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse project data: %w", err)
	}
	plain, err := crypto.Decrypt(&env.Crypto, apiKey)
	if err != nil {
		if errors.Is(err, crypto.ErrDecrypt) {
			return nil, ErrBadPassphrase
		}
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode project data: %w", err)
	}
	if err := pd.load(doc); err != nil {
		return nil, err
	}
	return pd, nil
}

func (pd *ProjectData) load(doc Document) error {
	if doc.Network == "" {
		doc.Network = prt.NetworkNone
	}
	pd.network = doc.Network
	for _, w := range doc.Wallets {
		if err := pd.wallets.add(w.Name, w); err != nil {
			return fmt.Errorf("wallet %s: %w", w.Name, err)
		}
	}
	for _, p := range doc.Policies {
		if err := pd.policies.add(p.Name, p); err != nil {
			return fmt.Errorf("policy %s: %w", p.Name, err)
		}
	}
	for _, p := range doc.Projects {
		if err := pd.projects.add(p.Name, p); err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
	}
	return nil
}

// Document returns a snapshot of the plaintext document.
func (pd *ProjectData) Document() Document {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return Document{
		Network:  pd.network,
		Wallets:  pd.wallets.list(),
		Policies: pd.policies.list(),
		Projects: pd.projects.list(),
	}
}

// Save encrypts the document and replaces the file.
func (pd *ProjectData) Save() error {
	plain, err := json.Marshal(pd.Document())
	if err != nil {
		return err
	}
	c, err := crypto.Encrypt(plain, pd.key, pd.params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Version: documentVersion, Crypto: *c})
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(pd.path, data, 0o600); err != nil {
		return fmt.Errorf("write project data: %w", err)
	}
	return nil
}

func (pd *ProjectData) Path() string {
	return pd.path
}

func (pd *ProjectData) Network() prt.Network {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.network
}

func (pd *ProjectData) SetNetwork(n prt.Network) {
	pd.mu.Lock()
	pd.network = n
	pd.mu.Unlock()
}

// 지갑

func (pd *ProjectData) Wallets() []wallet.Settings {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.wallets.list()
}

func (pd *ProjectData) Wallet(name string) (wallet.Settings, error) {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	w, ok := pd.wallets.get(name)
	if !ok {
		return w, fmt.Errorf("wallet %s: %w", name, ErrNotFound)
	}
	return w, nil
}

func (pd *ProjectData) AddWallet(w wallet.Settings) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if err := pd.wallets.add(w.Name, w); err != nil {
		return fmt.Errorf("wallet %s: %w", w.Name, err)
	}
	return nil
}

// DeleteWallet fails while a policy still names the wallet as owner.
func (pd *ProjectData) DeleteWallet(name string) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	for _, p := range pd.policies.list() {
		if p.Wallet == name {
			return fmt.Errorf("wallet %s: %w by policy %s", name, ErrInUse, p.Name)
		}
	}
	if !pd.wallets.delete(name) {
		return fmt.Errorf("wallet %s: %w", name, ErrNotFound)
	}
	return nil
}

// 정책

func (pd *ProjectData) Policies() []policy.Settings {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.policies.list()
}

func (pd *ProjectData) Policy(name string) (policy.Settings, error) {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	p, ok := pd.policies.get(name)
	if !ok {
		return p, fmt.Errorf("policy %s: %w", name, ErrNotFound)
	}
	return p, nil
}

// AddPolicy stores a new policy whose expiry slot lies after tipSlot, the
// current chain tip. Policies read back from the file are not checked.
func (pd *ProjectData) AddPolicy(p policy.Settings, tipSlot uint64) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if _, ok := pd.wallets.get(p.Wallet); !ok {
		return fmt.Errorf("policy %s: wallet %s: %w", p.Name, p.Wallet, ErrNotFound)
	}
	if tipSlot == 0 {
		return fmt.Errorf("policy %s: %w", p.Name, policy.ErrSlotNotSynced)
	}
	if p.BeforeSlot <= tipSlot {
		return fmt.Errorf("policy %s: before slot %d, tip %d: %w", p.Name, p.BeforeSlot, tipSlot, ErrPolicyExpired)
	}
	if err := pd.policies.add(p.Name, p); err != nil {
		return fmt.Errorf("policy %s: %w", p.Name, err)
	}
	return nil
}

func (pd *ProjectData) DeletePolicy(name string) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	for _, p := range pd.projects.list() {
		if p.PolicyName == name {
			return fmt.Errorf("policy %s: %w by project %s", name, ErrInUse, p.Name)
		}
	}
	if !pd.policies.delete(name) {
		return fmt.Errorf("policy %s: %w", name, ErrNotFound)
	}
	return nil
}

// 프로젝트

func (pd *ProjectData) Projects() []project.Settings {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	return pd.projects.list()
}

func (pd *ProjectData) Project(name string) (project.Settings, error) {
	pd.mu.RLock()
	defer pd.mu.RUnlock()
	p, ok := pd.projects.get(name)
	if !ok {
		return p, fmt.Errorf("project %s: %w", name, ErrNotFound)
	}
	return p, nil
}

func (pd *ProjectData) AddProject(p project.Settings) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if _, ok := pd.policies.get(p.PolicyName); !ok {
		return fmt.Errorf("project %s: policy %s: %w", p.Name, p.PolicyName, ErrNotFound)
	}
	if err := pd.projects.add(p.Name, p); err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}
	return nil
}

// UpdateProject replaces the stored settings of an existing project.
func (pd *ProjectData) UpdateProject(p project.Settings) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if !pd.projects.replace(p.Name, p) {
		return fmt.Errorf("project %s: %w", p.Name, ErrNotFound)
	}
	return nil
}

func (pd *ProjectData) DeleteProject(name string) error {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	if !pd.projects.delete(name) {
		return fmt.Errorf("project %s: %w", name, ErrNotFound)
	}
	return nil
}

// LoadWallet builds the named wallet for the store's network.
func (pd *ProjectData) LoadWallet(name string) (*wallet.Wallet, error) {
	s, err := pd.Wallet(name)
	if err != nil {
		return nil, err
	}
	return wallet.New(pd.Network(), s)
}

// LoadPolicy builds the named policy together with its owner wallet.
func (pd *ProjectData) LoadPolicy(name string) (*policy.Policy, error) {
	s, err := pd.Policy(name)
	if err != nil {
		return nil, err
	}
	owner, err := pd.LoadWallet(s.Wallet)
	if err != nil {
		return nil, err
	}
	return policy.New(s, owner)
}

// FindPolicyByID returns the stored policy whose id matches policyID.
func (pd *ProjectData) FindPolicyByID(policyID string) (*policy.Policy, error) {
	for _, s := range pd.Policies() {
		p, err := pd.LoadPolicy(s.Name)
		if err != nil {
			return nil, err
		}
		if p.ID() == policyID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("policy id %s: %w", policyID, ErrNotFound)
}
