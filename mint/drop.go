package mint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	prt "github.com/thecardroom/tcr/protocol"
)

var (
	ErrDropExists    = errors.New("metadata set already exists")
	ErrDropNameMatch = errors.New("unexpected drop name")
)

// Paths locates drop files under {root}/nft/{network}/{drop}/.
type Paths struct {
	Root    string
	Network prt.Network
}

func (p Paths) DropDir(drop string) string {
	return filepath.Join(p.Root, "nft", string(p.Network), drop)
}

func (p Paths) MetametadataFile(drop string) string {
	return filepath.Join(p.DropDir(drop), drop+"_metametadata.json")
}

func (p Paths) MetadataSetFile(drop string) string {
	return filepath.Join(p.DropDir(drop), drop+".json")
}

func (p Paths) WhitelistFile(drop, name string) string {
	return filepath.Join(p.DropDir(drop), name)
}

// Metametadata describes a drop: which policy mints it, what it costs and
// how its metadata set is generated.
type Metametadata struct {
	DropName string         `json:"drop-name"`
	Policy   string         `json:"policy"`
	Prices   map[string]int `json:"prices"`            // lovelace -> NFT count
	Presale  map[string]int `json:"presale,omitempty"` // whitelist prices, Prices when empty
	MaxPerTx int            `json:"max_per_tx"`

	// generation
	InitialID   int                    `json:"initial-id"`
	Total       int                    `json:"total"`
	TokenName   string                 `json:"token-name"`
	NftName     string                 `json:"nft-name"`
	Image       string                 `json:"image"` // {id} is replaced by the NFT id
	MediaType   string                 `json:"media-type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
}

// PriceTable converts the JSON price keys to lovelace amounts.
func (m *Metametadata) PriceTable(presale bool) (map[uint64]int, error) {
	src := m.Prices
	if presale && len(m.Presale) > 0 {
		src = m.Presale
	}
	out := make(map[uint64]int, len(src))
	for k, n := range src {
		lovelace, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", k, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("price %q: count must be > 0", k)
		}
		out[lovelace] = n
	}
	return out, nil
}

// PriceList is the price table sorted by lovelace, for display.
func (m *Metametadata) PriceList() []string {
	keys := make([]string, 0, len(m.Prices))
	for k := range m.Prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseUint(keys[i], 10, 64)
		b, _ := strconv.ParseUint(keys[j], 10, 64)
		return a < b
	})
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := strconv.ParseUint(k, 10, 64)
		out = append(out, fmt.Sprintf("%s -> %d", utils.FormatAda(v), m.Prices[k]))
	}
	return out
}

func LoadMetametadata(paths Paths, drop string) (*Metametadata, error) {
	file := paths.MetametadataFile(drop)
	log.Info("Open MetaMetaData: ", file)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var m Metametadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if m.DropName != drop {
		return nil, fmt.Errorf("%w: %s vs %s", ErrDropNameMatch, drop, m.DropName)
	}
	return &m, nil
}

func SaveMetametadata(paths Paths, m *Metametadata) error {
	file := paths.MetametadataFile(m.DropName)
	log.Info("Save MetaMetaData: ", file)
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(file, data, 0o644)
}

// WriteTemplate writes a metametadata file with example values for a new
// drop. An existing file is left alone.
func WriteTemplate(paths Paths, drop string) (string, error) {
	file := paths.MetametadataFile(drop)
	if utils.FileExists(file) {
		return "", fmt.Errorf("%s already exists", file)
	}
	m := &Metametadata{
		DropName:  drop,
		Prices:    map[string]int{"25000000": 1, "50000000": 2, "75000000": 3},
		Presale:   map[string]int{"20000000": 1},
		MaxPerTx:  3,
		InitialID: 1,
		Total:     100,
		TokenName: drop,
		NftName:   drop,
		Image:     "ipfs://<cid>/{id}.png",
		MediaType: "image/png",
	}
	if err := SaveMetametadata(paths, m); err != nil {
		return "", err
	}
	return file, nil
}

type whitelistFile struct {
	Whitelist []string `json:"whitelist"`
}

// LoadWhitelist reads the payment UTxOs ("txhash#index") allowed to buy
// before the general sale.
func LoadWhitelist(paths Paths, drop, name string) ([]prt.UTxORef, error) {
	file := paths.WhitelistFile(drop, name)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var wl whitelistFile
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	refs := make([]prt.UTxORef, 0, len(wl.Whitelist))
	for _, s := range wl.Whitelist {
		ref, err := prt.ParseUTxORef(s)
		if err != nil {
			return nil, fmt.Errorf("whitelist %s: %w", file, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
