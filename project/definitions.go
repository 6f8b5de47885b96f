package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/thecardroom/tcr/common/utils"
)

type NftType int

const (
	NftCard   NftType = 1
	NftLayers NftType = 2
)

func (t NftType) String() string {
	switch t {
	case NftCard:
		return "Card"
	case NftLayers:
		return "Layers"
	default:
		return fmt.Sprintf("NftType(%d)", int(t))
	}
}

var ErrDuplicateDefinition = errors.New("duplicate nft definition")

type Definition struct {
	Name string  `json:"name"`
	Type NftType `json:"type"`
}

// Definitions is the NFT definitions file of a project.
type Definitions struct {
	path string
	Defs []Definition `json:"definitions"`
}

// LoadDefinitions reads path; a missing file yields an empty set.
func LoadDefinitions(path string) (*Definitions, error) {
	d := &Definitions{path: path, Defs: []Definition{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return d, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if d.Defs == nil {
		d.Defs = []Definition{}
	}
	return d, nil
}

func (d *Definitions) Path() string {
	return d.path
}

func (d *Definitions) Find(name string) (Definition, bool) {
	for _, def := range d.Defs {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

func (d *Definitions) Add(name string, t NftType) error {
	if name == "" {
		return fmt.Errorf("definition name is empty")
	}
	if t != NftCard && t != NftLayers {
		return fmt.Errorf("unknown nft type %d", int(t))
	}
	if _, ok := d.Find(name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, name)
	}
	d.Defs = append(d.Defs, Definition{Name: name, Type: t})
	return nil
}

// Delete removes name; it reports whether anything was removed.
func (d *Definitions) Delete(name string) bool {
	for i, def := range d.Defs {
		if def.Name == name {
			d.Defs = append(d.Defs[:i], d.Defs[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Definitions) Save() error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(d.path, data, 0o644)
}
