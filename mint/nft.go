package mint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	log "github.com/thecardroom/tcr/common/logger"
	"github.com/thecardroom/tcr/common/utils"
	"github.com/thecardroom/tcr/policy"
	prt "github.com/thecardroom/tcr/protocol"
)

// metadataChunk is the longest text a metadata string may hold.
const metadataChunk = 64

var (
	ErrTokenCount     = errors.New("there should only be one token name")
	ErrPolicyMismatch = errors.New("policy id mismatch")
	ErrImageNotIPFS   = errors.New("image not uploaded to IPFS")
)

// NFTMetadata is one parsed CIP-25 file.
type NFTMetadata struct {
	PolicyID   string
	TokenNames []string
	Properties map[string]map[string]interface{}
	Version    string
}

// ParseNFTFile reads {"721": {policy: {token: {...}}, "version": ...}}.
func ParseNFTFile(path string) (*NFTMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	nft, ok := doc[strconv.Itoa(prt.NFTLabel)]
	if !ok {
		return nil, fmt.Errorf("%s: no %d label", path, prt.NFTLabel)
	}

	md := &NFTMetadata{Properties: make(map[string]map[string]interface{})}
	for key, v := range nft {
		if key == "version" {
			md.Version, _ = v.(string)
			continue
		}
		if md.PolicyID != "" {
			return nil, fmt.Errorf("%s: more than one policy", path)
		}
		tokens, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: policy %s is not an object", path, key)
		}
		md.PolicyID = key
		for name, props := range tokens {
			p, ok := props.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: token %s is not an object", path, name)
			}
			md.TokenNames = append(md.TokenNames, name)
			md.Properties[name] = p
		}
	}
	if md.PolicyID == "" {
		return nil, fmt.Errorf("%s: no policy", path)
	}
	sort.Strings(md.TokenNames)
	return md, nil
}

// Image returns the image of token as one string; long URIs may be
// stored as a list of chunks.
func (m *NFTMetadata) Image(token string) string {
	switch v := m.Properties[token]["image"].(type) {
	case string:
		return v
	case []interface{}:
		var b strings.Builder
		for _, part := range v {
			s, _ := part.(string)
			b.WriteString(s)
		}
		return b.String()
	}
	return ""
}

// Validate applies the per-file checks of a drop.
func (m *NFTMetadata) Validate(policyID string) error {
	if len(m.TokenNames) != 1 {
		return ErrTokenCount
	}
	if m.PolicyID != policyID {
		return fmt.Errorf("%w: %s vs %s", ErrPolicyMismatch, m.PolicyID, policyID)
	}
	if !strings.HasPrefix(m.Image(m.TokenNames[0]), "ipfs://") {
		return fmt.Errorf("%w: %s", ErrImageNotIPFS, m.TokenNames[0])
	}
	return nil
}

// ValidateDrop checks every file not yet minted.
func ValidateDrop(list *MetadataList, policyID string) error {
	for _, f := range list.Pending() {
		md, err := ParseNFTFile(f)
		if err != nil {
			return err
		}
		if err := md.Validate(policyID); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	return nil
}

// MergeMetadata builds the label 721 transaction metadata of several NFT
// files of the same policy.
func MergeMetadata(files []*NFTMetadata) (map[uint]interface{}, []string, error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no metadata files")
	}
	policyID := files[0].PolicyID
	tokens := make(map[string]interface{})
	var names []string
	for _, f := range files {
		if f.PolicyID != policyID {
			return nil, nil, fmt.Errorf("%w: %s vs %s", ErrPolicyMismatch, f.PolicyID, policyID)
		}
		for _, n := range f.TokenNames {
			if _, dup := tokens[n]; dup {
				return nil, nil, fmt.Errorf("token %s listed twice", n)
			}
			tokens[n] = normalize(f.Properties[n])
			names = append(names, n)
		}
	}
	nft := map[string]interface{}{policyID: tokens}
	if files[0].Version != "" {
		nft["version"] = files[0].Version
	}
	return map[uint]interface{}{prt.NFTLabel: nft}, names, nil
}

// normalize turns JSON values into ones transaction metadata can carry:
// integers stay integers, other numbers become text and long strings are
// split into chunks.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		if len(t) <= metadataChunk {
			return t
		}
		var parts []interface{}
		for i := 0; i < len(t); i += metadataChunk {
			end := i + metadataChunk
			if end > len(t) {
				end = len(t)
			}
			parts = append(parts, t[i:end])
		}
		return parts
	case bool:
		return strconv.FormatBool(t)
	default:
		return t
	}
}

// CreateDrop generates the metadata set of a drop: the ids
// initial-id..initial-id+total-1 in a shuffled order fixed by seed, one
// CIP-25 file per NFT under metadata/.
func CreateDrop(paths Paths, p *policy.Policy, m *Metametadata, seed int64) (string, error) {
	setFile := paths.MetadataSetFile(m.DropName)
	if utils.FileExists(setFile) {
		log.Error("Series Metadata Set: ", setFile, ", already exists!")
		return "", fmt.Errorf("%w: %s", ErrDropExists, setFile)
	}
	if m.Total <= 0 {
		return "", fmt.Errorf("drop %s: total must be > 0", m.DropName)
	}
	if m.TokenName == "" {
		return "", fmt.Errorf("drop %s: token-name is empty", m.DropName)
	}

	ids := make([]int, m.Total)
	for i := range ids {
		ids[i] = m.InitialID + i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	width := len(strconv.Itoa(m.InitialID + m.Total - 1))
	if width < 4 {
		width = 4
	}

	files := make([]string, 0, len(ids))
	for _, id := range ids {
		token := fmt.Sprintf("%s%0*d", m.TokenName, width, id)
		rel := filepath.Join("metadata", token+".json")
		if err := writeNFTFile(filepath.Join(paths.DropDir(m.DropName), rel), p.ID(), token, nftProperties(m, id)); err != nil {
			return "", err
		}
		files = append(files, filepath.ToSlash(rel))
	}

	m.Policy = p.Name()
	if err := SaveMetametadata(paths, m); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(metadataSet{Files: files}, "", "    ")
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileAtomic(setFile, data, 0o644); err != nil {
		return "", err
	}
	log.Info("created drop ", m.DropName, " with ", len(files), " NFTs, seed ", seed)
	return setFile, nil
}

func nftProperties(m *Metametadata, id int) map[string]interface{} {
	props := make(map[string]interface{}, len(m.Properties)+5)
	for k, v := range m.Properties {
		props[k] = v
	}
	name := m.NftName
	if name == "" {
		name = m.TokenName
	}
	props["name"] = fmt.Sprintf("%s #%d", name, id)
	props["id"] = id
	props["image"] = strings.ReplaceAll(m.Image, "{id}", strconv.Itoa(id))
	if m.MediaType != "" {
		props["mediaType"] = m.MediaType
	}
	if m.Description != "" {
		props["description"] = m.Description
	}
	return props
}

func writeNFTFile(path, policyID, token string, props map[string]interface{}) error {
	doc := map[string]interface{}{
		strconv.Itoa(prt.NFTLabel): map[string]interface{}{
			policyID:  map[string]interface{}{token: props},
			"version": "1.0",
		},
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(path, data, 0o644)
}
