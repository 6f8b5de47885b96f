package project

import (
	"fmt"
)

// Setting bounds shown by the project view.
const (
	MaxSeriesNumber = 100
	MaxInitialID    = 1_000_000
	MaxTotalNFTs    = 20_000
	MaxDimension    = 8192
)

// Settings is the persisted form of a project. Missing integer fields fall
// back to the defaults through WithDefaults.
type Settings struct {
	Name         string `json:"name"`
	PolicyName   string `json:"policy_name"`
	NftData      string `json:"nft_data"`
	SeriesNumber *int   `json:"series_number,omitempty"`
	InitialID    *int   `json:"initial_id,omitempty"`
	TotalNFTs    *int   `json:"total_nfts,omitempty"`
	OutputWidth  *int   `json:"output_width,omitempty"`
	OutputHeight *int   `json:"output_height,omitempty"`
	TokenName    string `json:"token_name"`
	NftName      string `json:"nft_name"`
}

// Project 프로젝트 설정 (기본값 적용됨)
type Project struct {
	Name         string
	PolicyName   string
	NftData      string
	SeriesNumber int
	InitialID    int
	TotalNFTs    int
	OutputWidth  int
	OutputHeight int
	TokenName    string
	NftName      string
}

func New(name, policyName, nftData string) *Project {
	return FromSettings(Settings{Name: name, PolicyName: policyName, NftData: nftData})
}

func FromSettings(s Settings) *Project {
	return &Project{
		Name:         s.Name,
		PolicyName:   s.PolicyName,
		NftData:      s.NftData,
		SeriesNumber: intOr(s.SeriesNumber, 0),
		InitialID:    intOr(s.InitialID, 0),
		TotalNFTs:    intOr(s.TotalNFTs, 500),
		OutputWidth:  intOr(s.OutputWidth, 2048),
		OutputHeight: intOr(s.OutputHeight, 2048),
		TokenName:    s.TokenName,
		NftName:      s.NftName,
	}
}

func (p *Project) Settings() Settings {
	return Settings{
		Name:         p.Name,
		PolicyName:   p.PolicyName,
		NftData:      p.NftData,
		SeriesNumber: intPtr(p.SeriesNumber),
		InitialID:    intPtr(p.InitialID),
		TotalNFTs:    intPtr(p.TotalNFTs),
		OutputWidth:  intPtr(p.OutputWidth),
		OutputHeight: intPtr(p.OutputHeight),
		TokenName:    p.TokenName,
		NftName:      p.NftName,
	}
}

func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name is empty")
	}
	if p.PolicyName == "" {
		return fmt.Errorf("project %s: policy is empty", p.Name)
	}
	checks := []struct {
		label string
		value int
		max   int
	}{
		{"series number", p.SeriesNumber, MaxSeriesNumber},
		{"initial id", p.InitialID, MaxInitialID},
		{"total nfts", p.TotalNFTs, MaxTotalNFTs},
		{"output width", p.OutputWidth, MaxDimension},
		{"output height", p.OutputHeight, MaxDimension},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return fmt.Errorf("project %s: %s %d out of range 0..%d", p.Name, c.label, c.value, c.max)
		}
	}
	return nil
}

// SetField updates a setting by its display key. Integer fields are parsed
// from text.
func (p *Project) SetField(key, value string) error {
	var target *int
	switch key {
	case "series_number":
		target = &p.SeriesNumber
	case "initial_id":
		target = &p.InitialID
	case "total_nfts":
		target = &p.TotalNFTs
	case "output_width":
		target = &p.OutputWidth
	case "output_height":
		target = &p.OutputHeight
	case "token_name":
		p.TokenName = value
		return nil
	case "nft_name":
		p.NftName = value
		return nil
	default:
		return fmt.Errorf("unknown project field %q", key)
	}

	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return fmt.Errorf("%s: %q is not a number", key, value)
	}
	old := *target
	*target = n
	if err := p.Validate(); err != nil {
		*target = old
		return err
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func intPtr(v int) *int {
	return &v
}
