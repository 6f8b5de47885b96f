package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/naoina/toml"
	"github.com/thecardroom/tcr/common/utils"
)

type Common struct {
	Level       string // alpha (debug), prod
	ServiceName string
	Network     string // mainnet, preprod, preview, testnet
	DataFile    string // encrypted project data
	WorkDir     string // root of nft/ and policy/ directories
}

type LogInfo struct {
	Path       string
	MaxAgeHour int
	RotateHour int
	AlertURL   string // telegram bot sendMessage url, empty disables alerts
	AlertChat  int
}

type Blockfrost struct {
	ProjectID         string
	BaseURL           string // overrides the network table when set
	RequestsPerSecond float64
	Burst             int
	TimeoutSec        int
}

// DB 민트 원장 (leveldb)
type DB struct {
	Path string
}

// Cache 인덱서 응답 캐시 (badger)
type Cache struct {
	Path   string
	TTLMin int
}

type DBSync struct {
	DSN string // postgres://... , empty disables db-sync reporting
}

type Node struct {
	CliPath            string // cardano-cli binary, empty disables node queries
	ProtocolParamsFile string
}

type Server struct {
	RestPort int `toml:"RestPort"`
}

type Mint struct {
	PollSec         int
	ConfirmSec      int
	MinUtxoLovelace uint64
}

type Config struct {
	Common     Common
	LogInfo    LogInfo
	Blockfrost Blockfrost
	DB         DB
	Cache      Cache
	DBSync     DBSync
	Node       Node
	Server     Server
	Mint       Mint

	path string
}

// envOverrides 환경 변수로 덮어쓰는 항목
type envOverrides struct {
	ProjectID string `envconfig:"TCR_BLOCKFROST_PROJECT_ID"`
	DataFile  string `envconfig:"TCR_DATA_FILE"`
	Network   string `envconfig:"TCR_NETWORK"`
	DBSyncDSN string `envconfig:"TCR_DBSYNC_DSN"`
	RestPort  int    `envconfig:"TCR_REST_PORT"`
}

func Default() *Config {
	return &Config{
		Common: Common{
			Level:       "prod",
			ServiceName: "tcr",
			Network:     "none",
			WorkDir:     ".",
		},
		LogInfo: LogInfo{
			Path:       "log",
			MaxAgeHour: 24 * 14,
			RotateHour: 24,
		},
		Blockfrost: Blockfrost{
			RequestsPerSecond: 10,
			Burst:             50,
			TimeoutSec:        30,
		},
		DB:    DB{Path: "db/ledger"},
		Cache: Cache{Path: "db/cache", TTLMin: 24 * 60},
		Node:  Node{ProtocolParamsFile: "protocol_parameters.json"},
		Server: Server{
			RestPort: 8484,
		},
		Mint: Mint{
			PollSec:         20,
			ConfirmSec:      10,
			MinUtxoLovelace: 2_000_000,
		},
	}
}

// NewConfig loads the settings file. A missing file is not an error: the
// defaults are returned so a first run can fill them in and Save.
func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		filepath = DefaultPath()
	}

	c := Default()
	c.path = filepath

	file, err := os.Open(filepath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else {
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.sanitize()
	return c, nil
}

func DefaultPath() string {
	workDir, _ := os.Getwd()
	rootDir := utils.FindProjectRoot(workDir)
	return path.Join(rootDir, "config", "config.toml")
}

func (p *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.ProjectID != "" {
		p.Blockfrost.ProjectID = env.ProjectID
	}
	if env.DataFile != "" {
		p.Common.DataFile = env.DataFile
	}
	if env.Network != "" {
		p.Common.Network = env.Network
	}
	if env.DBSyncDSN != "" {
		p.DBSync.DSN = env.DBSyncDSN
	}
	if env.RestPort != 0 {
		p.Server.RestPort = env.RestPort
	}
	return nil
}

func (p *Config) sanitize() {
	p.LogInfo.Path = expandHome(p.LogInfo.Path)
	p.Common.DataFile = expandHome(p.Common.DataFile)
	p.Common.WorkDir = expandHome(p.Common.WorkDir)
	p.DB.Path = expandHome(p.DB.Path)
	p.Cache.Path = expandHome(p.Cache.Path)
}

func expandHome(s string) string {
	if len(s) > 0 && s[0] == byte('~') {
		return path.Join(utils.HomeDir(), s[1:])
	}
	return s
}

// Save writes the settings back to the file they were loaded from.
func (p *Config) Save() error {
	return p.SaveAs(p.path)
}

func (p *Config) SaveAs(filename string) error {
	if filename == "" {
		filename = DefaultPath()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	p.path = filename
	return nil
}

// IsConfigured reports whether the project id and data file are set.
func (p *Config) IsConfigured() bool {
	return len(p.Blockfrost.ProjectID) > 0 && len(p.Common.DataFile) > 0
}

func (p *Config) Path() string {
	return p.path
}
