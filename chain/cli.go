package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/thecardroom/tcr/common/logger"
	prt "github.com/thecardroom/tcr/protocol"
)

// Tip is the output of `cardano-cli query tip`.
type Tip struct {
	Block           uint64 `json:"block"`
	Epoch           uint64 `json:"epoch"`
	Era             string `json:"era"`
	Hash            string `json:"hash"`
	Slot            uint64 `json:"slot"`
	SlotInEpoch     uint64 `json:"slotInEpoch"`
	SlotsToEpochEnd uint64 `json:"slotsToEpochEnd"`
	SyncProgress    string `json:"syncProgress"`
}

// Cli runs cardano-cli against the local node of one network.
type Cli struct {
	path    string
	network prt.Network
	info    prt.NetworkInfo
}

func NewCli(path string, network prt.Network) (*Cli, error) {
	info, err := prt.LookupNetwork(network)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = "cardano-cli"
	}
	return &Cli{path: path, network: network, info: info}, nil
}

// Env returns the process environment with CARDANO_NODE_SOCKET_PATH set
// from the network specific socket variable.
func (c *Cli) Env() ([]string, error) {
	socket := os.Getenv(c.info.SocketEnv)
	if socket == "" {
		return nil, fmt.Errorf("%s is not set", c.info.SocketEnv)
	}
	env := os.Environ()
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prt.ActiveSocketEnv+"=") {
			out = append(out, kv)
		}
	}
	return append(out, prt.ActiveSocketEnv+"="+socket), nil
}

// Run executes cardano-cli with args followed by the network arguments
// and returns stdout without the trailing newline.
func (c *Cli) Run(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("no cardano-cli command")
	}
	env, err := c.Env()
	if err != nil {
		return "", err
	}
	full := append(append([]string(nil), args...), c.info.CliArgs...)
	log.Debug("Command: ", commandLine(c.path, full))

	cmd := exec.CommandContext(ctx, c.path, full...)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Error(c.path, ", failed: ", err)
		log.Error("stdout: ", stdout.String())
		log.Error("stderr: ", stderr.String())
		return "", fmt.Errorf("%s %s: %w: %s", c.path, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimRight(stdout.String(), "\r\n"), nil
}

func (c *Cli) QueryTip(ctx context.Context) (*Tip, error) {
	out, err := c.Run(ctx, "query", "tip")
	if err != nil {
		return nil, err
	}
	var tip Tip
	if err := json.Unmarshal([]byte(out), &tip); err != nil {
		return nil, fmt.Errorf("parse tip: %w", err)
	}
	return &tip, nil
}

// QueryProtocolParameters writes the current protocol parameters to
// outFile.
func (c *Cli) QueryProtocolParameters(ctx context.Context, outFile string) error {
	_, err := c.Run(ctx, "query", "protocol-parameters", "--out-file", outFile)
	return err
}

func commandLine(name string, args []string) string {
	parts := []string{name}
	for _, a := range args {
		if strings.Contains(a, " ") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
