package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thecardroom/tcr/common/crypto"
	conf "github.com/thecardroom/tcr/config"
	prt "github.com/thecardroom/tcr/protocol"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	scryptParams = crypto.LightScrypt
	t.Cleanup(func() { scryptParams = crypto.StandardScrypt })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg, err := conf.NewConfig(path)
	require.NoError(t, err)
	cfg.Common.Network = "preprod"
	cfg.Common.DataFile = filepath.Join(dir, "project.dat")
	cfg.Blockfrost.ProjectID = "preprodKEY"
	cfg.LogInfo.Path = filepath.Join(dir, "log")
	cfg.DB.Path = filepath.Join(dir, "db")
	cfg.Cache.Path = filepath.Join(dir, "cache")
	require.NoError(t, cfg.Save())
	return path, dir
}

func TestOneShotBesideMintRunner(t *testing.T) {
	path, dir := writeTestConfig(t)

	runner, err := New(Options{ConfigPath: path, AppName: "nftmint", Network: "Preprod", DiskCache: true})
	require.NoError(t, err)
	defer runner.Close()
	assert.Equal(t, prt.NetworkPreprod, runner.Network)
	assert.Equal(t, "preprod", runner.Conf.Common.Network)

	_, err = runner.Ledger()
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(dir, "db", "ledger_preprod.db"))
	assert.DirExists(t, filepath.Join(dir, "cache", "preprod"))

	// status and burn run while the runner holds the disk cache and ledger
	for _, name := range []string{"status", "nftmint"} {
		oneShot, err := New(Options{ConfigPath: path, AppName: name, Network: "preprod"})
		require.NoError(t, err, name)
		assert.Equal(t, prt.NetworkPreprod, oneShot.Store.Network())
		oneShot.Close()
	}

	cfg, err := conf.NewConfig(path)
	require.NoError(t, err)
	session, err := DashboardSession(cfg)
	require.NoError(t, err)
	assert.Equal(t, prt.NetworkPreprod, session.Store.Network())
}

func TestResolveNetwork(t *testing.T) {
	cfg := conf.Default()
	cfg.Common.Network = "PREVIEW"
	net, err := resolveNetwork(cfg)
	require.NoError(t, err)
	assert.Equal(t, prt.NetworkPreview, net)
	assert.Equal(t, "preview", cfg.Common.Network)

	cfg.Common.Network = "none"
	_, err = resolveNetwork(cfg)
	assert.Error(t, err)

	cfg.Common.Network = "moon"
	_, err = resolveNetwork(cfg)
	assert.Error(t, err)
}
