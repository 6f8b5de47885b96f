package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/thecardroom/tcr/api/rest"
	"github.com/thecardroom/tcr/chain"
	"github.com/thecardroom/tcr/common/crypto"
	"github.com/thecardroom/tcr/common/logger"
	conf "github.com/thecardroom/tcr/config"
	"github.com/thecardroom/tcr/dbsync"
	"github.com/thecardroom/tcr/indexer"
	"github.com/thecardroom/tcr/internal/dashboard"
	"github.com/thecardroom/tcr/mint"
	prt "github.com/thecardroom/tcr/protocol"
	"github.com/thecardroom/tcr/storage"
)

var ErrNotConfigured = errors.New("blockfrost project id or project data file not set, run `tcr setup`")

type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	Conf    *conf.Config
	Network prt.Network
	LogPath string

	Store   *storage.ProjectData
	Indexer *indexer.Client
	Cache   *storage.Cache
	Builder *chain.Builder
	DBSync  *dbsync.DB // nil without a DSN
	Cli     *chain.Cli // nil without a cardano-cli path

	ledger     *storage.Ledger
	restServer *rest.Server
}

// scryptParams derive the project data key; tests swap in a light set.
var scryptParams = crypto.StandardScrypt

// Options select how New brings the process up.
type Options struct {
	ConfigPath string
	AppName    string
	Console    bool   // log to stdout and prompt for a missing project id
	Network    string // overrides the settings file when set

	// DiskCache keeps indexer responses in the on-disk badger cache. Badger
	// locks its directory, so only the long running mint runner asks for
	// it; one-shot commands cache in memory and run beside the runner.
	DiskCache bool
}

// New loads the settings, starts logging and opens the project data and
// chain services.
func New(opts Options) (*App, error) {
	cfg, err := conf.NewConfig(opts.ConfigPath)
	if err != nil {
		fmt.Println("Failed to initialized application: ", err)
		return nil, err
	}
	if opts.Network != "" {
		cfg.Common.Network = opts.Network
	}
	net, err := resolveNetwork(cfg)
	if err != nil {
		return nil, err
	}
	appName, console := opts.AppName, opts.Console
	if cfg.Blockfrost.ProjectID == "" && console {
		id, err := conf.PromptSecret("Blockfrost project id: ")
		if err != nil {
			return nil, err
		}
		cfg.Blockfrost.ProjectID = id
	}
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	lPath, err := logger.InitLogger(cfg, appName, console)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return nil, err
	}

	store, err := OpenStore(cfg, net)
	if err != nil {
		logger.Error("Failed to load project data: ", err)
		return nil, err
	}

	var cache *storage.Cache
	ttl := time.Duration(cfg.Cache.TTLMin) * time.Minute
	if opts.DiskCache {
		cache, err = storage.OpenCache(filepath.Join(cfg.Cache.Path, string(net)), ttl)
	} else {
		cache, err = storage.OpenMemoryCache(ttl)
	}
	if err != nil {
		logger.Error("Failed to open cache: ", err)
		return nil, err
	}

	idx, err := NewIndexer(cfg, net, cache)
	if err != nil {
		cache.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:     ctx,
		cancel:  cancel,
		Conf:    cfg,
		Network: net,
		LogPath: lPath,
		Store:   store,
		Indexer: idx,
		Cache:   cache,
		Builder: chain.NewBuilder(idx, cfg.Mint.MinUtxoLovelace),
	}

	if cfg.DBSync.DSN != "" {
		dctx, dcancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := dbsync.Open(dctx, cfg.DBSync.DSN)
		dcancel()
		if err != nil {
			logger.Warn("db-sync unavailable, using the indexer: ", err)
		} else {
			app.DBSync = db
		}
	}

	if cfg.Node.CliPath != "" {
		cli, err := chain.NewCli(cfg.Node.CliPath, net)
		if err != nil {
			logger.Warn("cardano-cli unavailable: ", err)
		} else {
			app.Cli = cli
		}
	}

	logger.Info("app ", appName, " ready on ", net)
	return app, nil
}

// resolveNetwork parses the configured network and writes the canonical
// name back, so log and ledger directories do not depend on its spelling.
func resolveNetwork(cfg *conf.Config) (prt.Network, error) {
	net, err := prt.ParseNetwork(cfg.Common.Network)
	if err != nil {
		return "", err
	}
	if net == prt.NetworkNone {
		return "", fmt.Errorf("network is not set")
	}
	cfg.Common.Network = string(net)
	return net, nil
}

// OpenStore opens the project data and binds a fresh file to net.
func OpenStore(cfg *conf.Config, net prt.Network) (*storage.ProjectData, error) {
	store, err := storage.OpenProjectDataWithParams(cfg.Common.DataFile, cfg.Blockfrost.ProjectID, scryptParams)
	if err != nil {
		return nil, err
	}
	switch have := store.Network(); {
	case have == prt.NetworkNone:
		store.SetNetwork(net)
		if err := store.Save(); err != nil {
			return nil, err
		}
	case have != net:
		return nil, fmt.Errorf("project data %s is for %s, not %s", cfg.Common.DataFile, have, net)
	}
	return store, nil
}

func NewIndexer(cfg *conf.Config, net prt.Network, cache *storage.Cache) (*indexer.Client, error) {
	opts := []indexer.Option{
		indexer.WithBaseURL(cfg.Blockfrost.BaseURL),
		indexer.WithTimeout(time.Duration(cfg.Blockfrost.TimeoutSec) * time.Second),
		indexer.WithRateLimit(cfg.Blockfrost.RequestsPerSecond, cfg.Blockfrost.Burst),
	}
	if cache != nil {
		opts = append(opts, indexer.WithCache(cache))
	}
	return indexer.NewClient(net, cfg.Blockfrost.ProjectID, opts...)
}

// Context is cancelled by SigHandler or Terminate.
func (p *App) Context() context.Context {
	return p.ctx
}

// Ledger opens the mint ledger on first use. Only the mint runner holds
// it, leveldb allows one process per directory.
func (p *App) Ledger() (*storage.Ledger, error) {
	if p.ledger != nil {
		return p.ledger, nil
	}
	db, err := storage.InitDB(p.Conf)
	if err != nil {
		return nil, err
	}
	l := storage.NewLedger(db)
	if err := l.CheckNetwork(p.Network); err != nil {
		l.Close()
		return nil, err
	}
	p.ledger = l
	return l, nil
}

// Report logs the chain tip and the db-sync state; it returns the tip slot.
func (p *App) Report(ctx context.Context) uint64 {
	var tipSlot uint64
	if p.Cli != nil {
		tip, err := p.Cli.QueryTip(ctx)
		if err != nil {
			logger.Warn("cardano-cli tip: ", err)
		} else {
			tipSlot = tip.Slot
			logger.Info("Cardano Node Tip Slot: ", tip.Slot, " (", tip.Era, ", sync ", tip.SyncProgress, "%)")
		}
		if err := p.Cli.QueryProtocolParameters(ctx, p.Conf.Node.ProtocolParamsFile); err != nil {
			logger.Warn("protocol parameters: ", err)
		}
	}
	st := p.Indexer.Status(ctx)
	if tipSlot == 0 {
		tipSlot = st.Slot
	}
	logger.Info("Indexer Tip Slot: ", st.Slot, ", healthy ", st.Healthy)

	if p.DBSync == nil {
		return tipSlot
	}
	if meta, err := p.DBSync.ChainMetadata(ctx); err == nil {
		logger.Info("Database Chain Metadata: ", meta.StartTime.Format(time.RFC3339), " / ", meta.NetworkName)
	} else {
		logger.Warn(err)
	}
	if size, err := p.DBSync.DatabaseSize(ctx); err == nil {
		logger.Info("Database Size: ", size)
	}
	if slot, err := p.DBSync.LatestSlot(ctx); err == nil {
		logger.Info(" Database Latest Slot: ", slot)
	}
	if pct, err := p.DBSync.SyncProgress(ctx); err == nil {
		logger.Info("Sync Progress: ", fmt.Sprintf("%.2f", pct))
	}
	return tipSlot
}

// Slots resolves tx slots through db-sync when connected.
func (p *App) Slots() mint.SlotResolver {
	if p.DBSync != nil {
		return p.DBSync
	}
	return p.Indexer
}

func (p *App) Paths() mint.Paths {
	return mint.Paths{Root: p.Conf.Common.WorkDir, Network: p.Network}
}

// Burner wires the burn flow with sink receiving the burned events.
func (p *App) Burner(sink mint.EventSink) *mint.Burner {
	b := mint.NewBurner(p.Indexer, p.Builder, p.Slots(), sink)
	b.SetWait(time.Duration(p.Conf.Mint.ConfirmSec) * time.Second)
	return b
}

// NewRest prepares the REST server over the ledger. The returned hub is
// the event sink of the runner passed to StartRest.
func (p *App) NewRest(payments rest.PaymentReader) mint.EventSink {
	p.restServer = rest.NewServer(p.Conf.Server.RestPort, p.Network, nil, payments)
	return p.restServer.GetWSHub()
}

func (p *App) StartRest(runner rest.Runner) error {
	if p.restServer == nil {
		return fmt.Errorf("rest server not prepared")
	}
	if runner != nil {
		p.restServer.SetRunner(runner)
	}
	if err := p.restServer.Start(); err != nil {
		return fmt.Errorf("failed to start REST API server: %w", err)
	}
	logger.Info("All services started")
	return nil
}

// Cleanup 애플리케이션 정리
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping REST API server:", err)
		}
	}
	if p.ledger != nil {
		if err := p.ledger.Close(); err != nil {
			logger.Error("Error closing ledger:", err)
		}
	}
	if p.DBSync != nil {
		p.DBSync.Close()
	}
	if p.Cache != nil {
		if err := p.Cache.Close(); err != nil {
			logger.Error("Error closing cache:", err)
		}
	}
	logger.Info("All resources cleaned up")
	logger.Sync()
}

// Terminate cancels the app context and releases everything once.
func (p *App) Terminate() {
	p.once.Do(func() {
		p.cancel()
		p.Cleanup()
	})
}

// Close is Terminate for deferred use.
func (p *App) Close() {
	p.Terminate()
}

// SigHandler cancels the app context on SIGINT or SIGTERM. The caller
// returns from its work loop and calls Close.
func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Arrived terminate signal: ", sig)
			p.cancel()
		case <-p.ctx.Done():
		}
		signal.Stop(sigCh)
	}()
}

// DashboardSession opens what the terminal dashboard needs for cfg. The
// indexer cache stays in memory so a running mint runner keeps the disk
// cache.
func DashboardSession(cfg *conf.Config) (*dashboard.Session, error) {
	net, err := resolveNetwork(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}
	store, err := OpenStore(cfg, net)
	if err != nil {
		return nil, err
	}
	cache, err := storage.OpenMemoryCache(time.Duration(cfg.Cache.TTLMin) * time.Minute)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndexer(cfg, net, cache)
	if err != nil {
		cache.Close()
		return nil, err
	}
	builder := chain.NewBuilder(idx, cfg.Mint.MinUtxoLovelace)
	burner := mint.NewBurner(idx, builder, idx, nil)
	burner.SetWait(time.Duration(cfg.Mint.ConfirmSec) * time.Second)
	return &dashboard.Session{
		Store:   store,
		Chain:   idx,
		Royalty: builder,
		Burner:  burner,
	}, nil
}
