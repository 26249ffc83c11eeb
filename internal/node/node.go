// Package node assembles a runnable forge daemon: storage, ledger,
// forge program, and RPC server, wired from a config.Config. It can be
// embedded in any binary.
package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-forge/config"
	"github.com/Klingon-tech/klingnet-forge/internal/forge"
	"github.com/Klingon-tech/klingnet-forge/internal/ledger"
	klog "github.com/Klingon-tech/klingnet-forge/internal/log"
	"github.com/Klingon-tech/klingnet-forge/internal/rpc"
	"github.com/Klingon-tech/klingnet-forge/internal/storage"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// forgeStorePrefix namespaces the forge program's records inside the
// shared database.
var forgeStorePrefix = []byte("forge/")

// Node is a fully-initialized forge daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db      storage.DB
	ledger  *ledger.Ledger
	program *forge.Program

	rpcServer *rpc.Server

	stopOnce sync.Once
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, ledger, program, RPC) but does NOT begin serving.
// Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Keystore.Dir = expandHome(cfg.Keystore.Dir)

	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "forged.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("datadir", cfg.DataDir).
		Msg("Starting Klingnet Forge Daemon")

	// ── 3. Open storage ─────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.LedgerDir(), err)
	}
	logger.Info().Str("path", cfg.LedgerDir()).Msg("Database opened")

	// ── 4. Ledger and forge program ─────────────────────────────────
	l := ledger.New(db)
	program := forge.New(storage.NewPrefixDB(db, forgeStorePrefix), l)

	n := &Node{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		ledger:  l,
		program: program,
	}

	// ── 5. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, program, l, cfg.RPC)
	}

	return n, nil
}

// Start begins serving RPC requests.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return fmt.Errorf("start rpc: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}
	return nil
}

// Stop shuts the node down: RPC first, then storage. Safe to call
// more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		if n.rpcServer != nil {
			if err := n.rpcServer.Stop(); err != nil {
				n.logger.Error().Err(err).Msg("RPC shutdown error")
			}
		}
		if err := n.db.Close(); err != nil {
			n.logger.Error().Err(err).Msg("Database close error")
		}
		n.logger.Info().Msg("Node stopped")
	})
}

// Program returns the forge program.
func (n *Node) Program() *forge.Program {
	return n.program
}

// Ledger returns the asset ledger.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// RPCAddr returns the RPC listen address, or empty when RPC is disabled.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
