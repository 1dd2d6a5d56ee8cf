package main

import (
	"fmt"
	"os"
	"time"

	"entitlement-api/internal/client"
	"entitlement-api/internal/codec"
	"entitlement-api/internal/config"
	"entitlement-api/internal/database"
	"entitlement-api/internal/entitlement"
	"entitlement-api/internal/provider"
	"entitlement-api/internal/tokenstore"
	"entitlement-api/pkg/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type options struct {
	server    string
	platform  string
	userAgent string
	storePath string
	redisURL  string
	verbose   bool
}

// session is everything a command needs for one invocation.
type session struct {
	provider provider.EntitlementProvider
	service  *entitlement.Service
	store    *tokenstore.Store
	close    func()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "entitlementctl",
		Short:         "Manage the subscription held on this device",
		Long:          `entitlementctl acts as a web or mobile client: it obtains a subscription, keeps the record in a local store and reconciles it with the server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logging.SetOutput(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}, level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", os.Getenv("ENTITLEMENT_SERVER_URL"), "subscription API base URL; empty means offline")
	flags.StringVar(&opts.platform, "platform", "", "web, mobile or offline; detected from --user-agent when empty")
	flags.StringVar(&opts.userAgent, "user-agent", "", "user agent used for platform detection")
	flags.StringVar(&opts.storePath, "store", "entitlement-client.db", "SQLite file holding the local record")
	flags.StringVar(&opts.redisURL, "redis", "", "keep the local record in Redis instead of SQLite")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newCheckoutCmd(opts),
		newActivateCmd(opts),
		newStatusCmd(opts),
		newVerifyCmd(opts),
		newRefreshCmd(opts),
		newCancelCmd(opts),
		newClearCmd(opts),
		newInspectCmd(opts),
	)
	return root
}

func openSession(opts *options) (*session, error) {
	cfg := config.Load()

	var (
		kv      tokenstore.KV
		closeFn func()
	)
	if opts.redisURL != "" {
		rdb, err := database.OpenRedis(opts.redisURL)
		if err != nil {
			return nil, err
		}
		kv = tokenstore.NewRedisKV(rdb)
		closeFn = func() { rdb.Close() }
	} else {
		db, err := database.OpenDB("", opts.storePath, opts.verbose)
		if err != nil {
			return nil, err
		}
		gkv, err := tokenstore.NewGormKV(db)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare local store: %w", err)
		}
		kv = gkv
		closeFn = func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
	}

	store := tokenstore.New(kv, cfg.StoreNamespace)
	signer := codec.NewSigner(cfg.MarkerSecret)

	svcOpts := []entitlement.Option{entitlement.WithWarningWindow(cfg.ExpiryWarningDays)}
	if cfg.AllowUnverifiedCodes {
		logging.Warnf("ALLOW_UNVERIFIED_CODES is set, offline mode accepts any well-formed code")
		svcOpts = append(svcOpts, entitlement.WithCodeResolver(entitlement.StubResolver{}))
	}

	var api provider.API
	if opts.server != "" {
		api = client.New(opts.server)
	}
	registry := provider.NewRegistry(store, signer, api, svcOpts...)
	platform := provider.Detector{UserAgent: opts.userAgent}.DetectPlatform(opts.platform)
	p := registry.For(platform)
	logging.Debugf("Using %s provider (requested %s)", p.Platform(), platform)

	return &session{
		provider: p,
		service:  entitlement.New(store, signer, svcOpts...),
		store:    store,
		close:    closeFn,
	}, nil
}

func withSession(opts *options, run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(opts)
		if err != nil {
			return err
		}
		defer s.close()
		return run(cmd, args, s)
	}
}
