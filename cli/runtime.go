package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/chatcache"
	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/livechat"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/storage"
	"github.com/anjiri1684/skill_exchange/store"
)

var errNotLoggedIn = errors.New("not logged in: run `skillswap login` first")

// runtime is everything one command invocation needs.
type runtime struct {
	opts    *RootOptions
	cfg     config.ClientConfig
	log     *zap.Logger
	store   *store.Store
	cache   *chatcache.Cache
	out     *OutputFormatter
	closers []func() error
}

// open wires config, storage, the request client and the store, then restores
// the persisted session.
func (o *RootOptions) open(cmd *cobra.Command) (*runtime, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg config.ClientConfig
	if o.Config != nil {
		cfg = *o.Config
	} else {
		cfg = config.LoadClient()
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(&cfg.Log, logger.ClientServiceName)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	rt := &runtime{
		opts: o,
		cfg:  cfg,
		log:  log,
		out:  &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()},
	}
	rt.closers = append(rt.closers, func() error { _ = log.Sync(); return nil })

	backend := o.Storage
	if backend == nil {
		s, closeFn, err := storage.Open(ctx, cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		backend = s
		rt.closers = append(rt.closers, closeFn)
	}

	client := api.New(api.Config{
		BaseURL:         cfg.APIURL,
		Timeout:         cfg.RequestTimeout,
		WithCredentials: cfg.WithCredentials,
		Dial:            o.Dial,
		Logger:          log,
	})
	rt.store = store.New(client, storage.NewSessionStore(backend), store.WithLogger(log))
	rt.cache = chatcache.New(backend, chatcache.WithLogger(log))

	if _, err := rt.store.Restore(ctx); err != nil {
		log.Warn("restoring session failed", zap.Error(err))
	}
	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Debug("close failed", zap.Error(err))
		}
	}
}

// requireSession returns the logged-in user's id.
func (rt *runtime) requireSession() (string, error) {
	sess := rt.store.Session()
	if sess == nil {
		return "", errNotLoggedIn
	}
	return sess.ID, nil
}

func (rt *runtime) channelConfig() (livechat.Config, error) {
	url, err := livechat.SocketURL(rt.cfg.APIURL, rt.cfg.SocketPath)
	if err != nil {
		return livechat.Config{}, err
	}
	cfg := livechat.DefaultConfig(url)
	cfg.Dialer = rt.opts.Dialer
	cfg.Logger = rt.log
	return cfg, nil
}

func (rt *runtime) input(cmd *cobra.Command) io.Reader {
	if rt.opts.In != nil {
		return rt.opts.In
	}
	return cmd.InOrStdin()
}

// withRuntime adapts a runtime-taking function to a cobra RunE.
func withRuntime(opts *RootOptions, fn func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := opts.open(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(cmd, rt, args)
	}
}
