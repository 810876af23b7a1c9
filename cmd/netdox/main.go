package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	pb "github.com/cheggaaa/pb/v3"
	"github.com/gorilla/websocket"

	"github.com/netdox/netdox/changelog"
	"github.com/netdox/netdox/config"
	"github.com/netdox/netdox/dns"
	"github.com/netdox/netdox/plugin"
	"github.com/netdox/netdox/publisher"
	"github.com/netdox/netdox/query"
	"github.com/netdox/netdox/remote"
	"github.com/netdox/netdox/resolver"
	"github.com/netdox/netdox/session"
)

// remoteFactory resolves a configured remote descriptor into a concrete
// adapter. No adapter ships in this module; set this from an operator's
// own package (an init() in a sibling binary, or a build tag) to wire one
// in without touching this file.
var remoteFactory func(config.Remote) (remote.Remote, error)

// appContext carries the dependencies every subcommand's Run needs, bound
// via kong.Bind rather than package-level globals.
type appContext struct {
	sess *session.Session
}

type cli struct {
	Init   initCmd   `cmd:"" help:"Write a new encrypted config with default settings to the resolved path (no prompts)."`
	Config struct {
		Load configLoadCmd `cmd:"" help:"Decrypt and print the config at the resolved path."`
		Dump configDumpCmd `cmd:"" help:"Re-encrypt the loaded config and write it back to the resolved path (stdin is not read)."`
	} `cmd:"" help:"Inspect or write the encrypted config."`
	Update  updateCmd  `cmd:"" help:"Run configured producer plugins."`
	Process processCmd `cmd:"" help:"Resolve raw nodes into processed nodes."`
	Publish publishCmd `cmd:"" help:"Translate pending changelog entries into remote mutations."`
	Serve   serveCmd   `cmd:"" help:"Run update+process+publish on a timer, streaming logs over a websocket."`
	Query   struct {
		Counts queryCountsCmd `cmd:"" help:"Print dns name / raw node / pending change counts."`
	} `cmd:"" help:"Read-only introspection."`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("netdox"),
		kong.Description("Network documentation pipeline CLI."),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &appContext{}
	if kctx.Command() != "init" {
		cfg, err := config.Load()
		if err != nil {
			logger.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		sess, err := session.New(cfg)
		if err != nil {
			logger.Error("failed to open session", "err", err)
			os.Exit(1)
		}
		defer sess.Close()
		app.sess = sess
	}

	if err := kctx.Run(ctx, logger, app); err != nil {
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

type initCmd struct{}

func (c *initCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	cfg := &config.Config{DefaultNetwork: "default"}
	path, err := cfg.Write()
	if err != nil {
		return err
	}
	fmt.Println("wrote new config to", path)
	return nil
}

type configLoadCmd struct{}

func (c *configLoadCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	fmt.Printf("%+v\n", app.sess.Config)
	return nil
}

type configDumpCmd struct{}

func (c *configDumpCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	path, err := app.sess.Config.Write()
	if err != nil {
		return err
	}
	fmt.Println("wrote config to", path)
	return nil
}

type updateCmd struct {
	Stage string `help:"Run only plugins belonging to this stage (write-only, read-write, connectors)." optional:""`
}

func (c *updateCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	cfgs := app.sess.Config.Plugins
	if c.Stage != "" {
		cfgs = filterStage(cfgs, c.Stage)
	}

	bar := pb.StartNew(len(cfgs))
	err := plugin.Run(ctx, cfgs)
	bar.SetCurrent(int64(len(cfgs)))
	bar.Finish()
	return err
}

func filterStage(cfgs []config.PluginConfig, stage string) []config.PluginConfig {
	var out []config.PluginConfig
	for _, p := range cfgs {
		switch stage {
		case "write-only":
			if p.WriteOnly != "" {
				out = append(out, p)
			}
		case "read-write":
			if p.ReadWrite != "" {
				out = append(out, p)
			}
		case "connectors":
			if p.Connectors != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

type processCmd struct{}

func (c *processCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	store := app.sess.Store

	names, err := store.AllDNSNames(ctx)
	if err != nil {
		return err
	}
	graph := dns.NewGraph()
	bar := pb.StartNew(len(names))
	for _, name := range names {
		records, err := store.DNSRecords(ctx, name)
		if err != nil {
			return err
		}
		for _, r := range records {
			graph.AddRecord(r)
		}
		translations, err := store.DNSTranslations(ctx, name)
		if err != nil {
			return err
		}
		for _, t := range translations {
			graph.AddNetTranslation(name, t)
		}
		bar.Increment()
	}
	bar.Finish()

	rawNodes, err := store.AllRawNodes(ctx)
	if err != nil {
		return err
	}

	processed, err := resolver.Resolve(graph, rawNodes)
	if err != nil {
		return err
	}

	for _, pn := range processed {
		if err := store.PutProcessedNode(ctx, pn); err != nil {
			return err
		}
	}
	log.Info("processed nodes", "count", len(processed))
	return nil
}

type publishCmd struct{}

func (c *publishCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	return runPublish(ctx, log, app)
}

func runPublish(ctx context.Context, log *slog.Logger, app *appContext) error {
	store := app.sess.Store

	checkpoint, err := store.Checkpoint(ctx)
	if err != nil {
		return err
	}
	reader := changelog.NewReader(store, 100000)
	changes, err := reader.Read(ctx, checkpoint)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		log.Info("no pending changelog entries")
		return nil
	}

	if remoteFactory == nil {
		return fmt.Errorf("no remote adapter registered for kind %q", app.sess.Config.Remote.Kind)
	}
	rem, err := remoteFactory(app.sess.Config.Remote)
	if err != nil {
		return err
	}

	if err := publisher.Publish(ctx, log, store, rem, changes); err != nil {
		return err
	}
	log.Info("published changes", "count", len(changes))
	return nil
}

type serveCmd struct {
	Interval string `default:"5m" help:"How often to run update+process+publish."`
	Addr     string `default:":8080" help:"Address to serve the log-streaming websocket on."`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (c *serveCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	interval, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid --interval %q: %w", c.Interval, err)
	}

	// Tee this command's log lines into the session's pubsub logger so the
	// /ws clients below receive them.
	log = slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stderr, app.sess.PubSub), nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "err", err)
			return
		}
		defer conn.Close()

		for msg := range app.sess.PubSub.SubscribeFanout(64) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(*msg)); err != nil {
				return
			}
		}
	})

	srv := &http.Server{Addr: c.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCycle(ctx, log, app)
			}
		}
	}()

	log.Info("serving log stream", "addr", c.Addr, "interval", interval)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runCycle drives one update+process+publish pass, logging but not
// returning individual stage failures so the ticker keeps running.
func runCycle(ctx context.Context, log *slog.Logger, app *appContext) {
	if err := plugin.Run(ctx, app.sess.Config.Plugins); err != nil {
		log.Error("update stage failed", "err", err)
	}
	if err := (&processCmd{}).Run(ctx, log, app); err != nil {
		log.Error("process stage failed", "err", err)
		return
	}
	if err := runPublish(ctx, log, app); err != nil {
		log.Error("publish stage failed", "err", err)
	}
}

type queryCountsCmd struct{}

func (c *queryCountsCmd) Run(ctx context.Context, log *slog.Logger, app *appContext) error {
	counts, err := query.Collect(ctx, app.sess.Store)
	if err != nil {
		return err
	}
	fmt.Printf("dns_names=%d raw_nodes=%d pending_changes=%d\n",
		counts.DNSNames, counts.RawNodes, counts.PendingChanges)
	return nil
}
