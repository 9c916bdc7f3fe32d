package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/nafsync/config"
	"github.com/automoto/nafsync/netentity"
	"github.com/automoto/nafsync/netsync"
	"github.com/automoto/nafsync/network"
	"github.com/automoto/nafsync/scenes"
	"github.com/automoto/nafsync/shared/gamemath"
	"github.com/automoto/nafsync/shared/netconfig"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const settingsApp = "nafsync"

type spawnOptions struct {
	template string
	color    string
	radius   float64
	speed    float64
}

func main() {
	store, err := config.OpenSettingsStore(settingsApp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: settings not persisted: %v\n", err)
	}
	var saved *config.SavedSettings
	if store != nil {
		if saved, err = store.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: ignoring saved settings: %v\n", err)
		}
	}

	cfg, err := config.LoadClientConfig(saved)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	spawn := spawnOptions{template: scenes.TemplateAvatar, color: "#3399ff", radius: 2, speed: 1}

	cmd := &cobra.Command{
		Use:   "nafsync",
		Short: "Headless networked entity sync client",
		Long: `nafsync joins a relay room, mirrors every entity the other clients
broadcast, and broadcasts one locally owned entity of its own.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if store != nil && cfg.PersistSettings {
				if err := store.Save(cfg.Saved()); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}
			return run(cmd.Context(), cfg, spawn)
		},
		SilenceUsage: true,
	}
	cfg.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&spawn.template, "spawn", spawn.template, "template of the local entity (empty spawns nothing)")
	cmd.Flags().StringVar(&spawn.color, "color", spawn.color, "tint of the local entity")
	cmd.Flags().Float64Var(&spawn.radius, "radius", spawn.radius, "orbit radius of the local entity")
	cmd.Flags().Float64Var(&spawn.speed, "speed", spawn.speed, "orbit speed of the local entity, radians per second")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, spawn spawnOptions) error {
	log, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	client := network.NewClient(network.ClientConfig{
		URL:     cfg.ServerURL,
		Room:    cfg.Room,
		AppName: cfg.AppName,
	}, log)

	session := netsync.NewSession(cfg.Room, cfg.UpdatesPerSecond, netconfig.SyncMode(cfg.SyncMode), log)
	scene, err := scenes.NewNetworkedScene(session, client, scenes.SceneOptions{
		RegistryMetrics: netentity.NewMetrics(reg),
		SyncMetrics:     netsync.NewMetrics(reg),
	})
	if err != nil {
		return err
	}
	if err := spawnLocal(scene, spawn); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return client.Run(gctx) })
	g.Go(func() error { return scenes.NewLoop(scene, cfg.TickRate, log).Run(gctx) })
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr, reg, log) })
	}
	return g.Wait()
}

func spawnLocal(scene *scenes.NetworkedScene, spawn spawnOptions) error {
	if spawn.template == "" {
		return nil
	}
	tint, err := colorful.Hex(spawn.color)
	if err != nil {
		return eris.Wrapf(err, "invalid --color %q", spawn.color)
	}

	start := gamemath.Vec3{X: spawn.radius}
	rec, err := scene.SpawnLocal(spawn.template, start, gamemath.QuatIdentity)
	if err != nil {
		return err
	}
	if obj, ok := rec.Object().(*scenes.EntityObject); ok {
		obj.SetTint(tint)
	}
	if spawn.speed != 0 {
		scene.Orbit(rec, spawn.radius, spawn.speed)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
