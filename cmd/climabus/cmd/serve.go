package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/feed"
	"github.com/climabus/climabus/pkg/logger"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Publish climate snapshots over a websocket",
	Long:  `Run the engine and publish climate snapshots and status on /ws. The latest of each is also served as JSON on /api/climate and /api/status, and prometheus metrics on /metrics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		origins, _ := cmd.Flags().GetStringSlice("cors-origin")
		mdns, _ := cmd.Flags().GetBool("mdns")
		redisAddr, _ := cmd.Flags().GetString("redis")
		redisPrefix, _ := cmd.Flags().GetString("redis-prefix")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		c, err := initCAN(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeCAN(c)

		hub := feed.NewHub(logger.Named(log, "feed"))
		metrics := feed.NewMetrics(hub)
		router := hub.Router(origins)
		router.Method(http.MethodGet, "/metrics", metrics.Handler())
		srv := &http.Server{Addr: listen, Handler: router, ReadHeaderTimeout: 10 * time.Second}

		if mdns {
			port, err := listenPort(listen)
			if err != nil {
				return err
			}
			adapterName, _ := cmd.Flags().GetString(flagAdapter)
			zc, err := feed.Advertise(port, "adapter="+adapterName)
			if err != nil {
				return err
			}
			defer zc.Shutdown()
			log.Info().Int("port", port).Str("service", feed.ServiceType).Msg("advertising feed over mdns")
		}

		var mirror *feed.Mirror
		if redisAddr != "" {
			mirror = feed.NewMirror(feed.RedisOptions{Addr: redisAddr, Prefix: redisPrefix}, logger.Named(log, "redis"))
			defer mirror.Close()
			if err := mirror.Ping(ctx); err != nil {
				return err
			}
			hub.Tap(mirror.Offer)
			log.Info().Str("redis", redisAddr).Str("key", mirror.Key(feed.TypeClimate)).Msg("mirroring feed to redis")
		}

		eng := newEngine(c, nil, monitor.WithHooks(monitor.Hooks{
			OnDisplay: func(s climate.Snapshot) {
				hub.PublishClimate(s)
				metrics.ObserveClimate(s)
			},
			OnStatus: func(st monitor.Status) {
				hub.PublishStatus(st)
				metrics.ObserveStatus(st)
			},
		}))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			log.Info().Str("listen", listen).Msg("websocket feed on /ws")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
		if mirror != nil {
			g.Go(func() error {
				return mirror.Run(gctx)
			})
		}
		g.Go(func() error {
			defer cancel()
			return eng.Run(gctx)
		})
		return g.Wait()
	},
}

// listenPort extracts the numeric port of a listen address like ":8080".
func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q: need a numeric port", addr)
	}
	return port, nil
}

func init() {
	serveCmd.Flags().String("listen", ":8080", "http listen address")
	serveCmd.Flags().StringSlice("cors-origin", nil, "allowed browser origins (default any)")
	serveCmd.Flags().Bool("mdns", false, "advertise the feed over mDNS")
	serveCmd.Flags().String("redis", "", "also mirror feed messages to this redis address")
	serveCmd.Flags().String("redis-prefix", "climabus", "redis key and channel prefix")
	rootCmd.AddCommand(serveCmd)
}
