// tokengate: núcleo de emisión de tokens de un authorization server OAuth2
// embebido en un gateway reverse-proxy.
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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/tokengate/internal/backend"
	"github.com/dropDatabas3/tokengate/internal/clients"
	"github.com/dropDatabas3/tokengate/internal/config"
	"github.com/dropDatabas3/tokengate/internal/flow"
	httpx "github.com/dropDatabas3/tokengate/internal/http"
	"github.com/dropDatabas3/tokengate/internal/jwtenc"
	"github.com/dropDatabas3/tokengate/internal/metrics"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
	"github.com/dropDatabas3/tokengate/internal/security/clientsecret"
)

var (
	flagConfig  string
	flagEnvFile string
)

func main() {
	root := &cobra.Command{
		Use:           "tokengate",
		Short:         "OAuth2 token issuance core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "ruta a config.yaml")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "ruta a .env")

	root.AddCommand(serveCmd(), keysCmd(), hashSecretCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if flagEnvFile != "" {
		_ = godotenv.Load(flagEnvFile)
	}
	path := flagConfig
	if path == "" && fileExists("configs/config.yaml") {
		path = "configs/config.yaml"
	}
	return config.Load(path)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servicio HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: cfg.App.ServiceID,
			})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("main")

			if err := metrics.Register(nil); err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			store, err := backend.New(backend.Config{
				Driver:   cfg.Cache.Driver,
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
				Prefix:   cfg.Cache.Redis.Prefix,
			})
			if err != nil {
				return fmt.Errorf("backend: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			dir, err := clients.New(ctx, clients.Config{
				Driver: cfg.Clients.Driver,
				Path:   cfg.Clients.File,
				DSN:    cfg.Clients.Postgres.DSN,
			})
			if err != nil {
				return fmt.Errorf("clients: %w", err)
			}
			defer func() { _ = dir.Close() }()

			var encoder *jwtenc.Encoder
			if cfg.JWT.PrivateKeyPath != "" {
				pem, err := os.ReadFile(cfg.JWT.PrivateKeyPath)
				if err != nil {
					return fmt.Errorf("jwt key: %w", err)
				}
				encoder, err = jwtenc.New(cfg.JWT.Issuer, cfg.JWTDuration(), pem)
				if err != nil {
					return fmt.Errorf("jwt encoder: %w", err)
				}
			} else {
				log.Warn("jwt private key not configured; /internal/jwt disabled")
			}

			controller := flow.NewController(flow.Deps{
				Clients:    dir,
				Store:      store,
				Encoder:    encoder,
				ServiceID:  cfg.App.ServiceID,
				CodeTTL:    cfg.CodeTTL(),
				AccessTTL:  cfg.AccessTTL(),
				RefreshTTL: cfg.RefreshTTL(),
			})

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           httpx.NewRouter(httpx.Deps{Controller: controller, Store: store}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				log.Info("listening", logger.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shCtx)
			})
			return g.Wait()
		},
	}
}

func keysCmd() *cobra.Command {
	var bits int
	var outPriv, outPub string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Genera el par RSA para el encoder JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := jwtenc.GenerateRSAPEM(bits)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPriv, priv, 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(outPub, pub, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s and %s\n", outPriv, outPub)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 2048, "tamaño de la clave RSA")
	cmd.Flags().StringVar(&outPriv, "out", "configs/jwt_rsa.pem", "archivo de clave privada")
	cmd.Flags().StringVar(&outPub, "pub", "configs/jwt_rsa.pub.pem", "archivo de clave pública")
	return cmd
}

func hashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Hashea un client_secret (argon2id PHC) para el directorio de clientes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phc, err := clientsecret.Hash(clientsecret.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Println(phc)
			return nil
		},
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
