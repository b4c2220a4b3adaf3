package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"PathLab/config"
	"PathLab/counter"
	"PathLab/database"
	"PathLab/logger"
	"PathLab/routes"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "pathlab",
		Short:        "Pathology lab billing and registration API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(countersCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	cfg    *config.AppConfig
	log    *zap.Logger
	db     *gorm.DB
	client *redis.Client
}

func (r *runtime) close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if r.client != nil {
		_ = r.client.Close()
	}
	_ = r.log.Sync()
}

func bootstrap(ctx context.Context, withRedis bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "pathlab")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDevelopment(), log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, db: db}
	if withRedis {
		rt.client, err = database.NewRedisClient(ctx, cfg.RedisAddress, cfg.Redis, log)
		if err != nil {
			rt.close()
			return nil, err
		}
	}
	return rt, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	rt, err := bootstrap(context.Background(), true)
	if err != nil {
		return err
	}
	defer rt.close()

	app, err := routes.NewContainer(rt.cfg, rt.db, rt.client, rt.log)
	if err != nil {
		return err
	}
	handler := routes.SetupRoutes(rt.cfg, app, rt.db, rt.client, rt.log)

	srv := &http.Server{
		Addr:           ":" + rt.cfg.Port,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	serveErr := make(chan error, 1)

	go func() {
		defer wg.Done()
		rt.log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	rt.log.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	wg.Wait()
	rt.log.Info("server exited gracefully")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed system roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.close()
			return database.Migrate(ctx, rt.db, rt.log)
		},
	}
}

func countersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Inspect and repair ID counters",
	}

	var lab, kind string
	var year int

	addFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&lab, "lab", "", "lab ID")
		c.Flags().StringVar(&kind, "sequence", counter.KindReceipt, "patient, appointment or receipt")
		c.Flags().IntVar(&year, "year", time.Now().Year(), "year for patient and appointment IDs")
		_ = c.MarkFlagRequired("lab")
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current value of a counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := counter.SequenceFor(kind, lab, year)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()

			app, err := routes.NewContainer(rt.cfg, rt.db, rt.client, rt.log)
			if err != nil {
				return err
			}
			n, err := app.Counters.Current(ctx, seq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d (next %s)\n", seq.Name, n, seq.Format(n+1))
			return nil
		},
	}
	addFlags(show)

	resync := &cobra.Command{
		Use:   "resync",
		Short: "Raise a counter above the highest ID already issued",
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := counter.SequenceFor(kind, lab, year)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()

			app, err := routes.NewContainer(rt.cfg, rt.db, rt.client, rt.log)
			if err != nil {
				return err
			}
			maxIssued, err := highestIssued(ctx, app, kind, lab, seq)
			if err != nil {
				return err
			}
			before, after, err := app.Counters.Resync(ctx, seq, maxIssued)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d (highest issued %d)\n", seq.Name, before, after, maxIssued)
			return nil
		},
	}
	addFlags(resync)

	cmd.AddCommand(show, resync)
	return cmd
}

// highestIssued finds the largest value of seq already stored.
func highestIssued(ctx context.Context, app *routes.Container, kind, lab string, seq counter.Sequence) (int64, error) {
	var id string
	var err error
	switch kind {
	case counter.KindReceipt:
		return app.Bookings.MaxReceiptNumber(ctx, lab)
	case counter.KindPatient:
		id, err = app.Patients.MaxPatientID(ctx, lab, seq.Prefix)
	case counter.KindAppointment:
		id, err = app.Appointments.MaxAppointmentID(ctx, lab, seq.Prefix)
	default:
		return 0, fmt.Errorf("unknown sequence %q", kind)
	}
	if err != nil || id == "" {
		return 0, err
	}
	n, ok := seq.Parse(id)
	if !ok {
		return 0, fmt.Errorf("stored ID %q does not match %s", id, seq.Prefix)
	}
	return n, nil
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage super admin accounts",
	}

	var username, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a super admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			ctx := cmd.Context()
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.close()

			app, err := routes.NewContainer(rt.cfg, rt.db, rt.client, rt.log)
			if err != nil {
				return err
			}
			user, err := app.Users.CreateSuperAdmin(ctx, username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created super admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "username")
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&password, "password", "", "password (defaults to $ADMIN_PASSWORD)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}
