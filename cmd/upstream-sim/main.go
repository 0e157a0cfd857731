// Command upstream-sim serves a fake recommendation and training service.
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

	"github.com/spf13/cobra"

	"github.com/okian/classpulse/internal/upstreamsim"
	"github.com/okian/classpulse/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	fixtureFileMode   = 0o600
)

var rootCmd = &cobra.Command{
	Use:   "upstream-sim",
	Short: "Fake recommendation and training service",
	Long:  "upstream-sim serves a fixture class over the collaborator API so the engine can run without the real service.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(); err != nil {
			return err
		}
		level, _ := cmd.Flags().GetString("log-level")
		return logger.SetLevelString(level)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a fixture over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := fixtureFromFlags(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		delay, _ := cmd.Flags().GetDuration("delay")

		sim := upstreamsim.NewServer(f)
		sim.SetDelay(delay)
		return serve(cmd.Context(), addr, sim, len(f.Students))
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a generated fixture as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		students, _ := cmd.Flags().GetInt("students")
		seed, _ := cmd.Flags().GetInt64("seed")
		out, _ := cmd.Flags().GetString("out")

		b, err := upstreamsim.Generate(students, seed).Marshal()
		if err != nil {
			return err
		}
		if out == "" {
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		return os.WriteFile(out, b, fixtureFileMode)
	},
}

func init() { //nolint:gochecknoinits // cobra command wiring
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	serveCmd.Flags().String("addr", ":9090", "Listen address")
	serveCmd.Flags().String("fixture", "", "YAML fixture file; generated when empty")
	serveCmd.Flags().Duration("delay", 0, "Delay added to every response")
	for _, c := range []*cobra.Command{serveCmd, generateCmd} {
		c.Flags().Int("students", 20, "Number of generated students")
		c.Flags().Int64("seed", 1, "Seed of the generated class")
	}
	generateCmd.Flags().String("out", "", "Output file; stdout when empty")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func fixtureFromFlags(cmd *cobra.Command) (*upstreamsim.Fixture, error) {
	if path, _ := cmd.Flags().GetString("fixture"); path != "" {
		return upstreamsim.LoadFixture(path)
	}
	students, _ := cmd.Flags().GetInt("students")
	seed, _ := cmd.Flags().GetInt64("seed")
	return upstreamsim.Generate(students, seed), nil
}

func serve(ctx context.Context, addr string, h http.Handler, students int) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: readHeaderTimeout}
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info(ctx, "upstream simulator listening",
			logger.String("addr", addr),
			logger.Int("students", students),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
