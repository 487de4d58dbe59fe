package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/pi-work/internal/config"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/cuongbtq/pi-work/shared/rabbitmq"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

var (
	apiURL       string
	probeTimeout time.Duration
)

var errUnhealthy = errors.New("one or more components are unhealthy")

// probe checks a single dependency and reports an error if it is unreachable
type probe struct {
	name  string
	check func(ctx context.Context) error
}

type probeResult struct {
	name    string
	err     error
	elapsed time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Checks that PostgreSQL, RabbitMQ and the API service are reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		appLogger := newLogger()
		defer appLogger.Close()

		target := apiURL
		if target == "" {
			target = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}

		probes := []probe{
			{name: "postgresql", check: databaseProbe(cfg, appLogger)},
			{name: "rabbitmq", check: rabbitProbe(cfg, appLogger)},
			{name: "api-service", check: httpProbe(target + "/health")},
		}

		results := runProbes(cmd.Context(), probes, probeTimeout)
		if !printResults(cmd.OutOrStdout(), results) {
			return errUnhealthy
		}
		return nil
	},
}

// runProbes checks every probe concurrently. Results keep the order of probes.
func runProbes(ctx context.Context, probes []probe, timeout time.Duration) []probeResult {
	results := make([]probeResult, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.check(pctx)
			results[i] = probeResult{name: p.name, err: err, elapsed: time.Since(start)}
			// a failed probe must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// printResults writes one line per probe and reports whether all of them passed
func printResults(w io.Writer, results []probeResult) bool {
	titleColor.Fprintln(w, "Pi Work status")

	healthy := true
	for _, r := range results {
		if r.err != nil {
			healthy = false
			errorColor.Fprintf(w, "  ✗ %-12s %v\n", r.name, r.err)
			continue
		}
		successColor.Fprintf(w, "  ✓ %-12s ", r.name)
		dimColor.Fprintf(w, "%s\n", r.elapsed.Round(time.Millisecond))
	}
	return healthy
}

func databaseProbe(cfg *config.Config, appLogger *logger.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		db, err := openDatabase(cfg, appLogger)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.HealthCheck(ctx)
	}
}

func rabbitProbe(cfg *config.Config, appLogger *logger.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := cfg.ValidateRabbitMQConfig(); err != nil {
			return err
		}

		broker := cfg.RabbitMQ.Broker()
		broker.RetryAttempts = 1

		done := make(chan error, 1)
		go func() {
			client, err := rabbitmq.NewClient(broker, appLogger.Logger)
			if err != nil {
				done <- err
				return
			}
			defer client.Close()
			done <- client.HealthCheck(ctx)
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func httpProbe(url string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().StringVar(&apiURL, "api-url", "", "Base URL of the API service (defaults to localhost on the configured port)")
	statusCmd.Flags().DurationVar(&probeTimeout, "timeout", 5*time.Second, "Timeout for each check")
	rootCmd.AddCommand(statusCmd)
}
