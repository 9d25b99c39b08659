package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echodao-backend/internal/config"
	"echodao-backend/internal/ports/http"
	"echodao-backend/internal/signkeys"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalln("loading the .env file failed: ", err)
	}

	logger, err := getLogger()
	if err != nil {
		log.Fatalln("setting up the logger failed: ", err)
		return
	}
	defer logger.Sync()

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "echodao",
		Short:         "EchoDAO governance gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), logger)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP gateway",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context(), logger)
			},
		},
		newExecuteWhenReadyCmd(logger),
		newKeygenCmd(),
	)

	return root
}

func newExecuteWhenReadyCmd(logger *zap.Logger) *cobra.Command {
	var (
		id       uint64
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "execute-when-ready",
		Short: "Wait for the voting window of a proposal to close, then execute it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := wire(ctx, logger)
			if err != nil {
				return err
			}
			defer w.close()

			result, err := w.app.ExecuteWhenReady(ctx, id, interval)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "executed proposal", id, "in transaction", result.TxHash)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "proposal id")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "block height polling interval")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key for PRIVATE_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := signkeys.GenerateKeys()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "address:    ", key.Address.Hex())
			fmt.Fprintln(cmd.OutOrStdout(), "private key:", key.Hex())
			return nil
		},
	}
}

func serve(ctx context.Context, logger *zap.Logger) error {
	logger.Info("application started")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := wire(ctx, logger)
	if err != nil {
		return err
	}
	defer w.close()

	listener, err := w.eventListener(logger, config.GetEventPollInterval())
	if err != nil {
		return err
	}
	if listener != nil {
		if err := listener.Start(ctx); err != nil {
			logger.Warn("governance event log disabled: " + err.Error())
		} else {
			defer listener.Stop()
		}
	}

	rps, burst := config.GetHTTPRateLimit()
	ser := http.NewServer(logger, w.app, http.Options{
		Address:         config.GetPort(),
		RequestTimeout:  config.GetRequestTimeout(),
		MutationTimeout: config.GetMutationTimeout(),
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- ser.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.New("failed to run the server: " + err.Error())
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ser.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut the server down: " + err.Error())
		}
	}

	logger.Info("application finished")
	return nil
}

func getLogger() (*zap.Logger, error) {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.FatalLevel),
	}

	level, err := zapcore.ParseLevel(config.GetLogLevel())
	if err != nil {
		level = zap.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	cfg.Development = true
	cfg.Level.SetLevel(level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.WithOptions(options...), nil
}
