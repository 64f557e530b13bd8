package main

import (
	"context"
	"fmt"
	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/veedubyou/stem-splitter-be/src/server/application"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/keys"
	"github.com/veedubyou/stem-splitter-be/src/shared/lib/env"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:          "stem-splitter",
		Short:        "Usage gated stem splitting upload service",
		SilenceUsage: true,
		RunE:         serveCommand.RunE,
	}

	root.AddCommand(serveCommand, newKeysCommand())
	return root
}

func newKeysCommand() *cobra.Command {
	keysCommand := &cobra.Command{
		Use:   "keys",
		Short: "Inspect unlock keys",
	}

	keysCommand.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the configured unlock key source and report how many keys it holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig := loadAppConfig(setupEnvironment())

			loaded, err := keys.Read(cmd.Context(), appConfig.KeySource)
			if err != nil {
				return errors.Wrap(err, "Failed to read unlock keys")
			}

			registry := keys.NewRegistry(loaded)
			fmt.Fprintf(cmd.OutOrStdout(), "%d unlock keys loaded from %T\n", registry.Len(), appConfig.KeySource)
			return nil
		},
	})

	return keysCommand
}

func setupEnvironment() env.Environment {
	environment := env.Get()

	switch environment {
	case env.Production:
		log.SetHandler(json.New(os.Stderr))
	default:
		log.SetHandler(text.New(os.Stderr))
	}

	return environment
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app := application.NewApp(loadAppConfig(setupEnvironment()))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startErr := make(chan error, 1)
	go func() {
		startErr <- app.Start()
	}()

	select {
	case err := <-startErr:
		return err
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	if err := app.Stop(); err != nil {
		return errors.Wrap(err, "Failed to shut down cleanly")
	}

	return <-startErr
}
