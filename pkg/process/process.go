// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package process provides the shared bootstrap for marketplace binaries:
// flag/environment binding, logging and signal-aware contexts.
package process

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var (
	// Error is the class of process setup errors.
	Error = errs.Class("process error")

	logDisposition = flag.String("log.disp", "prod",
		"switch to 'dev' to get more output")
)

// Execute runs a *cobra.Command after wiring every flag to its environment
// counterpart: the flag db.dsn resolves from DB_DSN, redis.pool-size from
// REDIS_POOL_SIZE, and so on. Explicit flags win over the environment.
func Execute(cmd *cobra.Command) {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	preRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(cmd); err != nil {
			return err
		}
		if preRun != nil {
			return preRun(cmd, args)
		}
		return nil
	}

	Must(cmd.Execute())
}

func loadEnv(cmd *cobra.Command) error {
	vip := viper.New()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	var group errs.Group
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		if val := vip.GetString(f.Name); val != "" {
			group.Add(f.Value.Set(val))
		}
	})
	return Error.Wrap(group.Err())
}

// EnvName returns the environment variable that overrides a flag.
func EnvName(flagName string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(flagName))
}

// NewLogger returns the process logger according to the log.disp flag.
func NewLogger() (*zap.Logger, error) {
	if *logDisposition == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Ctx returns a context that is cancelled when the process receives an
// interrupt or termination signal.
func Ctx() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Must can be used for default error handling in main.
func Must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
