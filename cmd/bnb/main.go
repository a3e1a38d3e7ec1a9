// Command bnb is the seller-side terminal client for the BnB API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/angelmondragon/brandinbox/pkg/client"
	"github.com/angelmondragon/brandinbox/pkg/logger"
	"github.com/angelmondragon/brandinbox/pkg/workflow"
)

const (
	keyAPIURL       = "api_url"
	keyTokenFile    = "token_file"
	keyPollInterval = "poll_interval"
	keyLogLevel     = "log_level"
)

// app is the per-invocation wiring shared by every subcommand.
type app struct {
	cfg    *viper.Viper
	logg   *logger.Logger
	api    *client.Client
	signin bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: viper.New()}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		if a.signin {
			fmt.Fprintln(os.Stderr, mutedStyle.Render("Run `bnb login` to sign in."))
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bnb",
		Short:         "Create, review and publish eBay listings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ~/.bnb/config.yaml)")
	flags.String("api-url", "", "API base URL")
	flags.String("token-file", "", "where the session token is kept")
	flags.Duration("poll-interval", workflow.DefaultPollInterval, "status poll interval while a job runs")
	flags.String("log-level", "warn", "log level for background polling")
	_ = a.cfg.BindPFlag(keyAPIURL, flags.Lookup("api-url"))
	_ = a.cfg.BindPFlag(keyTokenFile, flags.Lookup("token-file"))
	_ = a.cfg.BindPFlag(keyPollInterval, flags.Lookup("poll-interval"))
	_ = a.cfg.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newMeCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newCreateCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newUploadCmd(a),
		newGenerateCmd(a),
		newRegenerateCmd(a),
		newApproveCmd(a),
		newPublishCmd(a),
		newWatchCmd(a),
		newOptionsCmd(),
	)
	return root
}

// init resolves configuration from flags, BNB_* env and the config file, then builds the client.
func (a *app) init(cmd *cobra.Command) error {
	v := a.cfg
	v.SetEnvPrefix("BNB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyAPIURL, client.DefaultBaseURL)
	v.SetDefault(keyPollInterval, workflow.DefaultPollInterval)

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".bnb"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("load config: %w", err)
		}
	}

	a.logg = logger.New(logger.Options{
		ServiceName: "bnb",
		Level:       logger.ParseLevel(v.GetString(keyLogLevel)),
		Output:      os.Stderr,
	})

	tokenPath := v.GetString(keyTokenFile)
	if tokenPath == "" {
		path, err := client.DefaultTokenPath()
		if err != nil {
			return err
		}
		tokenPath = path
	}
	store, err := client.NewFileStore(tokenPath)
	if err != nil {
		return err
	}
	session, err := client.NewSession(store)
	if err != nil {
		return err
	}
	a.api = client.New(session,
		client.WithBaseURL(v.GetString(keyAPIURL)),
		client.WithLogger(a.logg),
		client.WithIdempotencyKeys(nil),
		client.WithOnUnauthorized(func() { a.signin = true }),
	)
	return nil
}

func (a *app) pollInterval() time.Duration {
	if d := a.cfg.GetDuration(keyPollInterval); d > 0 {
		return d
	}
	return workflow.DefaultPollInterval
}

// controller loads id into a fresh workflow controller. Callers must Close it.
func (a *app) controller(ctx context.Context, id string) (*workflow.Controller, error) {
	ctrl := workflow.NewController(a.api, workflow.Options{
		PollInterval: a.pollInterval(),
		Logger:       a.logg,
	})
	if err := ctrl.Load(ctx, id); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}
