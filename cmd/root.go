// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bungelogistics/bunge-deploy/pkg/application"
	"github.com/bungelogistics/bunge-deploy/pkg/config"
	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"github.com/bungelogistics/bunge-deploy/pkg/deployer"
	"github.com/bungelogistics/bunge-deploy/pkg/ux"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	app     *application.Deployer
	newApp  = application.New
	Version = "0.1.0"
	cfgFile string

	dotEnvFile = constants.DotEnvFileName

	// closes the log file, if any, once the command returns
	closeLog = func() {}
)

func NewRootCmd(v *viper.Viper) *cobra.Command {
	// rootCmd represents the base command when called without any subcommands
	rootCmd := &cobra.Command{
		Use:   constants.CLIName,
		Short: "Deploy the BungeLogistics contract and print its address",
		Long: `Deploys the compiled BungeLogistics contract to an EVM node and prints the
address it was deployed at.

The contract is looked up in the compiler artifacts (Hardhat or Foundry
layout), submitted with the configured account and waited on until the node
confirms it. On success exactly one line is written to stdout:

  BungeLogistics address:  0x...

Every setting can also come from the environment (BUNGE_RPC_URL,
BUNGE_PRIVATE_KEY, ...), a .env file or a bunge-deploy.{yaml,json,toml} file
in the working directory. Flags take precedence over environment, environment
over .env, .env over the config file.

Running it twice deploys two independent instances.`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return createApp(cmd, v) },
		RunE:              deploy,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Disable printing the completion command
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	def := config.New()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bunge-deploy.{yaml,json,toml})")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, def.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(config.KeyLogFile, "", "also write JSON logs to this file")

	addDeployFlags(rootCmd.Flags(), def)

	_ = v.BindPFlags(rootCmd.PersistentFlags())
	_ = v.BindPFlags(rootCmd.Flags())
	return rootCmd
}

func addDeployFlags(flags *pflag.FlagSet, def *config.Config) {
	flags.String(config.KeyRPCURL, def.RPCURL, "JSON-RPC endpoint of the node")
	flags.Int64(config.KeyChainID, 0, "expected chain id, 0 accepts whatever the node reports")
	flags.String(config.KeyPrivateKey, "", "hex private key of the deploying account")
	flags.String(config.KeyKeystore, "", "keystore file of the deploying account")
	flags.String(config.KeyKeystorePassword, "", "password of the keystore file")
	flags.String(config.KeyArtifactsDir, def.ArtifactsDir, "compiler artifacts directory")
	flags.String(config.KeyContract, def.Contract, "contract name, or fully qualified path/Source.sol:Name")
	flags.Duration(config.KeyConfirmTimeout, def.ConfirmTimeout, "give up waiting for confirmation after this long, 0 waits forever")
	flags.Duration(config.KeyPollInterval, def.PollInterval, "receipt polling interval")
	flags.Uint64(config.KeyConfirmations, def.Confirmations, "blocks the deployment must be buried under")
	flags.Uint64(config.KeyGasLimit, 0, "gas limit, 0 estimates it")
	flags.String(config.KeyGasFeeCap, "", "max fee per gas in wei, empty lets the node suggest")
	flags.String(config.KeyGasTipCap, "", "max priority fee per gas in wei, empty lets the node suggest")
}

func createApp(cmd *cobra.Command, v *viper.Viper) error {
	if err := initConfig(v); err != nil {
		return err
	}
	conf, err := config.Load(v)
	if err != nil {
		return err
	}
	log, err := setupLogging(conf.LogLevel, conf.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	// command output goes to stdout, progress only to an interactive stderr
	ux.NewUserLog(log, cmd.OutOrStdout())
	if ux.IsTerminal(cmd.ErrOrStderr()) {
		ux.Logger.SetStatusWriter(cmd.ErrOrStderr())
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("using config file", zap.String("config-file", used))
	}
	app.Setup(log, conf)
	return nil
}

func deploy(cmd *cobra.Command, _ []string) error {
	tracker := ux.NewStepTracker(ux.Logger)
	status := ux.Logger.StatusWriter()
	interactive := ux.IsTerminal(status)

	var spinner *ux.Spinner
	stopSpinner := func() {
		if spinner != nil {
			spinner.Stop()
			spinner = nil
		}
	}
	defer stopSpinner()

	res, err := app.Deploy(cmd.Context(), func(from, to deployer.State, cause error) {
		stopSpinner()
		switch to {
		case deployer.Provisioning, deployer.Submitting, deployer.Confirming:
			if from != deployer.Idle {
				tracker.Complete("")
			}
			tracker.Start(fmt.Sprintf("%s %s", to, app.Conf.Contract))
			if to == deployer.Confirming && interactive {
				spinner = ux.StartSpinner(status, "waiting for confirmation")
			}
		case deployer.Succeeded:
			tracker.Complete("")
		case deployer.Failed:
			tracker.Failed(cause.Error())
		}
	})
	if err != nil {
		return err
	}
	ux.Logger.PrintToUser("%s %s", res.Contract+constants.AddressLabelSuffix, res.Address.Hex())
	return nil
}

// initConfig reads in config file and ENV variables if set.
// Priority: flags > env vars > config file > defaults
func initConfig(v *viper.Viper) error {
	config.SetDefaults(v)
	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(constants.DefaultConfigFileName)
	}

	// .env values never override the real environment
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed loading %s: %w", dotEnvFile, err)
	}

	// BUNGE_RPC_URL -> rpc-url, etc.
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No config file is normal, a broken or explicitly named missing one is not
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed reading config file: %w", err)
	}
	return nil
}

// setupLogging builds the diagnostic logger: human readable on stderr at the
// configured level, plus everything as JSON in logFile when one is set.
func setupLogging(level, logFile string, stderr io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", config.KeyLogLevel, level, err)
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if ux.IsTerminal(stderr) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), lvl),
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed opening log file: %w", err)
		}
		closeLog = func() { _ = f.Close() }
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			zapcore.DebugLevel,
		))
	}
	return zap.New(zapcore.NewTee(cores...)).Named(constants.CLIName), nil
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app = newApp()
	cfgFile = ""
	rootCmd := NewRootCmd(viper.New())
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if app.Log != nil {
		_ = app.Log.Sync()
	}
	closeLog()
	closeLog = func() {}
	if err != nil {
		fmt.Fprintf(stderr, "\nERROR: %s\n", err)
		if deployer.IsRetryable(err) {
			fmt.Fprintln(stderr, "Nothing was broadcast, it is safe to run the deployment again.")
		}
		return 1
	}
	return 0
}

// Execute runs the root command with the process arguments and exits.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
