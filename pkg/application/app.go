// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package application

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/bungelogistics/bunge-deploy/pkg/artifact"
	"github.com/bungelogistics/bunge-deploy/pkg/config"
	"github.com/bungelogistics/bunge-deploy/pkg/contract"
	"github.com/bungelogistics/bunge-deploy/pkg/deployer"
	"github.com/bungelogistics/bunge-deploy/pkg/key"
	"github.com/bungelogistics/bunge-deploy/pkg/prompts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// DialFunc connects to the node behind rawURL.
type DialFunc func(ctx context.Context, rawURL string) (contract.Backend, error)

type Deployer struct {
	Log    *zap.Logger
	Conf   *config.Config
	Dial   DialFunc
	Prompt prompts.Prompter
}

func New() *Deployer {
	return &Deployer{Dial: DialEthClient, Prompt: prompts.NewPrompter()}
}

func (app *Deployer) Setup(log *zap.Logger, conf *config.Config) {
	app.Log = log
	app.Conf = conf
}

func DialEthClient(ctx context.Context, rawURL string) (contract.Backend, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed connecting to %s: %w", rawURL, err)
	}
	return client, nil
}

// Deploy runs one deployment of the configured contract. hooks observe the
// deployer's state transitions.
func (app *Deployer) Deploy(ctx context.Context, hooks ...deployer.Hook) (*deployer.Result, error) {
	backend, err := app.Dial(ctx, app.Conf.RPCURL)
	if err != nil {
		return nil, err
	}
	if closer, ok := backend.(interface{ Close() }); ok {
		defer closer.Close()
	}
	app.Log.Debug("connected", zap.String("rpc", app.Conf.RPCURL))

	d := deployer.New(
		deployer.ConfigFrom(app.Conf),
		artifact.NewStore(app.Log, app.Conf.ArtifactsDir),
		backend,
		app.Signer(backend),
		app.Log,
	)
	for _, h := range hooks {
		d.OnTransition(h)
	}
	return d.Run(ctx)
}

// Signer loads the configured key and binds it to the node's chain id. A
// configured chain id must match the node's.
func (app *Deployer) Signer(backend contract.Backend) deployer.Signer {
	return func(ctx context.Context) (*bind.TransactOpts, error) {
		pk, err := app.loadKey()
		if err != nil {
			return nil, err
		}
		chainID, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed getting chain id from %s: %w", app.Conf.RPCURL, err)
		}
		if want := app.Conf.ChainIDBig(); want != nil && want.Cmp(chainID) != 0 {
			return nil, fmt.Errorf("configured chain id %s does not match the node's chain id %s", want, chainID)
		}
		opts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
		if err != nil {
			return nil, err
		}
		opts.GasLimit = app.Conf.GasLimit
		if opts.GasFeeCap, err = app.Conf.FeeCap(); err != nil {
			return nil, err
		}
		if opts.GasTipCap, err = app.Conf.TipCap(); err != nil {
			return nil, err
		}
		app.Log.Info("signing deployment",
			zap.Stringer("from", crypto.PubkeyToAddress(pk.PublicKey)),
			zap.Stringer("chainID", chainID),
		)
		return opts, nil
	}
}

// loadKey asks for the keystore password on the terminal when none is
// configured. Without a terminal the empty password is tried.
func (app *Deployer) loadKey() (*ecdsa.PrivateKey, error) {
	conf := *app.Conf
	if conf.Keystore != "" && conf.KeystorePassword == "" && app.Prompt != nil {
		pw, err := app.Prompt.CapturePassword(fmt.Sprintf("Password for %s", conf.Keystore))
		switch {
		case errors.Is(err, prompts.ErrNonInteractive):
		case err != nil:
			return nil, fmt.Errorf("failed reading keystore password: %w", err)
		default:
			conf.KeystorePassword = pw
		}
	}
	return key.Load(&conf)
}
