// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package key

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bungelogistics/bunge-deploy/pkg/config"
	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

const privKeyHexLen = 64

var (
	ErrInvalidPrivateKey    = errors.New("invalid private key")
	ErrInvalidPrivateKeyLen = errors.New("invalid private key length (expect 64 bytes in hex)")
)

// Load returns the signing key configured in cfg, either a raw hex key or an
// encrypted keystore file.
func Load(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	switch {
	case cfg.PrivateKey != "" && cfg.Keystore != "":
		return nil, constants.ErrConflictingKeySource
	case cfg.PrivateKey != "":
		return FromHex(cfg.PrivateKey)
	case cfg.Keystore != "":
		return FromKeystore(cfg.Keystore, cfg.KeystorePassword)
	default:
		return nil, constants.ErrNoKeySource
	}
}

// FromHex decodes a secp256k1 private key given in hex, 0x prefix optional.
func FromHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != privKeyHexLen {
		return nil, ErrInvalidPrivateKeyLen
	}
	pk, err := crypto.HexToECDSA(s)
	if err != nil {
		// the underlying error may echo key material
		return nil, ErrInvalidPrivateKey
	}
	return pk, nil
}

// FromKeystore decrypts a Web3 Secret Storage key file.
func FromKeystore(path, password string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading user-specified key file
	if err != nil {
		return nil, fmt.Errorf("failed reading keystore %s: %w", path, err)
	}
	k, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed decrypting keystore %s: %w", path, err)
	}
	return k.PrivateKey, nil
}
