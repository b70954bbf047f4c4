// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package testutils

import (
	"crypto/ecdsa"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// KeyHex returns the hex encoding of pk without the 0x prefix.
func KeyHex(pk *ecdsa.PrivateKey) string {
	return common.Bytes2Hex(crypto.FromECDSA(pk))
}

// WriteKeystore encrypts pk with password into dir and returns the file path.
func WriteKeystore(t T, dir string, pk *ecdsa.PrivateKey, password string) string {
	t.Helper()
	k := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(pk.PublicKey),
		PrivateKey: pk,
	}
	data, err := keystore.EncryptKey(k, password, keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)
	path := filepath.Join(dir, k.Address.Hex()+".json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
