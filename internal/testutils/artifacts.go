// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/stretchr/testify/require"
)

const (
	// init code returning the single byte 0x00 as runtime code
	DeployableBytecode = "0x600060005360016000f3"
	// init code that reverts unconditionally
	RevertingBytecode = "0x60006000fd"
	// hardhat output for interfaces and abstract contracts
	EmptyBytecode = "0x"
)

// WriteHardhatArtifact writes root/contracts/<name>.sol/<name>.json the way
// `hardhat compile` lays it out and returns the file path.
func WriteHardhatArtifact(t T, root, name, bytecode string) string {
	t.Helper()
	return writeArtifact(t, filepath.Join(root, "contracts", name+".sol"), name, map[string]any{
		"_format":                "hh-sol-artifact-1",
		"contractName":           name,
		"sourceName":             "contracts/" + name + ".sol",
		"abi":                    []any{},
		"bytecode":               bytecode,
		"deployedBytecode":       "0x00",
		"linkReferences":         map[string]any{},
		"deployedLinkReferences": map[string]any{},
	})
}

// WriteFoundryArtifact writes root/<name>.sol/<name>.json the way
// `forge build` lays it out and returns the file path.
func WriteFoundryArtifact(t T, root, name, bytecode string) string {
	t.Helper()
	return writeArtifact(t, filepath.Join(root, name+".sol"), name, map[string]any{
		"abi": []any{},
		"bytecode": map[string]any{
			"object":         bytecode,
			"linkReferences": map[string]any{},
		},
	})
}

func writeArtifact(t T, dir, name string, content map[string]any) string {
	t.Helper()
	require := require.New(t)
	require.NoError(os.MkdirAll(dir, 0o750))
	data, err := json.MarshalIndent(content, "", "  ")
	require.NoError(err)
	path := filepath.Join(dir, name+".json")
	require.NoError(os.WriteFile(path, data, 0o600))
	return path
}
