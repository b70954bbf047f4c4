// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bungelogistics/bunge-deploy/pkg/constants"
	"go.uber.org/zap"
)

// Store looks artifacts up under one or more build output directories.
type Store struct {
	roots []string
	log   *zap.Logger
}

func NewStore(log *zap.Logger, roots ...string) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{roots: roots, log: log}
}

// Resolve finds and decodes the artifact for name. name is either a bare
// contract name or a fully qualified "path/Source.sol:Name".
func (s *Store) Resolve(ctx context.Context, name string) (*Artifact, error) {
	path, err := s.Locate(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading artifact %s: %w", path, err)
	}
	art, err := Parse(data, contractPart(name))
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	art.Path = path
	s.log.Debug("resolved artifact",
		zap.String("contract", art.FullyQualifiedName()),
		zap.String("path", path),
		zap.Int("bytecodeSize", len(art.Bytecode)),
	)
	return art, nil
}

// Locate returns the artifact file path for name without decoding it.
func (s *Store) Locate(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty contract name", ErrNotFound)
	}
	if source, contract, ok := strings.Cut(name, ":"); ok {
		return s.locateQualified(source, contract)
	}
	var matches []string
	for _, root := range s.roots {
		found, err := walkRoot(ctx, root, name)
		if err != nil {
			return "", err
		}
		matches = append(matches, found...)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no artifact for %q under %s. Compile the contracts first",
			ErrNotFound, name, strings.Join(s.roots, ", "))
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w %q: use a fully qualified name, candidates: %s",
			ErrAmbiguous, name, strings.Join(matches, ", "))
	}
}

func (s *Store) locateQualified(source, contract string) (string, error) {
	for _, root := range s.roots {
		path := filepath.Join(root, filepath.FromSlash(source), contract+constants.ArtifactExt)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed checking artifact %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w: no artifact for %s:%s under %s",
		ErrNotFound, source, contract, strings.Join(s.roots, ", "))
}

func walkRoot(ctx context.Context, root, name string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	want := name + constants.ArtifactExt
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			switch d.Name() {
			case constants.BuildInfoDirName, constants.CacheDirName:
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != want {
			return nil
		}
		if filepath.Ext(filepath.Base(filepath.Dir(path))) != constants.SoliditySourceExt {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed searching artifacts under %s: %w", root, err)
	}
	return matches, nil
}

func contractPart(name string) string {
	if _, contract, ok := strings.Cut(name, ":"); ok {
		return contract
	}
	return name
}
