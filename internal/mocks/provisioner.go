// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Code generated manually for testing. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/bungelogistics/bunge-deploy/pkg/artifact"
	"github.com/stretchr/testify/mock"
)

// Provisioner is a mock implementation of deployer.Provisioner
type Provisioner struct {
	mock.Mock
}

func (m *Provisioner) Resolve(ctx context.Context, name string) (*artifact.Artifact, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artifact.Artifact), args.Error(1)
}

// NewProvisioner creates a new instance of Provisioner. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewProvisioner(t interface {
	mock.TestingT
	Cleanup(func())
},
) *Provisioner {
	m := &Provisioner{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
