// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Code generated manually for testing. DO NOT EDIT.

package mocks

import (
	"github.com/stretchr/testify/mock"
)

// Prompter is a mock implementation of prompts.Prompter
type Prompter struct {
	mock.Mock
}

func (m *Prompter) CapturePassword(label string) (string, error) {
	args := m.Called(label)
	return args.String(0), args.Error(1)
}

// NewPrompter creates a new instance of Prompter. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewPrompter(t interface {
	mock.TestingT
	Cleanup(func())
},
) *Prompter {
	m := &Prompter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
