// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deployer_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bungelogistics/bunge-deploy/internal/mocks"
	"github.com/bungelogistics/bunge-deploy/internal/testutils"
	"github.com/bungelogistics/bunge-deploy/pkg/artifact"
	"github.com/bungelogistics/bunge-deploy/pkg/contract"
	"github.com/bungelogistics/bunge-deploy/pkg/deployer"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const contractName = "BungeLogistics"

type transitions struct {
	mu     sync.Mutex
	states []deployer.State
	cause  error
}

func (tr *transitions) record(_, to deployer.State, cause error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.states = append(tr.states, to)
	if cause != nil {
		tr.cause = cause
	}
}

func (tr *transitions) seen() []deployer.State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]deployer.State(nil), tr.states...)
}

func fastWait() contract.WaitOptions {
	return contract.WaitOptions{PollInterval: 10 * time.Millisecond}
}

var _ = Describe("Deployer", func() {
	var (
		ctx   context.Context
		chain *testutils.SimulatedChain
		store *artifact.Store
		tr    *transitions
	)

	newDeployer := func(provisioner deployer.Provisioner, wait contract.WaitOptions) *deployer.Deployer {
		d := deployer.New(
			deployer.Config{Contract: contractName, Wait: wait},
			provisioner,
			chain.Client,
			deployer.StaticSigner(chain.Transactor(GinkgoT())),
			nil,
		)
		d.OnTransition(tr.record)
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		tr = &transitions{}
		root := GinkgoT().TempDir()
		testutils.WriteHardhatArtifact(GinkgoT(), root, contractName, testutils.DeployableBytecode)
		store = artifact.NewStore(nil, root)
	})

	Context("when every collaborator succeeds", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), true)
		})

		It("walks every state and reports the confirmed address", func() {
			d := newDeployer(store, fastWait())
			Expect(d.State()).To(Equal(deployer.Idle))
			Expect(d.Deployment()).To(BeNil())

			res, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Deployment().Confirmed()).To(BeTrue())
			Expect(res.Contract).To(Equal(contractName))
			Expect(res.Address).To(Equal(crypto.CreateAddress(chain.Address, 0)))
			Expect(res.TxHash).To(Equal(d.Deployment().TxHash()))
			Expect(res.BlockNumber).To(BeNumerically(">=", 1))
			Expect(res.GasUsed).To(BeNumerically(">", 0))
			Expect(res.Fee.Sign()).To(Equal(1))

			Expect(tr.seen()).To(Equal([]deployer.State{
				deployer.Provisioning,
				deployer.Submitting,
				deployer.Confirming,
				deployer.Succeeded,
			}))
			Expect(d.State().Terminal()).To(BeTrue())

			addr, err := d.Deployment().Address()
			Expect(err).NotTo(HaveOccurred())
			Expect(addr).To(Equal(res.Address))
		})

		It("refuses to run twice", func() {
			d := newDeployer(store, fastWait())
			_, err := d.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrAlreadyRun))
			Expect(chain.Client.Sent()).To(Equal(1))
		})

		It("deploys a new instance on every run", func() {
			first, err := newDeployer(store, fastWait()).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := newDeployer(store, fastWait()).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Address).NotTo(Equal(first.Address))
			Expect(chain.Client.Sent()).To(Equal(2))
		})
	})

	Context("when the artifact cannot be provisioned", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), true)
		})

		It("fails with a permanent provisioning error and sends nothing", func() {
			provisioner := mocks.NewProvisioner(GinkgoT())
			provisioner.On("Resolve", mock.Anything, contractName).
				Return(nil, artifact.ErrNotFound).Once()
			d := newDeployer(provisioner, fastWait())

			res, err := d.Run(ctx)
			Expect(res).To(BeNil())
			Expect(err).To(MatchError(deployer.ErrProvisioning))
			Expect(err).To(MatchError(artifact.ErrNotFound))
			Expect(err).NotTo(MatchError(deployer.ErrSubmission))
			Expect(deployer.IsRetryable(err)).To(BeFalse())

			var derr *deployer.Error
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.Kind).To(Equal(deployer.KindProvisioning))
			Expect(derr.TxHash).To(Equal(common.Hash{}))

			Expect(tr.seen()).To(Equal([]deployer.State{deployer.Provisioning, deployer.Failed}))
			Expect(tr.cause).To(Equal(err))
			Expect(d.Deployment()).To(BeNil())
			Expect(chain.Client.Sent()).To(BeZero())
		})

		It("does not ask for a signer", func() {
			d := deployer.New(
				deployer.Config{Contract: contractName, Wait: fastWait()},
				artifact.NewStore(nil, GinkgoT().TempDir()),
				chain.Client,
				func(context.Context) (*bind.TransactOpts, error) {
					Fail("signer called before provisioning succeeded")
					return nil, nil
				},
				nil,
			)
			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrProvisioning))
		})

		It("fails when no artifact was built", func() {
			d := newDeployer(artifact.NewStore(nil, GinkgoT().TempDir()), fastWait())
			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrProvisioning))
			Expect(err).To(MatchError(artifact.ErrNotFound))
		})
	})

	Context("when the transaction cannot be signed", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), true)
		})

		It("fails with a submission error", func() {
			signErr := errors.New("invalid private key")
			d := deployer.New(
				deployer.Config{Contract: contractName, Wait: fastWait()},
				store,
				chain.Client,
				func(context.Context) (*bind.TransactOpts, error) { return nil, signErr },
				nil,
			)
			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrSubmission))
			Expect(err).To(MatchError(signErr))
			Expect(chain.Client.Sent()).To(BeZero())
		})
	})

	Context("when the network rejects the transaction", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), false)
		})

		It("fails with a submission error", func() {
			d := newDeployer(store, fastWait())
			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrSubmission))
			Expect(err.Error()).To(ContainSubstring("tx failed to be submitted"))
			Expect(tr.seen()).To(Equal([]deployer.State{
				deployer.Provisioning,
				deployer.Submitting,
				deployer.Failed,
			}))
			Expect(d.Deployment()).To(BeNil())
			Expect(chain.Client.Sent()).To(BeZero())
		})
	})

	Context("when the reply to the send is lost", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), true)
		})

		It("reports the transaction hash and is not retryable", func() {
			client := &testutils.LostReplyClient{MiningClient: chain.Client, Err: io.ErrUnexpectedEOF}
			d := deployer.New(
				deployer.Config{Contract: contractName, Wait: fastWait()},
				store,
				client,
				deployer.StaticSigner(chain.Transactor(GinkgoT())),
				nil,
			)
			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrSubmission))
			Expect(err).To(MatchError(io.ErrUnexpectedEOF))
			Expect(deployer.IsRetryable(err)).To(BeFalse())

			var derr *deployer.Error
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(d.Deployment()).NotTo(BeNil())
			Expect(d.Deployment().Confirmed()).To(BeFalse())
			Expect(derr.TxHash).To(Equal(d.Deployment().TxHash()))
			Expect(err.Error()).To(ContainSubstring(derr.TxHash.String()))
			Expect(chain.Client.Sent()).To(Equal(1))
		})
	})

	Context("when confirmation fails", func() {
		BeforeEach(func() {
			chain = testutils.NewSimulatedChain(GinkgoT(), true)
		})

		It("reports a revert with the transaction hash", func() {
			root := GinkgoT().TempDir()
			testutils.WriteHardhatArtifact(GinkgoT(), root, contractName, testutils.RevertingBytecode)
			signer := chain.Transactor(GinkgoT())
			signer.GasLimit = 100_000
			d := deployer.New(
				deployer.Config{Contract: contractName, Wait: fastWait()},
				artifact.NewStore(nil, root),
				chain.Client,
				deployer.StaticSigner(signer),
				nil,
			)

			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrConfirmation))
			Expect(err).To(MatchError(contract.ErrReverted))
			Expect(deployer.IsRetryable(err)).To(BeFalse())

			var derr *deployer.Error
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.TxHash).To(Equal(d.Deployment().TxHash()))
			Expect(d.State()).To(Equal(deployer.Failed))
		})

		It("gives up after the configured timeout", func() {
			chain.Client.Hold()
			wait := fastWait()
			wait.Timeout = 100 * time.Millisecond
			d := newDeployer(store, wait)

			_, err := d.Run(ctx)
			Expect(err).To(MatchError(deployer.ErrConfirmation))
			Expect(err).To(MatchError(contract.ErrTimeout))
			Expect(chain.Client.Sent()).To(Equal(1))
			Expect(d.Deployment().Confirmed()).To(BeFalse())
			_, addrErr := d.Deployment().Address()
			Expect(addrErr).To(MatchError(contract.ErrNotConfirmed))
		})

		// Known gap: without a timeout a deployment that never confirms
		// blocks until the caller gives up.
		It("stays suspended while the network never confirms and no timeout is set", func() {
			chain.Client.Hold()
			d := newDeployer(store, fastWait())
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := d.Run(runCtx)
				done <- err
			}()

			Eventually(d.State).Should(Equal(deployer.Confirming))
			Consistently(done, 300*time.Millisecond).ShouldNot(Receive())

			cancel()
			var err error
			Eventually(done).Should(Receive(&err))
			Expect(err).To(MatchError(deployer.ErrConfirmation))
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
