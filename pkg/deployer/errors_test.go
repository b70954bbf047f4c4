// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deployer_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/bungelogistics/bunge-deploy/pkg/deployer"
	"github.com/ethereum/go-ethereum/common"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	refused := fmt.Errorf("post: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})

	DescribeTable("retryability",
		func(kind deployer.Kind, txHash common.Hash, cause error, want bool) {
			err := &deployer.Error{Kind: kind, Contract: "BungeLogistics", TxHash: txHash, Err: cause}
			Expect(err.Retryable()).To(Equal(want))
			Expect(deployer.IsRetryable(fmt.Errorf("wrapped: %w", err))).To(Equal(want))
		},
		Entry("submission transport failure", deployer.KindSubmission, common.Hash{}, refused, true),
		Entry("send failure after signing", deployer.KindSubmission, common.HexToHash("0x02"), io.ErrUnexpectedEOF, false),
		Entry("submission rejected by node", deployer.KindSubmission, common.Hash{}, errors.New("insufficient funds"), false),
		Entry("provisioning failure", deployer.KindProvisioning, common.Hash{}, refused, false),
		Entry("confirmation transport failure", deployer.KindConfirmation, common.HexToHash("0x01"), refused, false),
	)

	It("matches the sentinel of its kind only", func() {
		err := &deployer.Error{Kind: deployer.KindSubmission, Contract: "BungeLogistics", Err: errors.New("nonce too low")}
		Expect(errors.Is(err, deployer.ErrSubmission)).To(BeTrue())
		Expect(errors.Is(err, deployer.ErrProvisioning)).To(BeFalse())
		Expect(errors.Is(err, deployer.ErrConfirmation)).To(BeFalse())
		Expect(err.Error()).To(Equal("BungeLogistics submission failed: nonce too low"))
	})

	It("names kinds and states", func() {
		Expect(deployer.KindConfirmation.String()).To(Equal("confirmation"))
		Expect(deployer.Kind(9).String()).To(Equal("Kind(9)"))
		Expect(deployer.Confirming.String()).To(Equal("Confirming"))
		Expect(deployer.Idle.Terminal()).To(BeFalse())
		Expect(deployer.Failed.Terminal()).To(BeTrue())
	})

	It("is not retryable when it is not a deployment error", func() {
		Expect(deployer.IsRetryable(errors.New("boom"))).To(BeFalse())
		Expect(deployer.IsRetryable(nil)).To(BeFalse())
	})
})
