package paymentgateway_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal/paymentgateway"
)

var _ = Describe("Signatures", func() {
	const (
		orderID   = "order_IEIaMR65cu6nz3"
		paymentID = "pay_IH4NVgf4Dreq1l"
		secret    = "EnLs21M47BllR3X8PSFtjtbd"
	)

	Describe("VerifySignature", func() {
		It("accepts the exact HMAC of order|payment", func() {
			sig := paymentgateway.Sign(orderID+"|"+paymentID, secret)

			ok, err := paymentgateway.VerifySignature(orderID, paymentID, sig, secret)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("rejects every single-bit mutation of a valid signature", func() {
			sig := []byte(paymentgateway.Sign(paymentgateway.CheckoutMessage(orderID, paymentID), secret))

			for i := range sig {
				for bit := 0; bit < 8; bit++ {
					mutated := make([]byte, len(sig))
					copy(mutated, sig)
					mutated[i] ^= 1 << bit

					ok, err := paymentgateway.VerifySignature(orderID, paymentID, string(mutated), secret)
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeFalse(), "byte %d bit %d", i, bit)
				}
			}
		})

		It("rejects signatures made with another secret", func() {
			sig := paymentgateway.Sign(paymentgateway.CheckoutMessage(orderID, paymentID), "other")
			ok, err := paymentgateway.VerifySignature(orderID, paymentID, sig, secret)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("treats malformed signatures as a mismatch", func() {
			ok, err := paymentgateway.VerifySignature(orderID, paymentID, "zz-not-hex", secret)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		DescribeTable("errors on missing input",
			func(o, p, s, k string) {
				_, err := paymentgateway.VerifySignature(o, p, s, k)
				Expect(err).To(HaveOccurred())
			},
			Entry("order", "", paymentID, "abc", secret),
			Entry("payment", orderID, "", "abc", secret),
			Entry("signature", orderID, paymentID, "", secret),
			Entry("secret", orderID, paymentID, "abc", ""),
		)
	})

	Describe("VerifyWebhookSignature", func() {
		It("signs the raw body", func() {
			body := []byte(`{"event":"payment.captured"}`)
			sig := paymentgateway.Sign(string(body), "whsec")

			ok, err := paymentgateway.VerifyWebhookSignature(body, sig, "whsec")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = paymentgateway.VerifyWebhookSignature([]byte(`{"event":"payment.failed"}`), sig, "whsec")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
