package money_test

import (
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

func TestMoney(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Money Suite")
}

var _ = Describe("Amount", func() {
	It("parses decimal strings into paise", func() {
		Expect(money.Parse("50")).To(Equal(money.Amount(5000)))
		Expect(money.Parse("12.5")).To(Equal(money.Amount(1250)))
	})

	It("refuses sub-paise precision", func() {
		_, err := money.Parse("1.005")
		Expect(err).To(HaveOccurred())
	})

	It("refuses values that do not fit in int64 paise", func() {
		_, err := money.Parse("92233720368547758.08")
		Expect(err).To(MatchError(ContainSubstring("out of range")))

		Expect(money.Parse("92233720368547758.07")).To(Equal(money.Amount(9223372036854775807)))
	})

	It("renders as a two-decimal JSON number", func() {
		b, err := json.Marshal(struct {
			Amount money.Amount `json:"amount"`
		}{money.Amount(5000)})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"amount":50.00}`))
	})

	It("accepts numbers and strings when decoding", func() {
		var v struct {
			A money.Amount `json:"a"`
			B money.Amount `json:"b"`
		}
		Expect(json.Unmarshal([]byte(`{"a":50,"b":"49.99"}`), &v)).To(Succeed())
		Expect(v.A).To(Equal(money.Amount(5000)))
		Expect(v.B).To(Equal(money.Amount(4999)))
	})

	It("exposes minor units for the gateway", func() {
		Expect(money.MustParse("50.00").Minor()).To(Equal(int64(5000)))
	})
})
