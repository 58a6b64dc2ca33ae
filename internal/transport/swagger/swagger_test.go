package swagger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/metro-ticketing/internal/transport/swagger"
)

func TestSwagger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Swagger Suite")
}

var _ = Describe("OpenAPI document", func() {
	It("loads and validates", func() {
		doc, err := swagger.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Info.Title).To(Equal("Metro Ticketing API"))

		for _, path := range []string{"/tickets", "/tickets/{paymentId}/pay", "/create-order", "/verify-payment", "/payment/webhook"} {
			Expect(doc.Paths.Find(path)).NotTo(BeNil(), path)
		}
	})

	It("serves the raw document", func() {
		rec := httptest.NewRecorder()
		swagger.SpecHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, swagger.SpecPath, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
	})
})
