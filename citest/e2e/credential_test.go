package e2e_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/citest/testutil"
)

var _ = Describe("User API keys", Ordered, func() {
	var (
		keyless *testutil.TestServer
		client  *testutil.TestClient
	)

	BeforeAll(func() {
		var err error
		keyless, err = testutil.StartTestServer(testutil.WithoutAmbientKey())
		Expect(err).NotTo(HaveOccurred())
		client = keyless.Client().As("keyholder@example.com")
	})

	AfterAll(func() {
		if keyless != nil {
			keyless.Stop()
		}
	})

	It("reports no key when none is configured", func() {
		status, err := client.GetCredential(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Configured).To(BeFalse())
		Expect(status.Source).To(Equal("none"))
	})

	It("refuses to generate without a key", func() {
		_, err := client.SendMessage(ctx, "hello", false)
		apiError(err, http.StatusPreconditionFailed, "CREDENTIAL_MISSING")
		Expect(keyless.MockLLM.GetRequests()).To(BeEmpty())
	})

	It("uses the user's own key once stored", func() {
		Expect(client.SetCredential(ctx, "sk-user-5678")).To(Succeed())

		status, err := client.GetCredential(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Configured).To(BeTrue())
		Expect(status.Source).To(Equal("user"))
		Expect(status.Masked).To(HaveSuffix("5678"))
		Expect(status.Masked).NotTo(ContainSubstring("sk-user"))

		_, err = client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(keyless.MockLLM.LastRequest().Authorization).To(Equal("Bearer sk-user-5678"))
	})

	It("does not share the key with other users", func() {
		status, err := keyless.Client().As("stranger@example.com").GetCredential(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Configured).To(BeFalse())
	})

	It("rejects a blank key", func() {
		apiError(client.SetCredential(ctx, "  "), http.StatusBadRequest, "INVALID_REQUEST")
	})

	It("stops generating after the key is cleared", func() {
		Expect(client.ClearCredential(ctx)).To(Succeed())

		_, err := client.SendMessage(ctx, "hello", false)
		apiError(err, http.StatusPreconditionFailed, "CREDENTIAL_MISSING")
	})
})
