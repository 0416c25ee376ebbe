package e2e_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/citest/testutil"
)

var _ = Describe("Live provider", Label("live"), Ordered, func() {
	var live *testutil.TestServer

	BeforeAll(func() {
		kind, ok := testutil.LiveProvider()
		if !ok {
			Skip("set " + testutil.LiveEnv + " and a provider API key to run")
		}
		GinkgoWriter.Printf("using %s\n", kind)

		var err error
		live, err = testutil.StartTestServer(testutil.WithLiveProvider(kind))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(live.Stop)
	})

	It("builds a loadable extension", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		client := live.Client().As("live-" + testutil.RandomString(8))
		client.HTTPClient.Timeout = 3 * time.Minute
		result, err := client.SendMessage(ctx, "A popup with a button that shows the current time.", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Workspace.Filenames()).To(ContainElement("manifest.json"))

		doc, err := client.GetPreview(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc).NotTo(BeEmpty())
	})
})
