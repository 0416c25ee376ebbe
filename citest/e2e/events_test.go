package e2e_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/citest/testutil"
	"github.com/extforge/extforge/pkg/types"
)

var _ = Describe("Event stream", func() {
	var (
		identity string
		client   *testutil.TestClient
		stream   *testutil.SSEClient
	)

	BeforeEach(func() {
		identity = "events-" + testutil.RandomString(8)
		client = testServer.Client().As(identity)

		stream = testServer.SSEClient()
		stream.Identity = identity
		Expect(stream.Connect(ctx, "/event")).To(Succeed())
		_, err := stream.WaitFor("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		stream.Close()
	})

	It("streams the round's files, messages and status", func() {
		_, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())

		files, err := stream.WaitFor("workspace.files", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		var payload []types.File
		Expect(files.Decode(&payload)).To(Succeed())
		Expect(payload).To(HaveLen(3))

		Eventually(stream.Types, 5*time.Second).Should(ContainElements(
			"workspace.message", "workspace.status", "workspace.files", "workspace.selection",
		))
	})

	It("announces saved projects", func() {
		_, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())
		info, err := client.SaveProject(ctx, "Streamed")
		Expect(err).NotTo(HaveOccurred())

		saved, err := stream.WaitFor("project.saved", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		var payload types.SnapshotInfo
		Expect(saved.Decode(&payload)).To(Succeed())
		Expect(payload.ID).To(Equal(info.ID))
	})

	It("does not leak events to other users", func() {
		other := testServer.SSEClient()
		other.Identity = "someone-else-" + testutil.RandomString(8)
		Expect(other.Connect(ctx, "/event")).To(Succeed())
		defer other.Close()
		_, err := other.WaitFor("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		_, err = client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())
		_, err = stream.WaitFor("workspace.files", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		Consistently(other.Types, 300*time.Millisecond).Should(Equal([]string{"server.connected"}))
	})
})
