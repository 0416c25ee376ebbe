package e2e_test

import (
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/citest/testutil"
	"github.com/extforge/extforge/internal/archive"
	"github.com/extforge/extforge/internal/workspace"
	"github.com/extforge/extforge/pkg/types"
)

var _ = Describe("Generation", func() {
	var client *testutil.TestClient

	BeforeEach(func() {
		client = newUser()
	})

	It("starts with only the greeting", func() {
		ws, err := client.GetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Files).To(BeEmpty())
		Expect(ws.Messages).To(HaveLen(1))
		Expect(ws.Messages[0].Role).To(Equal(types.RoleAssistant))
		Expect(ws.Messages[0].Content).To(Equal(workspace.Greeting))
		Expect(ws.Busy).To(BeFalse())
	})

	It("generates an extension from a request", func() {
		result, err := client.SendMessage(ctx, "a popup that counts the words on the page", false)
		Expect(err).NotTo(HaveOccurred())

		ws := result.Workspace
		Expect(ws.Filenames()).To(Equal([]string{"manifest.json", "popup.html", "popup.js", "style.css"}))
		Expect(ws.Selected).To(Equal("manifest.json"))
		Expect(ws.Permissions).To(ConsistOf("activeTab", "scripting"))
		Expect(ws.Error).To(BeEmpty())

		Expect(ws.Messages).To(HaveLen(3))
		Expect(ws.Messages[1].Content).To(Equal("a popup that counts the words on the page"))
		Expect(ws.Messages[2].Content).To(Equal(workspace.FilesUpdated))

		Expect(result.Round.Changes).To(HaveLen(4))
		for _, c := range result.Round.Changes {
			Expect(c.Kind).To(Equal("added"))
		}

		last := testServer.MockLLM.LastRequest()
		Expect(last).NotTo(BeNil())
		Expect(last.Authorization).To(Equal("Bearer " + testutil.MockAPIKey))
		Expect(last.Model).To(Equal("mock-gpt"))
		Expect(last.System).To(ContainSubstring(`"files"`))
		Expect(last.Latest).To(Equal("a popup that counts the words on the page"))
	})

	It("sends the whole conversation on follow-up requests", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		result, err := client.SendMessage(ctx, "now add a dark mode", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Workspace.Messages).To(HaveLen(5))

		last := testServer.MockLLM.LastRequest()
		Expect(last.Transcript).To(ContainSubstring("user: count the words please"))
		Expect(last.Transcript).To(ContainSubstring("assistant: " + workspace.FilesUpdated))
		Expect(last.Latest).To(Equal("now add a dark mode"))

		css, err := client.GetFile(ctx, "style.css")
		Expect(err).NotTo(HaveOccurred())
		Expect(css).To(ContainSubstring("#111"))

		kinds := map[string]string{}
		for _, c := range result.Round.Changes {
			kinds[c.Filename] = c.Kind
		}
		Expect(kinds).To(HaveKeyWithValue("style.css", "modified"))
	})

	It("starts over when asked for a new conversation", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		result, err := client.SendMessage(ctx, "hello there", true)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Workspace.Messages).To(HaveLen(3))
		Expect(result.Workspace.Files).To(Equal(testutil.Files(testutil.HelloExtension("Hello Extension"))))
		Expect(testServer.MockLLM.LastRequest().Transcript).NotTo(ContainSubstring("count the words"))
	})

	It("accepts replies wrapped in a fenced block", func() {
		_, err := client.SendMessage(ctx, "fenced reply please", false)
		Expect(err).NotTo(HaveOccurred())

		manifest, err := client.GetFile(ctx, "manifest.json")
		Expect(err).NotTo(HaveOccurred())
		Expect(manifest).To(ContainSubstring("Fenced Extension"))
	})

	It("keeps the files when the model answers with prose", func() {
		_, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())

		_, err = client.SendMessage(ctx, "reply with prose", false)
		apiError(err, http.StatusBadGateway, "PROVIDER_ERROR")

		ws, err := client.GetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Filenames()).To(Equal([]string{"manifest.json", "popup.html", "popup.js"}))
		Expect(ws.Error).NotTo(BeEmpty())
		Expect(ws.Busy).To(BeFalse())

		last := ws.Messages[len(ws.Messages)-1]
		Expect(last.Role).To(Equal(types.RoleAssistant))
		Expect(last.Content).To(HavePrefix("I encountered an error: "))
	})

	It("reports upstream failures and clears the error on the next round", func() {
		_, err := client.SendMessage(ctx, "upstream rejects this", false)
		apiError(err, http.StatusBadGateway, "PROVIDER_ERROR")

		ws, err := client.GetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Error).NotTo(BeEmpty())
		Expect(ws.Files).To(BeEmpty())

		result, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Workspace.Error).To(BeEmpty())
	})

	It("rejects blank requests without calling the model", func() {
		testServer.MockLLM.Reset()
		_, err := client.SendMessage(ctx, "   ", false)
		apiError(err, http.StatusBadRequest, "INVALID_REQUEST")
		Expect(testServer.MockLLM.GetRequests()).To(BeEmpty())
	})

	It("serves a self-contained preview", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		doc, err := client.GetPreview(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc).To(ContainSubstring(`"42 words"`))
		Expect(doc).To(ContainSubstring("width: 200px"))
		Expect(doc).NotTo(ContainSubstring(`src="popup.js"`))
	})

	It("packages the files for download", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		data, err := client.Download(ctx)
		Expect(err).NotTo(HaveOccurred())
		files, err := archive.Read(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(4))
		for _, f := range files {
			Expect(strings.TrimSpace(f.Content)).NotTo(BeEmpty())
		}
	})

	It("tracks the selected file", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		Expect(client.SelectFile(ctx, "popup.js")).To(Succeed())
		ws, err := client.GetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Selected).To(Equal("popup.js"))

		apiError(client.SelectFile(ctx, "missing.js"), http.StatusNotFound, "NOT_FOUND")
	})
})
