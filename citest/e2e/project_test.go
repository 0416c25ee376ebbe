package e2e_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/extforge/extforge/citest/testutil"
	"github.com/extforge/extforge/internal/workspace"
)

var _ = Describe("Templates and projects", func() {
	var client *testutil.TestClient

	BeforeEach(func() {
		client = newUser()
	})

	It("loads a template into the workspace", func() {
		templates, err := client.ListTemplates(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(templates).NotTo(BeEmpty())

		t := templates[0]
		ws, err := client.LoadTemplate(ctx, t.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Files).To(HaveLen(len(t.Files)))
		Expect(ws.Messages).To(HaveLen(3))
		Expect(ws.Messages[0].Content).To(Equal(workspace.Greeting))
		Expect(ws.Messages[1].Content).To(Equal(t.InitialPrompt))

		_, err = client.LoadTemplate(ctx, "no-such-template")
		apiError(err, http.StatusNotFound, "NOT_FOUND")
	})

	It("continues a template with a follow-up request", func() {
		templates, err := client.ListTemplates(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = client.LoadTemplate(ctx, templates[0].ID)
		Expect(err).NotTo(HaveOccurred())

		_, err = client.SendMessage(ctx, "hello, make it friendlier", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(testServer.MockLLM.LastRequest().Transcript).To(ContainSubstring(templates[0].InitialPrompt))
	})

	It("saves, lists, restores and deletes a project", func() {
		_, err := client.SendMessage(ctx, "count the words please", false)
		Expect(err).NotTo(HaveOccurred())

		info, err := client.SaveProject(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(info.ID).NotTo(BeEmpty())
		Expect(info.Name).To(Equal("Word Counter"))
		Expect(info.Description).To(Equal("count the words please"))
		Expect(info.FileCount).To(Equal(4))

		projects, err := client.ListProjects(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(HaveLen(1))
		Expect(projects[0].ID).To(Equal(info.ID))

		ws, err := client.ResetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Files).To(BeEmpty())

		ws, err = client.RestoreProject(ctx, info.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Filenames()).To(Equal([]string{"manifest.json", "popup.html", "popup.js", "style.css"}))
		Expect(ws.Messages).To(HaveLen(3))

		Expect(client.DeleteProject(ctx, info.ID)).To(Succeed())
		_, err = client.GetProject(ctx, info.ID)
		apiError(err, http.StatusNotFound, "NOT_FOUND")
	})

	It("uses the given project name", func() {
		_, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())

		info, err := client.SaveProject(ctx, "My Greeter")
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Name).To(Equal("My Greeter"))

		snap, err := client.GetProject(ctx, info.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Files).To(HaveLen(3))
		Expect(snap.Messages).To(HaveLen(3))
	})

	It("refuses to save an empty workspace", func() {
		_, err := client.SaveProject(ctx, "Nothing")
		apiError(err, http.StatusBadRequest, "INVALID_REQUEST")
	})

	It("keeps each user's projects separate", func() {
		other := newUser()

		_, err := client.SendMessage(ctx, "hello", false)
		Expect(err).NotTo(HaveOccurred())
		info, err := client.SaveProject(ctx, "")
		Expect(err).NotTo(HaveOccurred())

		projects, err := other.ListProjects(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(projects).To(BeEmpty())

		_, err = other.GetProject(ctx, info.ID)
		apiError(err, http.StatusNotFound, "NOT_FOUND")

		ws, err := other.GetWorkspace(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ws.Files).To(BeEmpty())
	})
})
