// Package workspace holds one user's in-progress extension: the
// conversation, the current file set, the selected file and the views
// derived from them.
//
// A generation round appends the user's message, hands the whole
// conversation to a provider.Generator and, on success, replaces the file
// set with the result. Only one round may be in flight per workspace; a
// second Send while the first is outstanding fails with ErrBusy and never
// reaches the Generator.
//
// The preview document, the permissions list and the selection are
// recomputed synchronously after every mutation. Once the state lock is
// released the change is announced on the event bus, scoped to the
// workspace's identity:
//
//	event.WorkspaceFiles     []types.File
//	event.WorkspaceMessage   []types.Message (the whole conversation)
//	event.WorkspaceStatus    Status
//	event.WorkspaceSelection Selection
package workspace
