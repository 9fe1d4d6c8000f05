package chat

import "github.com/arkadia/console/pkg/api"

// View receives rendering events from the Controller. The TUI implements
// it by forwarding events into its update loop; tests implement it with a
// recorder. The controller never blocks on a View method.
type View interface {
	// RenderThreads replaces the thread directory. active is the id to
	// highlight, nil when nothing is selected.
	RenderThreads(threads []api.Thread, active *api.ThreadID)

	// RenderMessages replaces the message pane with a full history.
	// An empty slice clears the pane.
	RenderMessages(msgs []api.Message)

	// AppendMessage adds one message to the pane in append order. Used for
	// the provisional user message and the confirmed assistant reply; the
	// two are never merged with a later full reload.
	AppendMessage(msg api.Message)

	// ClearInput empties the compose buffer.
	ClearInput()

	// Notify surfaces a user-visible failure notice. Only send failures
	// reach this; read failures stay in the diagnostic log.
	Notify(text string)
}
