// Package ui renders the interactive RecallQ search screen. Keystrokes feed
// the query orchestrator and orchestrator callbacks come back into the
// bubbletea program as messages, so all rendering happens on the program's
// event loop.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/recallq/recallq/internal/recall"
	"github.com/recallq/recallq/pkg/orchestrator"
)

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor honors the NO_COLOR convention (https://no-color.org).
func DetectNoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

// Run drives the interactive search screen until the user quits or ctx is
// cancelled. fetch performs the actual lookups; opts tunes debouncing and
// caching, cacheCapacity bounds the number of memoized queries. hooks
// receive the orchestrator before the program starts, for callers that
// reconfigure it at runtime.
func Run(ctx context.Context, fetch orchestrator.FetchFunc[recall.Results], opts orchestrator.Options, cacheCapacity int, logger *slog.Logger, hooks ...func(*orchestrator.Orchestrator[recall.Results])) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("interactive mode requires a terminal")
	}

	model := NewModel(DetectNoColor())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	orch := orchestrator.New(fetch,
		orchestrator.WithOptions[recall.Results](opts),
		orchestrator.WithCacheCapacity[recall.Results](cacheCapacity),
		orchestrator.WithLogger[recall.Results](logger),
		orchestrator.WithCallbacks(orchestrator.Callbacks[recall.Results]{
			OnStart: func(query string) {
				program.Send(searchStartedMsg{query: query})
			},
			OnSuccess: func(query string, results recall.Results, fromCache bool) {
				program.Send(searchResultsMsg{query: query, results: results, fromCache: fromCache})
			},
			OnError: func(query string, err error) {
				program.Send(searchErrorMsg{query: query, err: err})
			},
			OnFinally: func(query string) {
				program.Send(searchDoneMsg{query: query})
			},
		}))
	defer orch.Close()
	model.SetOrchestrator(orch)
	for _, hook := range hooks {
		hook(orch)
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interactive search failed: %w", err)
	}
	return nil
}
