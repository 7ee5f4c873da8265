package console

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/meghashyamc/ragconsole/client"
)

const (
	statusTimeout  = 5 * time.Second
	requestTimeout = 10 * time.Minute
	pollInterval   = 10 * time.Second
)

type statusMsg struct {
	status *client.ModelStatus
	err    error
}

type modelActionMsg struct {
	message string
	err     error
	load    bool
}

type collectedMsg struct {
	paths []string
	err   error
}

type uploadMsg struct {
	result *client.UploadResult
	err    error
}

type searchMsg struct {
	query   string
	results []client.SearchResult
	err     error
}

type clearMsg struct {
	err error
}

type tickMsg time.Time

func checkStatus(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		status, err := backend.Status(ctx)
		return statusMsg{status: status, err: err}
	}
}

func loadModel(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		message, err := backend.LoadModel(ctx)
		return modelActionMsg{message: message, err: err, load: true}
	}
}

func unloadModel(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		message, err := backend.UnloadModel(ctx)
		return modelActionMsg{message: message, err: err}
	}
}

func collectFiles(input string) tea.Cmd {
	return func() tea.Msg {
		paths, err := client.CollectFiles(client.SplitPaths(input))
		return collectedMsg{paths: paths, err: err}
	}
}

func uploadFiles(backend Backend, paths []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := backend.Upload(ctx, paths)
		return uploadMsg{result: result, err: err}
	}
}

func runSearch(backend Backend, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		results, err := backend.Search(ctx, query)
		return searchMsg{query: query, results: results, err: err}
	}
}

func clearIndex(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return clearMsg{err: backend.Clear(ctx)}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
