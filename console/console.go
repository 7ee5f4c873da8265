package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/meghashyamc/ragconsole/client"
)

const (
	statusWaiting        = "waiting for status check..."
	handshakeUnknown     = "not connected"
	handshakeUnreachable = "failed to reach backend"
	statusLoading        = "loading model, please wait..."
	statusUnloading      = "unloading model..."
	statusLoadFailed     = "load request failed"
	statusUnloadFailed   = "unload request failed"
	statusCollecting     = "collecting files..."
	statusNoFiles        = "no supported files found"
	statusUploading      = "uploading and parsing %d files..."
	statusUploaded       = "processed %d files"
	statusPartialUpload  = "partial failure (ok: %d, failed: %d): %s"
	statusUploadFailed   = "upload request failed"
	statusSearching      = "searching..."
	statusNoMatches      = "no matches"
	statusFound          = "found %d results"
	statusSearchFailed   = "search request failed, check backend status"
	statusNetworkError   = "network error, check that the backend is running"
	statusConfirmClear   = "clear all indexed data? this cannot be undone (y/n)"
	statusClearing       = "clearing index..."
	statusCleared        = "index cleared"
	statusClearFailed    = "failed to clear index"
	statusClearCancelled = "clear cancelled"
	unknownError         = "unknown error"
)

// Backend is the subset of the HTTP client the console drives.
type Backend interface {
	Status(ctx context.Context) (*client.ModelStatus, error)
	LoadModel(ctx context.Context) (string, error)
	UnloadModel(ctx context.Context) (string, error)
	Upload(ctx context.Context, paths []string) (*client.UploadResult, error)
	Search(ctx context.Context, query string) ([]client.SearchResult, error)
	Clear(ctx context.Context) error
}

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeAddPaths
	modeConfirmClear
)

// Model is the Bubble Tea model of the control panel.
type Model struct {
	backend   Backend
	input     textinput.Model
	viewport  viewport.Model
	mode      mode
	results   []client.SearchResult
	cursor    int
	lastQuery string
	status    string
	handshake string
	isLoaded  bool
	ready     bool
}

func New(backend Backend) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 0
	vp := viewport.New(0, 0)

	return Model{
		backend:   backend,
		input:     ti,
		viewport:  vp,
		status:    statusWaiting,
		handshake: handshakeUnknown,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(checkStatus(m.backend), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch, modeAddPaths:
			return m.updateInput(msg)
		case modeConfirmClear:
			return m.updateConfirmClear(msg)
		default:
			return m.updateBrowse(msg)
		}

	case tickMsg:
		return m, tea.Batch(checkStatus(m.backend), tick())

	case statusMsg:
		if msg.err != nil {
			m.handshake = handshakeUnreachable
			return m, nil
		}
		m.isLoaded = msg.status.IsLoaded
		m.handshake = msg.status.Handshake
		if m.status == statusWaiting {
			m.status = ""
		}
		return m, nil

	case modelActionMsg:
		switch {
		case msg.err != nil && msg.load:
			m.status = statusLoadFailed
		case msg.err != nil:
			m.status = statusUnloadFailed
		default:
			m.status = msg.message
		}
		return m, checkStatus(m.backend)

	case collectedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		if len(msg.paths) == 0 {
			m.status = statusNoFiles
			return m, nil
		}
		m.status = fmt.Sprintf(statusUploading, len(msg.paths))
		return m, uploadFiles(m.backend, msg.paths)

	case uploadMsg:
		m.status = uploadStatus(msg.result, msg.err)
		return m, nil

	case searchMsg:
		m.status = searchStatus(msg.results, msg.err)
		if msg.err == nil {
			m.results = msg.results
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.refreshResults()
		return m, nil

	case clearMsg:
		if msg.err != nil {
			m.status = requestFailure(msg.err, statusClearFailed)
			return m, nil
		}
		m.results = nil
		m.cursor = 0
		m.lastQuery = ""
		m.input.SetValue("")
		m.status = statusCleared
		m.refreshResults()
		return m, nil
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "l":
		m.status = statusLoading
		return m, loadModel(m.backend)
	case "u":
		m.status = statusUnloading
		return m, unloadModel(m.backend)
	case "/":
		m.mode = modeSearch
		m.input.Placeholder = "search query"
		m.input.SetValue(m.lastQuery)
		return m, m.input.Focus()
	case "a":
		m.mode = modeAddPaths
		m.input.Placeholder = "files or folders, comma separated"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "c":
		m.mode = modeConfirmClear
		m.status = statusConfirmClear
		return m, nil
	case "down", "j":
		if len(m.results) > 0 {
			m.cursor = (m.cursor + 1) % len(m.results)
			m.refreshResults()
		}
		return m, nil
	case "up", "k":
		if len(m.results) > 0 {
			m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
			m.refreshResults()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		submitted := m.mode
		m.mode = modeBrowse
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		if submitted == modeSearch {
			m.results = nil
			m.status = statusSearching
			m.refreshResults()
			return m, runSearch(m.backend, value)
		}
		m.status = statusCollecting
		return m, collectFiles(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirmClear(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() == "y" || msg.String() == "Y" {
		m.status = statusClearing
		return m, clearIndex(m.backend)
	}
	m.status = statusClearCancelled
	return m, nil
}

func uploadStatus(result *client.UploadResult, err error) string {
	if err != nil {
		return requestFailure(err, statusUploadFailed)
	}
	if result.Success {
		return fmt.Sprintf(statusUploaded, result.SuccessCount)
	}
	reason := result.Error
	if reason == "" {
		reason = unknownError
	}
	return fmt.Sprintf(statusPartialUpload, result.SuccessCount, result.FailCount, reason)
}

func searchStatus(results []client.SearchResult, err error) string {
	if err != nil {
		return requestFailure(err, statusSearchFailed)
	}
	if len(results) == 0 {
		return statusNoMatches
	}
	return fmt.Sprintf(statusFound, len(results))
}

// requestFailure tells a server-side failure apart from an unreachable server.
func requestFailure(err error, failed string) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return failed
	}
	return statusNetworkError
}
