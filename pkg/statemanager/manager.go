// Package statemanager fetches exported network states and turns them into
// local fork genesis files.
package statemanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"

	"github.com/luxfi/statepatch/configs"
	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/core"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/plan"
)

// SnapshotInfo describes a published state export.
type SnapshotInfo struct {
	Name        string `json:"name"`
	BlockHash   string `json:"blockHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

// Manager downloads snapshots and runs patch plans over them.
type Manager struct {
	app      *application.StatePatch
	parser   *genesisparser.Parser
	client   *http.Client
	baseURL  string
	maxTries uint
	backOff  func() backoff.BackOff
}

// New creates a new Manager instance
func New(app *application.StatePatch, parser *genesisparser.Parser) *Manager {
	return &Manager{
		app:      app,
		parser:   parser,
		client:   &http.Client{},
		baseURL:  configs.SnapshotBaseURL,
		maxTries: 5,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// WithBaseURL points the manager at another snapshot host.
func (m *Manager) WithBaseURL(url string) *Manager {
	m.baseURL = url
	return m
}

// WithRetry overrides the retry policy used for downloads.
func (m *Manager) WithRetry(maxTries uint, backOff func() backoff.BackOff) *Manager {
	m.maxTries = maxTries
	m.backOff = backOff
	return m
}

func (m *Manager) stateURL(network, suffix string) string {
	return fmt.Sprintf("%s/%s/latest/%s-state%s", m.baseURL, network, network, suffix)
}

// StatePath returns where the snapshot of network is cached.
func (m *Manager) StatePath(network string) string {
	return filepath.Join(m.app.GetSnapshotDir(), network+"-state.json")
}

func (m *Manager) infoPath(network string) string {
	return filepath.Join(m.app.GetSnapshotDir(), network+"-state.info.json")
}

// Download fetches the latest snapshot of network unless the cached copy is
// already at the published block.
func (m *Manager) Download(ctx context.Context, network string) (string, error) {
	if _, ok := configs.GetNetwork(network); !ok {
		return "", core.ErrInvalidConfigf("unknown network %q", network)
	}
	if err := os.MkdirAll(m.app.GetSnapshotDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	raw, err := m.fetch(ctx, m.stateURL(network, ".info.json"))
	if err != nil {
		return "", fmt.Errorf("failed to fetch snapshot info: %w", err)
	}
	var latest SnapshotInfo
	if err := json.Unmarshal(raw, &latest); err != nil {
		return "", fmt.Errorf("failed to parse snapshot info: %w", err)
	}

	statePath := m.StatePath(network)
	if cached, err := readInfo(m.infoPath(network)); err == nil && cached.BlockHash == latest.BlockHash {
		if _, err := os.Stat(statePath); err == nil {
			m.app.Log.Info("Snapshot up to date", "network", network, "block", latest.BlockNumber)
			return statePath, nil
		}
	}

	m.app.Log.Info("Downloading snapshot", "network", network, "block", latest.BlockNumber, "hash", latest.BlockHash)
	start := time.Now()
	size, err := m.download(ctx, m.stateURL(network, ".json"), statePath)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(m.infoPath(network), raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot info: %w", err)
	}
	m.app.Log.Info("Snapshot downloaded", "network", network, "size", humanize.Bytes(uint64(size)), "elapsed", time.Since(start))
	return statePath, nil
}

// Fork patches the state of network with p. When input is empty the latest
// snapshot is downloaded first. It returns the path of the patched file.
func (m *Manager) Fork(ctx context.Context, network string, p *plan.Plan, input string) (string, error) {
	manipulators, err := p.Build()
	if err != nil {
		return "", err
	}
	if input == "" {
		if input, err = m.Download(ctx, network); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(m.app.GetOutputDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	dest := filepath.Join(m.app.GetOutputDir(), network+"-modified.json")

	m.app.Log.Info("Forking state", "network", network, "input", input, "output", dest, "manipulators", len(manipulators))
	if err := m.parser.ProcessState(input, dest, manipulators); err != nil {
		return "", fmt.Errorf("failed to patch %s state: %w", network, err)
	}
	return dest, nil
}

func (m *Manager) retry() []backoff.RetryOption {
	return []backoff.RetryOption{
		backoff.WithBackOff(m.backOff()),
		backoff.WithMaxTries(m.maxTries),
	}
}

func (m *Manager) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err := fmt.Errorf("GET %s: %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return resp, nil
}

func (m *Manager) fetch(ctx context.Context, url string) ([]byte, error) {
	return backoff.Retry(ctx, func() ([]byte, error) {
		resp, err := m.get(ctx, url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}, m.retry()...)
}

// download streams url into path through a temporary file.
func (m *Manager) download(ctx context.Context, url, path string) (int64, error) {
	tmp := path + ".partial"
	size, err := backoff.Retry(ctx, func() (int64, error) {
		resp, err := m.get(ctx, url)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		out, err := os.Create(tmp)
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		n, err := io.Copy(out, resp.Body)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return n, err
	}, m.retry()...)
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return size, nil
}

func readInfo(path string) (*SnapshotInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info SnapshotInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
