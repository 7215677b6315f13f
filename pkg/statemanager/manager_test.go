package statemanager_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luxfi/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/core"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/plan"
	"github.com/luxfi/statepatch/pkg/statemanager"
)

const network = "moonbase-alpha"

var _ = Describe("Manager", func() {
	var (
		app        *application.StatePatch
		server     *httptest.Server
		manager    *statemanager.Manager
		state      []byte
		blockHash  atomic.Value
		infoHits   atomic.Int32
		stateHits  atomic.Int32
		stateCode  atomic.Int32
		ctx        context.Context
		quickRetry = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir, err := os.MkdirTemp("", "statemanager-test")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		state, err = os.ReadFile(filepath.Join("..", "..", "testdata", "sample-state.json"))
		Expect(err).NotTo(HaveOccurred())

		blockHash.Store("0x01")
		infoHits.Store(0)
		stateHits.Store(0)
		stateCode.Store(http.StatusOK)

		mux := http.NewServeMux()
		mux.HandleFunc("/"+network+"/latest/"+network+"-state.info.json", func(w http.ResponseWriter, r *http.Request) {
			infoHits.Add(1)
			_, _ = w.Write([]byte(`{"name":"` + network + `","blockHash":"` + blockHash.Load().(string) + `","blockNumber":1234}`))
		})
		mux.HandleFunc("/"+network+"/latest/"+network+"-state.json", func(w http.ResponseWriter, r *http.Request) {
			stateHits.Add(1)
			if code := int(stateCode.Load()); code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
			_, _ = w.Write(state)
		})
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)

		app = application.New()
		app.Setup(dir, log.NewLogger("test"), nil)
		manager = statemanager.New(app, genesisparser.New(app, nil)).
			WithBaseURL(server.URL).
			WithRetry(3, quickRetry)
	})

	Context("Download", func() {
		It("should cache the snapshot next to its info", func() {
			path, err := manager.Download(ctx, network)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(manager.StatePath(network)))

			raw, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(Equal(state))
			Expect(filepath.Join(app.GetSnapshotDir(), network+"-state.info.json")).To(BeAnExistingFile())
			Expect(path + ".partial").NotTo(BeAnExistingFile())
		})

		It("should skip the download while the block is unchanged", func() {
			_, err := manager.Download(ctx, network)
			Expect(err).NotTo(HaveOccurred())
			_, err = manager.Download(ctx, network)
			Expect(err).NotTo(HaveOccurred())
			Expect(infoHits.Load()).To(Equal(int32(2)))
			Expect(stateHits.Load()).To(Equal(int32(1)))

			blockHash.Store("0x02")
			_, err = manager.Download(ctx, network)
			Expect(err).NotTo(HaveOccurred())
			Expect(stateHits.Load()).To(Equal(int32(2)))
		})

		It("should retry server errors", func() {
			stateCode.Store(http.StatusServiceUnavailable)
			_, err := manager.Download(ctx, network)
			Expect(err).To(HaveOccurred())
			Expect(stateHits.Load()).To(Equal(int32(3)))
		})

		It("should not retry missing snapshots", func() {
			stateCode.Store(http.StatusNotFound)
			_, err := manager.Download(ctx, network)
			Expect(err).To(MatchError(ContainSubstring("404")))
			Expect(stateHits.Load()).To(Equal(int32(1)))
		})

		It("should reject unknown networks", func() {
			_, err := manager.Download(ctx, "polkadot")
			var cfgErr core.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(infoHits.Load()).To(BeZero())
		})
	})

	Context("Fork", func() {
		It("should download and patch the latest snapshot", func() {
			p, err := plan.Default()
			Expect(err).NotTo(HaveOccurred())

			output, err := manager.Fork(ctx, network, p, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal(filepath.Join(app.GetOutputDir(), network+"-modified.json")))
			Expect(output).To(BeAnExistingFile())
			Expect(stateHits.Load()).To(Equal(int32(1)))
		})

		It("should patch a given state without downloading", func() {
			p, err := plan.Default()
			Expect(err).NotTo(HaveOccurred())

			input, err := filepath.Abs(filepath.Join("..", "..", "testdata", "sample-state.json"))
			Expect(err).NotTo(HaveOccurred())
			output, err := manager.Fork(ctx, network, p, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(BeAnExistingFile())
			Expect(infoHits.Load()).To(BeZero())
		})
	})
})
