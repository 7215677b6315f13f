package plan_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxfi/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/luxfi/statepatch/pkg/application"
	"github.com/luxfi/statepatch/pkg/core"
	"github.com/luxfi/statepatch/pkg/genesisparser"
	"github.com/luxfi/statepatch/pkg/manipulators"
	"github.com/luxfi/statepatch/pkg/plan"
	"github.com/luxfi/statepatch/pkg/storagekey"
)

func fromYAML(doc string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	Expect(v.ReadConfig(strings.NewReader(doc))).To(Succeed())
	return v
}

var _ = Describe("Plan", func() {
	Context("Embedded local fork plan", func() {
		It("should be used when no plan is configured", func() {
			p, err := plan.Load(viper.New())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Spec).NotTo(BeNil())
			Expect(*p.Spec.ParaID).To(Equal(uint64(1000)))
			Expect(p.ClearXCM).To(BeTrue())
			Expect(p.Collectives).To(HaveLen(2))
		})

		It("should build manipulators in canonical order", func() {
			p, err := plan.Default()
			Expect(err).NotTo(HaveOccurred())

			ms, err := p.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(ms).To(HaveLen(10))
			Expect(ms[0]).To(BeAssignableToTypeOf(&manipulators.SpecManipulator{}))
			Expect(ms[1]).To(BeAssignableToTypeOf(&manipulators.RoundManipulator{}))
			Expect(ms[3]).To(BeAssignableToTypeOf(&manipulators.CollatorManipulator{}))
			Expect(ms[len(ms)-1]).To(BeAssignableToTypeOf(&manipulators.SudoManipulator{}))
		})

		It("should turn the sample state into a local fork", func() {
			p, err := plan.Default()
			Expect(err).NotTo(HaveOccurred())
			ms, err := p.Build()
			Expect(err).NotTo(HaveOccurred())

			dir, err := os.MkdirTemp("", "plan-test")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)

			app := application.New()
			app.Setup(dir, log.NewLogger("test"), nil)
			input, err := filepath.Abs(filepath.Join("..", "..", "testdata", "sample-state.json"))
			Expect(err).NotTo(HaveOccurred())
			output := filepath.Join(dir, "fork.json")
			Expect(genesisparser.New(app, nil).ProcessState(input, output, ms)).To(Succeed())

			raw, err := os.ReadFile(output)
			Expect(err).NotTo(HaveOccurred())
			var state struct {
				ID        string   `json:"id"`
				BootNodes []string `json:"bootNodes"`
				ParaID    uint64   `json:"para_id"`
				Genesis   struct {
					Raw struct {
						Top map[string]string `json:"top"`
					} `json:"raw"`
				} `json:"genesis"`
			}
			Expect(json.Unmarshal(raw, &state)).To(Succeed())
			Expect(state.ID).To(Equal("fork_local"))
			Expect(state.BootNodes).To(BeEmpty())
			Expect(state.ParaID).To(Equal(uint64(1000)))
			Expect(state.Genesis.Raw.Top).To(HaveKeyWithValue(
				storagekey.Encode("ParachainStaking", "Round"), "0x010000000000000064000000"))
			Expect(state.Genesis.Raw.Top).To(HaveKeyWithValue(
				storagekey.Encode("Sudo", "Key"), "0xf24ff3a9cf04c71dbc94d0b566f7a27b94566cac"))
		})
	})

	Context("Configured plans", func() {
		It("should decode the patch section", func() {
			p, err := plan.Load(fromYAML(`
patch:
  sudo: "0x773539d4Ac0e786233D90A233654ccEE26a613D9"
  assets:
    - id: "42"
      balances:
        - account: "0x3Cd0A705a2DC65e5b1E1205896BaA2be8A07c6e0"
          amount: "0x3e8"
  authorizedUpgrade:
    codeHash: "0x1111111111111111111111111111111111111111111111111111111111111111"
    checkVersion: false
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Spec).To(BeNil())
			Expect(*p.AuthorizedUpgrade.CheckVersion).To(BeFalse())

			ms, err := p.Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(ms).To(HaveLen(3))
			Expect(ms[2]).To(BeAssignableToTypeOf(&manipulators.AssetsManipulator{}))
		})

		Context("From a plan file", func() {
			var dir string

			BeforeEach(func() {
				var err error
				dir, err = os.MkdirTemp("", "plan-file")
				Expect(err).NotTo(HaveOccurred())
				DeferCleanup(os.RemoveAll, dir)
			})

			writePlan := func(doc string) string {
				path := filepath.Join(dir, "plan.yaml")
				Expect(os.WriteFile(path, []byte(doc), 0644)).To(Succeed())
				return path
			}

			It("should decode the patch section", func() {
				p, err := plan.LoadFile(writePlan("patch:\n  clearXcm: true\n"))
				Expect(err).NotTo(HaveOccurred())
				Expect(p.ClearXCM).To(BeTrue())
				Expect(p.Sudo).To(BeEmpty())
				Expect(p.Collator).To(BeNil())
			})

			It("should not fall back to the embedded plan when the section is misspelled", func() {
				p, err := plan.LoadFile(writePlan("patches:\n  clearXcm: true\n"))
				Expect(p).To(BeNil())
				var cfgErr core.ConfigError
				Expect(errors.As(err, &cfgErr)).To(BeTrue(), "%v", err)
				Expect(err.Error()).To(ContainSubstring(`"patch"`))
			})

			It("should report a missing file", func() {
				_, err := plan.LoadFile(filepath.Join(dir, "missing.yaml"))
				var cfgErr core.ConfigError
				Expect(errors.As(err, &cfgErr)).To(BeTrue(), "%v", err)
			})
		})

		DescribeTable("should report bad values as configuration errors",
			func(doc string) {
				p, err := plan.Load(fromYAML(doc))
				Expect(err).NotTo(HaveOccurred())
				_, err = p.Build()
				var cfgErr core.ConfigError
				Expect(errors.As(err, &cfgErr)).To(BeTrue(), "%v", err)
			},
			Entry("zero round length", "patch:\n  round:\n    first: 0\n    length: 0\n"),
			Entry("ratio above 100", "patch:\n  authorFilter:\n    ratio: 150\n"),
			Entry("short session key", "patch:\n  collator:\n    sessionKey: \"0x1234\"\n"),
			Entry("bad sudo account", "patch:\n  sudo: \"alith\"\n"),
			Entry("amount above u128", "patch:\n  balances:\n    - account: \"0xf24FF3a9CF04c71Dbc94D0b566f7A27B94566cac\"\n      amount: \"340282366920938463463374607431768211456\"\n"),
			Entry("short code hash", "patch:\n  authorizedUpgrade:\n    codeHash: \"0x11\"\n"),
		)
	})
})
