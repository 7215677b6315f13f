package storagekey_test

import (
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/statepatch/pkg/storagekey"
)

var _ = Describe("Storage keys", func() {
	Context("Plain values", func() {
		DescribeTable("should match keys used on chain",
			func(module, item, expected string) {
				Expect(storagekey.Encode(module, item)).To(Equal(expected))
			},
			Entry("System.Account", "System", "Account",
				"0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9"),
			Entry("Balances.TotalIssuance", "Balances", "TotalIssuance",
				"0xc2261276cc9d1f8598ea4b6a74b15c2f57c875e4cff74148e4628f264b974c80"),
			Entry("Sudo.Key", "Sudo", "Key",
				"0x5c0d1176a568c1f92944340dbfed9e9c530ebca703c85910e7164cb7d1c9e47b"),
		)

		It("should always be 66 characters", func() {
			for _, item := range []string{"", "A", "SelectedCandidates", "a much longer storage item name"} {
				Expect(storagekey.Encode("ParachainStaking", item)).To(HaveLen(storagekey.PrefixLen))
			}
		})

		It("should be pure", func() {
			Expect(storagekey.Encode("ParachainStaking", "Round")).To(Equal(storagekey.Encode("ParachainStaking", "Round")))
			Expect(storagekey.Encode("ParachainStaking", "Round")).NotTo(Equal(storagekey.Encode("ParachainStaking", "TotalSelected")))
		})
	})

	Context("Blake2_128Concat maps", func() {
		alice := hexutil.MustDecode("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")

		It("should encode a map entry", func() {
			Expect(storagekey.EncodeBlake128MapKey("System", "Account", alice)).To(Equal(
				"0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9" +
					"de1e86a9a8c739864cf3cc5ec2bea59f" +
					"d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"))
		})

		It("should append the raw key to its hash", func() {
			concat := storagekey.Blake2128Concat(alice)
			Expect(concat).To(HaveLen(storagekey.HashSize + len(alice)))
			Expect(concat[:storagekey.HashSize]).To(Equal(storagekey.Blake2128(alice)))
			Expect(concat[storagekey.HashSize:]).To(Equal(alice))
			Expect(storagekey.Blake128ConcatSuffix(alice)).To(Equal(hexutil.Encode(concat)[2:]))
		})

		It("should decode the raw key back", func() {
			prefix := storagekey.Encode("System", "Account")
			raw, ok := storagekey.DecodeBlake128MapKey(prefix, storagekey.EncodeBlake128MapKey("System", "Account", alice))
			Expect(ok).To(BeTrue())
			Expect(raw).To(Equal(alice))
		})

		It("should reject keys under another prefix or without a hash", func() {
			prefix := storagekey.Encode("System", "Account")
			_, ok := storagekey.DecodeBlake128MapKey(prefix, storagekey.EncodeBlake128MapKey("Balances", "Locks", alice))
			Expect(ok).To(BeFalse())
			_, ok = storagekey.DecodeBlake128MapKey(prefix, prefix+"abcd")
			Expect(ok).To(BeFalse())
		})
	})

	Context("Double maps", func() {
		It("should be the map key of key1 followed by the hashed key2", func() {
			id := make([]byte, 16)
			id[0] = 42
			holder := common.HexToAddress("0x3Cd0A705a2DC65e5b1E1205896BaA2be8A07c6e0").Bytes()

			key := storagekey.EncodeBlake128DoubleMapKey("Assets", "Account", id, holder)
			Expect(key).To(Equal(storagekey.EncodeBlake128MapKey("Assets", "Account", id) + storagekey.Blake128ConcatSuffix(holder)))

			key1, key2, ok := storagekey.DecodeBlake128DoubleMapKey(storagekey.Encode("Assets", "Account"), key, len(id))
			Expect(ok).To(BeTrue())
			Expect(key1).To(Equal(id))
			Expect(key2).To(Equal(holder))
		})
	})
})
