package cmd

import (
	"fmt"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/luxfi/statepatch/pkg/storagekey"
)

// NewStorageKeyCmd creates the storage-key command
func NewStorageKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage-key [module] [item] [map-key] [map-key]",
		Short: "Print the storage key of a value or Blake2_128Concat map entry",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([][]byte, 0, 2)
			for _, arg := range args[2:] {
				k, err := hexutil.Decode(arg)
				if err != nil {
					return fmt.Errorf("map key %q: %w", arg, err)
				}
				keys = append(keys, k)
			}

			var key string
			switch len(keys) {
			case 0:
				key = storagekey.Encode(args[0], args[1])
			case 1:
				key = storagekey.EncodeBlake128MapKey(args[0], args[1], keys[0])
			default:
				key = storagekey.EncodeBlake128DoubleMapKey(args[0], args[1], keys[0], keys[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}
