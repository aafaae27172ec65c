package cmd

import (
	"fmt"
	"io"

	"netifmgr/internal/pkg/addrcodec"

	"github.com/spf13/cobra"
)

// convertMask prints the prefix of a dotted mask, or the dotted mask of a prefix.
func convertMask(w io.Writer, token string) error {
	if addrcodec.LooksLikePrefixInput(token) {
		p, err := addrcodec.ParsePrefixInput(token)
		if err != nil {
			return err
		}
		mask, err := addrcodec.PrefixLengthToMask(p)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, mask)
		return nil
	}

	p, err := addrcodec.MaskToPrefixLength(token)
	if err != nil {
		return err
	}
	if !addrcodec.IsContiguousMask(token) {
		fmt.Fprintf(w, "/%d (non-contiguous mask, not usable on an interface)\n", p)
		return nil
	}
	fmt.Fprintf(w, "/%d\n", p)
	return nil
}

var maskCmd = &cobra.Command{
	Use:   "mask <mask|/prefix>",
	Short: "Convert between dotted subnet masks and prefix lengths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertMask(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(maskCmd)
}
