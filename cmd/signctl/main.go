// signctl is the participant-side companion tool for splitpay: it generates
// keys, computes approval digests and produces the signatures a settlement
// batch is assembled from. It never talks to the coordinator; everything it
// does is offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "signctl",
		Short:         "signctl signs splitpay approvals offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newDigestCmd())
	rootCmd.AddCommand(newSignCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newHashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
