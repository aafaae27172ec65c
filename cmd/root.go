package cmd

import (
	"github.com/spf13/cobra"
)

var serverFlag string

var rootCmd = &cobra.Command{
	Use:   "netifmgr",
	Short: "netifmgr discovers network interfaces and manages their IPv4 configuration",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "http://127.0.0.1:8740", "Address of a running netifmgr serve")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
