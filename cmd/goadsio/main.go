package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "goadsio",
		Short: "Read and write TwinCAT PLC memory over ADS",
		Long: `goadsio talks to a Beckhoff TwinCAT runtime over ADS/AMS (TCP 48898) and
reads or writes bytes in the PLC %M memory area.

Targets are given as ads://<host>[:<tcp-port>]/[<netid>]:<ams-port>, for example
ads://192.168.1.10/5.22.157.86.1.1:851. When the netid is omitted the host's
IPv4 address with .1.1 appended is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	registerGlobalFlags(rootCmd, flags)

	rootCmd.AddCommand(newReadCmd(flags))
	rootCmd.AddCommand(newWriteCmd(flags))
	rootCmd.AddCommand(newInfoCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
