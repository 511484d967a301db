package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInfoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Connect and print the device information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, client, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Connect(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			info := client.DeviceInfo()
			fmt.Fprintf(out, "target:  %s\n", client.Endpoint())
			fmt.Fprintf(out, "local:   %s\n", client.LocalAddr())
			fmt.Fprintf(out, "device:  %s\n", info.Name)
			fmt.Fprintf(out, "version: %d.%d.%d\n", info.MajorVersion, info.MinorVersion, info.VersionBuild)
			return nil
		},
	}
}
