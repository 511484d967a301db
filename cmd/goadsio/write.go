package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func newWriteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "write <address> <hex-data>",
		Short:   "Write bytes to %M memory",
		Example: `  goadsio write --url ads://192.168.1.10/:851 0x10 aabb`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseUint32(args[0])
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
			data, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("data: %w", err)
			}
			if len(data) == 0 {
				return fmt.Errorf("data: nothing to write")
			}

			_, _, client, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Write(cmd.Context(), address, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes at %d\n", len(data), address)
			return nil
		},
	}
}
