package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "read <address> <length>",
		Short: "Read bytes from %M memory",
		Example: `  goadsio read --url ads://192.168.1.10/:851 0x1000 4
  goadsio read --url ads://192.168.1.10/:851 100 32 --format dump`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseUint32(args[0])
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
			length, err := parseUint32(args[1])
			if err != nil {
				return fmt.Errorf("length: %w", err)
			}

			_, _, client, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			data, err := client.Read(cmd.Context(), address, length)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "hex":
				fmt.Fprintln(out, hex.EncodeToString(data))
			case "dump":
				fmt.Fprint(out, hex.Dump(data))
			case "json":
				return json.NewEncoder(out).Encode(map[string]any{
					"address": address,
					"length":  length,
					"data":    hex.EncodeToString(data),
				})
			default:
				return fmt.Errorf("unknown format %q (hex, dump, json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "hex", "Output format: hex, dump, json")
	return cmd
}
