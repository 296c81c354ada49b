package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/chalkan3-sloth/gridcore/hashutil"
	"github.com/chalkan3-sloth/gridcore/netutil"
	"github.com/chalkan3-sloth/gridcore/textutil"
)

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the xxhash64 fingerprint of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := hashutil.File(args[0])
			if err != nil {
				return err
			}
			pterm.Success.Printfln("%s  %s", textutil.HexUint64(h), args[0])
			return nil
		},
	}
}

func newNetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "net",
		Short: "Network introspection helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ips",
		Short: "List the local IPs a wildcard bind would expand to",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := netutil.OwnHostname()
			if err != nil {
				return err
			}
			pterm.Info.Printfln("hostname: %s", host)
			for _, ip := range netutil.OwnIPs(true) {
				pterm.Printfln("  %s", ip)
			}
			return nil
		},
	})
	return cmd
}
