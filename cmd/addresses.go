package cmd

import (
	"context"
	"fmt"

	"github.com/smazurov/filecast/internal/logging"
	"github.com/smazurov/filecast/internal/netaddr"
	"github.com/spf13/cobra"
)

// AddressLister enumerates local addresses a stream can bind to.
type AddressLister interface {
	ListLocalAddresses(ctx context.Context) []string
}

// CreateAddressesCmd creates the addresses command. A nil lister uses the
// host's resolver and interfaces.
func CreateAddressesCmd(lister AddressLister) *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "List local IPv4 addresses a stream can bind to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l := lister
			if l == nil {
				l = netaddr.NewHost(logging.GetLogger("netaddr"))
			}
			for _, addr := range l.ListLocalAddresses(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), addr)
			}
			return nil
		},
	}
}
