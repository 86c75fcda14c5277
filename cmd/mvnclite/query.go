package main

import (
	"github.com/spf13/cobra"
)

func newQueryCmd(opts *options) *cobra.Command {

	var network string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Open the device and print its details",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) (err error) {

			sess, err := opts.openSession()

			if err != nil {
				return err
			}

			defer func() {
				if cerr := sess.Close(true); cerr != nil && err == nil {
					err = cerr
				}
			}()

			if network != "" {
				nets, err := opts.networks([]string{network})

				if err != nil {
					return err
				}

				if err := sess.UploadNetwork(nets[0].Path); err != nil {
					return err
				}
			}

			return sess.Query(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "", "Network to upload before querying")

	return cmd
}
