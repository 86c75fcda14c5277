package main

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/imageio"
	"github.com/swdee/go-mvnclite/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {

	var addr string

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Serve image classification over HTTP",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			return runServer(cmd, opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, defaults to the configured Server.Addr")

	return cmd
}

// runServer shares one session between all requests until interrupted
func runServer(cmd *cobra.Command, opts *options, addr string) (err error) {

	fit, err := imageio.ParseFit(opts.fit)

	if err != nil {
		return err
	}

	nets, err := opts.networks(nil)

	if err != nil {
		return err
	}

	sess, err := opts.openSession()

	if err != nil {
		return err
	}

	guard := mvnclite.NewGuard(sess)

	defer func() {
		if cerr := guard.Close(true); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ln, err := net.Listen("tcp", addr)

	if err != nil {
		return err
	}

	return server.New(guard, nets, fit, opts.log).Serve(cmd.Context(), ln)
}
