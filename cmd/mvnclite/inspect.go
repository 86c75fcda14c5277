package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/config"
)

func newInspectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect DIR [DIR...]",
		Short: "Check network directories without a device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {

			failed := 0

			for _, dir := range args {
				if err := inspectNetwork(cmd.OutOrStdout(), opts.cfg, dir); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n\n", dir, err)
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d networks failed to load", failed, len(args))
			}

			return nil
		},
	}
}

// inspectNetwork loads the network at dir and prints what the device would
// be given
func inspectNetwork(w io.Writer, cfg config.Config, dir string) error {

	nw, err := mvnclite.LoadNetwork(dir)

	if err != nil {
		return err
	}

	sum := mvnclite.GraphChecksum(nw.Graph)
	expected, source := expectedChecksum(cfg, dir)

	verdict := "unverified"

	switch {
	case expected == "":
	case strings.EqualFold(expected, sum):
		verdict = "ok (" + source + ")"
	default:
		verdict = "MISMATCH, expected " + expected + " (" + source + ")"
	}

	p := nw.Profile

	fmt.Fprintf(w, "Network: %s\n", dir)
	fmt.Fprintf(w, "Graph: %d bytes, sha256 %s, %s\n", len(nw.Graph), sum, verdict)
	fmt.Fprintf(w, "Input: %dx%dx3\n", nw.InputSize, nw.InputSize)
	fmt.Fprintf(w, "Mean: %.4f %.4f %.4f  Scale: %.6f %.6f %.6f\n",
		p.Mean[0], p.Mean[1], p.Mean[2], p.InvScale[0], p.InvScale[1], p.InvScale[2])

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"INDEX", "CATEGORY"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	for i, label := range nw.Labels {
		table.Append([]string{fmt.Sprintf("%d", i), label})
	}

	table.Render()
	fmt.Fprintln(w)

	return nil
}

// expectedChecksum finds the known good graph digest of dir
func expectedChecksum(cfg config.Config, dir string) (sum, source string) {

	for _, n := range cfg.Networks {
		if n.SHA256 != "" && (n.Path == dir || config.NetworkName(n.Path) == config.NetworkName(dir)) {
			return strings.ToLower(n.SHA256), "config"
		}
	}

	if v, ok := mvnclite.ReadChecksumFile(dir); ok {
		return v, mvnclite.ChecksumFile
	}

	return "", ""
}
