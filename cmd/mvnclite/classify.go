package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/config"
	"github.com/swdee/go-mvnclite/render"
)

func newClassifyCmd(opts *options) *cobra.Command {

	var names []string
	var annotate string

	cmd := &cobra.Command{
		Use:   "classify IMAGE [IMAGE...]",
		Short: "Classify images with each configured network in turn",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts, names, annotate, args)
		},
	}

	cmd.Flags().StringSliceVarP(&names, "network", "n", nil, "Networks to classify with, all configured when unset")
	cmd.Flags().StringVar(&annotate, "annotate", "", "Directory to write copies of the images with their top categories drawn on")

	return cmd
}

// runClassify uploads each network, classifies every image with it and
// unloads it again before the next network
func runClassify(cmd *cobra.Command, opts *options, names []string, annotate string, images []string) (err error) {

	nets, err := opts.networks(names)

	if err != nil {
		return err
	}

	load, err := opts.imageLoader()

	if err != nil {
		return err
	}

	if annotate != "" {
		if err := os.MkdirAll(annotate, 0o755); err != nil {
			return err
		}
	}

	sess, err := opts.openSession()

	if err != nil {
		return err
	}

	defer func() {
		if cerr := sess.Close(true); cerr != nil && err == nil {
			err = cerr
		}
	}()

	out := cmd.OutOrStdout()
	failed := 0

	for _, nw := range nets {

		if err := cmd.Context().Err(); err != nil {
			return err
		}

		n, err := classifyNetwork(cmd, sess, nw, images, load, annotate, out)

		if err != nil {
			return err
		}

		failed += n
	}

	printSummary(out, sess.Monitor().Summary())

	if failed > 0 {
		return fmt.Errorf("%d of %d classifications failed", failed, len(images)*len(nets))
	}

	return nil
}

// classifyNetwork runs every image through one network, returning the number
// of images that failed
func classifyNetwork(cmd *cobra.Command, sess *mvnclite.Session, nw config.NetworkConfig,
	images []string, load func(string, int) (mvnclite.RGBImage, error), annotate string,
	out io.Writer) (int, error) {

	if err := sess.UploadNetwork(nw.Path); err != nil {
		return 0, err
	}

	// release failures are logged by the session and never reported
	defer sess.UnloadNetwork()

	fmt.Fprintf(out, "Network %s (%s), %d categories\n\n", nw.Name, nw.Path, len(sess.Labels()))

	failed := 0

	for _, file := range images {

		if err := cmd.Context().Err(); err != nil {
			return failed, err
		}

		img, err := load(file, sess.InputSize())

		if err != nil {
			fmt.Fprintf(out, "%s: %v\n\n", file, err)
			failed++
			continue
		}

		res, err := sess.Classify(img)

		if err != nil {
			fmt.Fprintf(out, "%s: %v\n\n", file, err)
			failed++
			continue
		}

		printResult(out, filepath.Base(file), res)

		if annotate != "" {
			dst := filepath.Join(annotate, nw.Name+"_"+filepath.Base(file))

			if err := render.AnnotateFile(file, dst, res.Classification, render.DefaultPanelStyle()); err != nil {
				fmt.Fprintf(out, "%s: %v\n\n", file, err)
			}
		}
	}

	return failed, nil
}

// printResult writes the top categories of one image as a table
func printResult(w io.Writer, name string, res *mvnclite.Result) {

	var data [][]string

	for i, p := range res.Classification {
		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			p.Label,
			fmt.Sprintf("%.2f%%", p.Probability*100),
		})
	}

	fmt.Fprintf(w, "%s  convert %s  inference %s", name, res.ConvertTime, res.InferenceTime)

	if t := res.Telemetry; t != nil {
		fmt.Fprintf(w, "  device %.2fms  thermal %s", t.TotalMillis, t.Throttle)
	}

	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RANK", "CATEGORY", "PROBABILITY"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintln(w)
}

// printSummary writes the inference statistics of the session
func printSummary(w io.Writer, s mvnclite.Summary) {

	if s.Count == 0 {
		return
	}

	fmt.Fprintf(w, "%d inferences, mean %.2fms, stddev %.2fms, max %.2fms, slow %d, throttled %d\n",
		s.Count, s.MeanMillis, s.StdDevMillis, s.MaxMillis, s.SlowCount, s.ThrottledCount)
}
