package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/swdee/go-mvnclite"
	"github.com/swdee/go-mvnclite/internal/config"
	"github.com/swdee/go-mvnclite/internal/envconfig"
	"github.com/swdee/go-mvnclite/internal/imageio"
	"github.com/swdee/go-mvnclite/mvnc"
	"github.com/swdee/go-mvnclite/sim"
)

// options are the flags shared by every command
type options struct {
	configFile string
	simulate   bool
	device     int
	fit        string
	decoder    string
	cpus       string

	cfg config.Config
	log *slog.Logger
}

// appendEnvDocs adds the environment variables a command reads to its usage
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI returns the root command
func NewCLI() *cobra.Command {

	cobra.EnableCommandSorting = false

	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "mvnclite",
		Short:         "Face classification on the Movidius Neural Compute Stick",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", envconfig.ConfigFile(), "TOML configuration file")
	flags.BoolVar(&opts.simulate, "simulate", false, "Use a simulated device instead of the attached stick")
	flags.IntVar(&opts.device, "device", -1, "Index of the device to open, overrides the configuration")
	flags.StringVar(&opts.fit, "fit", "none", "How images of the wrong size are fitted: none, stretch or letterbox")
	flags.StringVar(&opts.decoder, "decoder", "go", "Image decoder: go or gocv")
	flags.StringVar(&opts.cpus, "cpus", "", "Pin the process to these CPU cores, eg: 4-7")

	classifyCmd := newClassifyCmd(opts)
	serveCmd := newServeCmd(opts)
	queryCmd := newQueryCmd(opts)
	inspectCmd := newInspectCmd(opts)
	dumpConfigCmd := newDumpConfigCmd(opts)

	envVars := envconfig.AsMap()
	common := []envconfig.EnvVar{
		envVars["MVNC_DEBUG"],
		envVars["MVNC_CONFIG"],
		envVars["MVNC_LOG_LEVEL"],
		envVars["MVNC_DEVICE_INDEX"],
	}

	appendEnvDocs(classifyCmd, append(common, envVars["MVNC_NETWORKS"], envVars["MVNC_SLOW_MS"]))
	appendEnvDocs(serveCmd, append(common, envVars["MVNC_NETWORKS"], envVars["MVNC_SLOW_MS"]))
	appendEnvDocs(queryCmd, common)
	appendEnvDocs(dumpConfigCmd, append(common, envVars["MVNC_NETWORKS"], envVars["MVNC_SLOW_MS"]))

	rootCmd.AddCommand(
		classifyCmd,
		serveCmd,
		queryCmd,
		inspectCmd,
		dumpConfigCmd,
	)

	return rootCmd
}

// init installs the logger and loads the configuration
func (o *options) init(cmd *cobra.Command) error {

	o.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: envconfig.LogLevel(),
	}))
	slog.SetDefault(o.log)

	if o.cpus != "" {
		cores, err := mvnclite.ParseCPUList(o.cpus)

		if err != nil {
			return err
		}

		if err := mvnclite.SetCPUAffinity(mvnclite.CPUCoreMask(cores)); err != nil {
			return err
		}

		o.log.Debug("cpu affinity set", "cores", cores)
	}

	cfg, err := config.Load(o.configFile)

	if err != nil {
		return err
	}

	if o.device >= 0 {
		cfg.Device.Index = o.device
	}

	o.cfg = cfg

	return nil
}

// driver returns the device runtime selected by the flags
func (o *options) driver() mvnclite.Driver {
	if o.simulate {
		return sim.New()
	}
	return mvnc.New()
}

// openSession opens the configured device
func (o *options) openSession() (*mvnclite.Session, error) {
	return mvnclite.Open(mvnclite.Config{
		Driver:         o.driver(),
		DeviceIndex:    o.cfg.Device.Index,
		DeviceLogLevel: o.cfg.Device.LogLevel,
		Logger:         o.log,
		Checksums:      o.cfg.Checksums(),
		SlowThreshold:  o.cfg.SlowThreshold(),
	})
}

// imageLoader returns the function reading an image file for a network of
// the given input size
func (o *options) imageLoader() (func(path string, size int) (mvnclite.RGBImage, error), error) {

	fit, err := imageio.ParseFit(o.fit)

	if err != nil {
		return nil, err
	}

	switch o.decoder {
	case "go", "":
		return func(path string, size int) (mvnclite.RGBImage, error) {
			return imageio.DecodeFile(path, size, fit)
		}, nil
	case "gocv":
		return func(path string, size int) (mvnclite.RGBImage, error) {
			return imageio.Load(path, size, fit)
		}, nil
	default:
		return nil, fmt.Errorf("unknown decoder %q, expecting go or gocv", o.decoder)
	}
}

// networks returns the configured networks, limited to names when given
func (o *options) networks(names []string) ([]config.NetworkConfig, error) {

	if len(names) == 0 {
		if len(o.cfg.Networks) == 0 {
			return nil, fmt.Errorf("no networks configured, use --config or MVNC_NETWORKS")
		}
		return o.cfg.Networks, nil
	}

	out := make([]config.NetworkConfig, 0, len(names))

	for _, name := range names {
		n, ok := o.cfg.Network(name)

		if !ok {
			return nil, fmt.Errorf("network '%s' not found", name)
		}

		out = append(out, n)
	}

	return out, nil
}
