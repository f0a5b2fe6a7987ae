package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mesos-packager/internal/logger"
	"github.com/oshokin/mesos-packager/internal/service/pipeline"
	"github.com/oshokin/mesos-packager/internal/version"
)

var (
	// options collects the pipeline inputs from flags.
	options pipeline.Options

	// logLevel is the minimum level written to the log.
	logLevel string

	// rootCmd represents the base command running the packaging pipeline.
	rootCmd = &cobra.Command{
		Use:   "mesos-packager",
		Short: "Build Mesos deb and rpm packages from source",
		Long: "Checks out the sources, builds them, assembles the package root for the " +
			"detected platform and produces deb or rpm packages with fpm.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return pipeline.Run(ctx, &options)
		},
	}
)

// Execute runs the mesos-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to configuration file (default: search the XDG config directories)")
	flags.StringVar(&options.Repository, "repo", "", "source repository to clone")
	flags.StringVar(&options.Ref, "ref", "", "branch, tag or commit to check out")
	flags.StringVar(&options.Revision, "build-version", "", "package revision (default: 0.1.<UTC timestamp>)")
	flags.StringVar(&options.SourceDir, "src-dir", "", "source checkout directory")
	flags.StringVar(&options.BuildDir, "build-dir", "", "build directory")
	flags.StringVar(&options.OutputDir, "output-dir", "", "directory receiving the packages")
	flags.BoolVar(&options.Prebuilt, "prebuilt", false, "reuse the existing sources and build output")
	flags.BoolVar(&options.WithoutBinding, "without-binding", false, "do not build the Python binding package")
	flags.StringVar(&options.NominalVersion, "nominal-version", "", "version to package instead of the one declared by the sources")
	flags.StringVar(&options.OS, "os", "", "operating system id, skips host detection")
	flags.StringVar(&options.OSVersion, "os-version", "", "operating system version, used with --os")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
