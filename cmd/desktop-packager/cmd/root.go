package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/logger"
	"github.com/oshokin/desktop-packager/internal/service/builder"
	"github.com/oshokin/desktop-packager/internal/version"
)

var (
	// configPath to an optional settings YAML file.
	configPath string
	// saveConfig writes the effective settings back to configPath.
	saveConfig bool
	// logLevel overrides the logging level.
	logLevel string
	// flagSettings receives the command line flags.
	flagSettings config.Settings

	// rootCmd represents the base command for building desktop bundles.
	rootCmd = &cobra.Command{
		Use:   "desktop-packager [project-dir]",
		Short: "Package a desktop application for Windows, Mac and Linux.",
		Long: `Builds distributable bundles of a browser-runtime desktop application.

For every enabled platform and architecture a directory bundle is built from
the runtime package and the project files. Archives and Windows installers
listed in the manifest's build.targets are derived from each bundle.

Settings may be read from a YAML file; flags given on the command line win.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if logLevel != "" {
				level, ok := logger.ParseLogLevel(logLevel)
				if !ok {
					return fmt.Errorf("unknown log level %q", logLevel)
				}

				logger.SetLevel(level)
			}

			settings, err := effectiveSettings(cmd)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				settings.ProjectDir = args[0]
			}

			if saveConfig {
				if err = config.Save(configPath, settings); err != nil {
					return err
				}
			}

			return builder.Run(ctx, &builder.Options{Settings: settings})
		},
	}
)

// Execute runs the desktop-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

// effectiveSettings starts from the settings file when one is given and
// overlays the flags set on the command line.
func effectiveSettings(cmd *cobra.Command) (*config.Settings, error) {
	if configPath == "" {
		settings := flagSettings

		return &settings, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		settings := flagSettings

		return &settings, nil
	}

	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	overlay(cmd, settings, &flagSettings)

	return settings, nil
}

//nolint:cyclop // One branch per flag.
func overlay(cmd *cobra.Command, dst, src *config.Settings) {
	changed := cmd.Flags().Changed

	if changed("win") {
		dst.Win = src.Win
	}

	if changed("mac") {
		dst.Mac = src.Mac
	}

	if changed("linux") {
		dst.Linux = src.Linux
	}

	if changed("x86") {
		dst.X86 = src.X86
	}

	if changed("x64") {
		dst.X64 = src.X64
	}

	if changed("manifest-kind") {
		dst.ManifestKind = src.ManifestKind
	}

	if changed("mirror") {
		dst.Mirror = src.Mirror
	}

	if changed("codec-mirror") {
		dst.CodecMirror = src.CodecMirror
	}

	if changed("cache-dir") {
		dst.CacheDir = src.CacheDir
	}

	if changed("concurrent") {
		dst.Concurrent = src.Concurrent
	}

	if changed("max-parallel") {
		dst.MaxParallel = src.MaxParallel
	}

	if changed("quiet") {
		dst.Quiet = src.Quiet
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&configPath, "config", "c", config.DefaultSettingsFilename, "path to settings file")
	flags.BoolVar(&saveConfig, "save-config", false, "write the effective settings to the settings file")
	flags.StringVar(&logLevel, "log-level", "", "logging level (debug, info, warn, error)")

	flags.BoolVar(&flagSettings.Win, "win", false, "build for Windows")
	flags.BoolVar(&flagSettings.Mac, "mac", false, "build for Mac")
	flags.BoolVar(&flagSettings.Linux, "linux", false, "build for Linux")
	flags.BoolVar(&flagSettings.X86, "x86", false, "build 32-bit bundles")
	flags.BoolVar(&flagSettings.X64, "x64", false, "build 64-bit bundles")
	flags.StringVar(&flagSettings.ManifestKind, "manifest-kind", config.ManifestPackage, "manifest to read: package or app")
	flags.StringVar(&flagSettings.Mirror, "mirror", config.DefaultMirror, "runtime download mirror")
	flags.StringVar(&flagSettings.CodecMirror, "codec-mirror", config.DefaultCodecMirror, "codec download mirror")
	flags.StringVar(&flagSettings.CacheDir, "cache-dir", "", "runtime download cache (defaults to the user cache directory)")
	flags.BoolVar(&flagSettings.Concurrent, "concurrent", false, "build tasks in parallel")
	flags.IntVar(&flagSettings.MaxParallel, "max-parallel", 0, "cap on parallel tasks, 0 for no cap")
	flags.BoolVarP(&flagSettings.Quiet, "quiet", "q", false, "show warnings and errors only")
}
