// Command pixveil hides a file inside a folder of PNG carriers, and recovers
// it back out, via LSB steganography.
//
// Grounded on zanicar-stegano/cmd/stegano/stegano.go's thin main wiring flags
// into conceal/reveal calls, restructured onto spf13/cobra subcommands and
// rs/zerolog console logging the way andresmejia3-Hide structures its own
// steganography CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pixveil/pixveil"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/pipeline"
	"github.com/pixveil/pixveil/internal/tone"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:           "pixveil",
		Short:         "Hide and recover files inside PNG images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(newEncodeCmd(&verbose, &configPath))
	root.AddCommand(newDecodeCmd(&verbose, &configPath))
	return root
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func newEncodeCmd(verbose *bool, configPath *string) *cobra.Command {
	var (
		input       string
		pngFolder   string
		output      string
		password    string
		debugVisual bool
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Hide a file inside a folder of PNG carriers",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cache, closeCache, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("encoding"),
				progressbar.OptionSetWriter(os.Stderr),
			)
			defer bar.Finish()

			err = pipeline.Encode(context.Background(), pipeline.EncodeOptions{
				InputPath:           input,
				PNGFolder:           pngFolder,
				OutputDir:           output,
				Password:            password,
				CompressionStrategy: pixveil.StrategyBrotli,
				Config:              cfg,
				Logger:              log,
				ToneCache:           cache,
				DebugVisualMarkers:  debugVisual,
			})
			_ = bar.Finish()
			return err
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to the file to hide")
	cmd.Flags().StringVar(&pngFolder, "png-folder", "", "folder of carrier PNGs")
	cmd.Flags().StringVar(&output, "output", "", "output folder for modified PNGs")
	cmd.Flags().StringVar(&password, "password", "", "password used to derive the encryption key")
	cmd.Flags().BoolVar(&debugVisual, "dv", false, "paint visible debug markers on a scratch copy of each carrier")
	for _, name := range []string{"input", "png-folder", "output", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newDecodeCmd(verbose *bool, configPath *string) *cobra.Command {
	var (
		input    string
		output   string
		password string
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Recover a file hidden inside a folder of PNG carriers",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("decoding"),
				progressbar.OptionSetWriter(os.Stderr),
			)
			defer bar.Finish()

			err = pipeline.Decode(context.Background(), pipeline.DecodeOptions{
				InputDir:  input,
				OutputDir: output,
				Password:  password,
				Config:    cfg,
				Logger:    log,
			})
			_ = bar.Finish()
			return err
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "folder of PNGs to scan for the hidden file")
	cmd.Flags().StringVar(&output, "output", "", "output folder for the recovered file")
	cmd.Flags().StringVar(&password, "password", "", "password used to derive the decryption key")
	for _, name := range []string{"input", "output", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// openCache opens the durable bbolt tone cache at the configured path, or
// falls back to an in-memory-only cache when no path is configured.
func openCache(cfg config.Config) (pixveil.ToneCache, func(), error) {
	if cfg.ToneCachePath == "" {
		return &tone.MemoryCache{}, func() {}, nil
	}
	c, err := tone.OpenCache(cfg.ToneCachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open tone cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}
