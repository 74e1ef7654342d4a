package cli

import (
	"fmt"
	"os"
	"path"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/tapbump/internal/version"
	"github.com/arthur-debert/tapbump/pkg/config"
	"github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/arthur-debert/tapbump/pkg/hosting"
	"github.com/arthur-debert/tapbump/pkg/logging"
	"github.com/arthur-debert/tapbump/pkg/normalize"
	"github.com/arthur-debert/tapbump/pkg/updater"
)

// EnvToken is the environment variable holding the GitHub access token.
const EnvToken = "GITHUB_TOKEN"

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		opts      updater.Options
	)

	rootCmd := &cobra.Command{
		Use:   "tapbump",
		Short: "Keep a Homebrew tap formula in sync with the latest upstream release",
		Long: `tapbump updates a Homebrew formula in a tap to the most recently published
release of its upstream repository: it rewrites the version, source url, and
bottle checksums in place, runs the result through brew style, and commits
the formula back to the tap when it changed.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeConfig(opts)
			if err != nil {
				return err
			}

			token := os.Getenv(EnvToken)
			if token == "" {
				return errors.Newf(errors.ErrConfigMissingToken,
					"%s must be set to a GitHub access token", EnvToken)
			}

			ctx := cmd.Context()
			client := hosting.NewGitHubClient(ctx, token)
			normalizer := normalize.NewBrew(path.Base(merged.FormulaPath))

			result, err := updater.New(client, normalizer).Run(ctx, merged)
			if err != nil {
				log.Error().Err(err).Msg("Update failed")
				return err
			}

			if result.Updated {
				fmt.Fprintf(cmd.OutOrStdout(), "Committed %q\n", result.Message)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Formula already up to date at %s\n", result.Tag)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.Flags().StringVar(&opts.Repository, "repository", "", "Upstream repository as owner/repo (required)")
	rootCmd.Flags().StringVar(&opts.Tap, "tap", "", "Tap repository as owner/repo (required)")
	rootCmd.Flags().StringVar(&opts.FormulaPath, "formula", "", "Formula path inside the tap (required)")
	rootCmd.Flags().StringVar(&opts.Name, "name", "", "Formula name (default: the repository's short name)")
	rootCmd.Flags().StringVar(&opts.Message, "message", "", "Commit message (default: \"Update <name> to <tag>\")")

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// mergeConfig fills unset flags from the optional config file and
// validates the required options.
func mergeConfig(opts updater.Options) (updater.Options, error) {
	cfg, err := config.Load()
	if err != nil {
		return opts, err
	}

	if opts.Repository == "" {
		opts.Repository = cfg.Repository
	}
	if opts.Tap == "" {
		opts.Tap = cfg.Tap
	}
	if opts.FormulaPath == "" {
		opts.FormulaPath = cfg.Formula
	}
	if opts.Name == "" {
		opts.Name = cfg.Name
	}
	if opts.Message == "" {
		opts.Message = cfg.Message
	}

	required := []struct {
		flag  string
		value string
	}{
		{"--repository", opts.Repository},
		{"--tap", opts.Tap},
		{"--formula", opts.FormulaPath},
	}
	for _, r := range required {
		if r.value == "" {
			return opts, errors.Newf(errors.ErrConfigInvalid, "%s is required", r.flag)
		}
	}
	return opts, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tapbump version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Printf("Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Printf("Built:  %s\n", version.Date)
			}
		},
	}
}
