package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/provlabs/epochvault/simulation"
)

const (
	flagVerbose    = "verbose"
	flagSeed       = "seed"
	flagSteps      = "steps"
	flagMaxAdvance = "max-advance"
	flagFunding    = "funding"

	envPrefix = "ROUNDSIM"
)

// NewRootCmd returns the roundsim root command. Every flag may also be set
// through a ROUNDSIM_ prefixed environment variable.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "roundsim",
		Short:         "Run round-based vault scenarios against an in-memory chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "log every step")

	rootCmd.AddCommand(
		runCmd(v),
		exampleCmd(),
		randomCmd(v),
	)
	return rootCmd
}

func runCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run a scenario file, or - for stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			sc, err := simulation.ParseScenario(src)
			if err != nil {
				return err
			}
			report, err := simulation.Run(sc, newLogger(cmd, v))
			if report != nil {
				if werr := writeYAML(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
			}
			if err != nil {
				return fmt.Errorf("scenario %q failed: %w", sc.Name, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), report)
			return nil
		},
	}
}

func exampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example [name]",
		Short: "Print a bundled scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "two_rounds"
			if len(args) == 1 {
				name = args[0]
			}
			bz, err := simulation.ExampleScenario(name)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(bz)
			return err
		},
	}
}

func randomCmd(v *viper.Viper) *cobra.Command {
	defaults := simulation.DefaultRandomConfig()
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Run weighted random operations and check the vault invariants after each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := simulation.RandomConfig{
				Seed:       v.GetInt64(flagSeed),
				Steps:      v.GetInt(flagSteps),
				MaxAdvance: v.GetDuration(flagMaxAdvance),
			}
			funding, ok := sdkmath.NewIntFromString(v.GetString(flagFunding))
			if !ok || !funding.IsPositive() {
				return fmt.Errorf("invalid --%s %q", flagFunding, v.GetString(flagFunding))
			}
			cfg.Funding = funding

			report, err := simulation.RunRandom(cfg, newLogger(cmd, v))
			if report != nil {
				if werr := writeYAML(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().Int64(flagSeed, defaults.Seed, "random seed")
	cmd.Flags().Int(flagSteps, defaults.Steps, "number of operations")
	cmd.Flags().Duration(flagMaxAdvance, defaults.MaxAdvance, "largest block time step between operations")
	cmd.Flags().String(flagFunding, defaults.Funding.String(), "asset balance minted to every account")
	return cmd
}

func newLogger(cmd *cobra.Command, v *viper.Viper) log.Logger {
	level := zerolog.InfoLevel
	if v.GetBool(flagVerbose) {
		level = zerolog.DebugLevel
	}
	return log.NewLogger(cmd.ErrOrStderr(), log.LevelOption(level))
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
