// Command rvsim assembles and runs RV32I programs.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ezrv/rvsim/config"
	"github.com/ezrv/rvsim/cpu"
	"github.com/ezrv/rvsim/emulator"
	"github.com/ezrv/rvsim/monitor"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "rvsim",
		Short:         "RV32I assembler and processor simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "machine layout TOML file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(asmCommand(), runCommand(), monitorCommand())

	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// machineConfig layers the TOML file and RVSIM_* environment overrides
// over the defaults.
func machineConfig() (cfg config.Config, err error) {
	cfg = config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return
		}
	}
	cfg = config.FromEnv(cfg)

	logrus.WithFields(logrus.Fields{
		"text_base": fmt.Sprintf("%#x", cfg.TextBase),
		"data_base": fmt.Sprintf("%#x", cfg.DataBase),
	}).Debug("machine layout")
	return
}

// compile assembles the named source file, reporting every error before
// giving up.
func compile(path string) (emu *emulator.Emulator, err error) {
	cfg, err := machineConfig()
	if err != nil {
		return
	}

	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	emu = emulator.New(cfg)
	emu.Verbose = verbose

	errs := emu.Compile(inf)
	for _, e := range errs {
		logrus.WithField("file", path).Error(e)
	}
	if len(errs) != 0 {
		err = fmt.Errorf("%s: %d errors", path, len(errs))
	}
	return
}

func asmCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "asm <file.s>",
		Short: "Assemble a source file and print the listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emu, err := compile(args[0])
			if err != nil {
				return err
			}

			for _, entry := range emu.Listing() {
				fmt.Printf("%08X  %08X  %s\n",
					entry.Address, entry.Word, entry.Source)
			}

			if output != "" {
				return writeImage(output, emu)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text image to a file")
	return cmd
}

// writeImage dumps the text image to a flat binary file.
func writeImage(path string, emu *emulator.Emulator) error {
	ouf, err := os.Create(path)
	if err != nil {
		return err
	}
	defer ouf.Close()

	_, err = ouf.Write(emu.Text())
	return err
}

func runCommand() *cobra.Command {
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run <file.s>",
		Short: "Assemble and execute a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emu, err := compile(args[0])
			if err != nil {
				return err
			}

			state, steps, err := emu.Run(maxSteps)
			logrus.WithFields(logrus.Fields{
				"state": state,
				"steps": steps,
			}).Debug("run complete")

			fmt.Println(emu.Processor)
			if err != nil {
				return err
			}
			if state != cpu.StateHalted {
				return fmt.Errorf("%v after %d steps", state, steps)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxSteps, "max-steps", "n", 1_000_000, "step budget")
	return cmd
}

func monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor <file.s>",
		Short: "Assemble a program and open the interactive monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			emu, err := compile(args[0])
			if err != nil {
				return err
			}
			return monitor.New(emu).Run()
		},
	}
}
