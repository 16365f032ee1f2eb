package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-portal-session/cli"
	"github.com/jrsteele09/go-portal-session/internal/config"
	"github.com/jrsteele09/go-portal-session/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	root := cli.NewRootCmd(newApp)
	root.Run = func(cmd *cobra.Command, args []string) {
		figure.NewFigure("portal", "cybermedium", true).Print()
		fmt.Println()
		_ = cmd.Help()
	}

	if err := root.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(cmd *cobra.Command) (*cli.App, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	c := config.Load(envFile)
	l := logger.New(c.GetEnv(), os.Stderr, verbose)
	logger.SetGlobal(l)

	sender, err := cli.NewSender(c, l)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(cli.SettingsFromConfig(c), sender, l)
}
