// File: cmd/iocp-echo/main.go
// Author: momentics <momentics@gmail.com>
//
// iocp-echo is a TCP echo server driven by emulated readiness on a
// completion port.

package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is set at link time.
var version = "dev"

func main() {
	f := new(flags)

	command := &cobra.Command{
		Use:     "iocp-echo",
		Short:   "echo server on completion-port readiness emulation",
		Version: version,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "accept connections and echo everything back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	serve.Flags().StringVarP(&f.Listen, "listen", "l", "127.0.0.1:7007", "Set the listen address.")
	serve.Flags().IntVarP(&f.Backlog, "backlog", "b", 128, "Set the listen backlog.")
	serve.Flags().StringVarP(&f.ConfigFile, "config", "c", "", "Use a JSON configuration file, reloaded on change.")
	serve.Flags().StringVar(&f.LogLevel, "log-level", "info", "Set the log level.")
	serve.Flags().IntVar(&f.Batch, "batch", 64, "Set the completion batch size.")

	command.AddCommand(serve, &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	})

	if err := command.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
