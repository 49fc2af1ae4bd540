package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/nestpack/nestpack/internal/bundle"
)

var emptyCommand = &cli.Command{
	Name:  "empty",
	Usage: "Empty the output root directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "root",
			Usage:    "The root directory to empty",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Skip the confirmation prompt",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)
		root := command.String("root")

		if !command.Bool("force") {
			if !isInteractive(ctx) {
				return fmt.Errorf("refusing to empty %s without --force in a non-interactive session", root)
			}

			fmt.Printf("Empty all contents of %s? [y/N] ", root)
			answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("aborted")
				return nil
			}
		}

		manager, err := bundle.New(logger.Named("bundle"), nil, bundle.Options{RelativePath: root})
		if err != nil {
			return fmt.Errorf("failed to create bundle manager: %w", err)
		}

		return manager.EmptyRoot()
	},
}
