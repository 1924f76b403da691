// cmd/tools/worker-generator/main.go
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "worker-generator",
		Usage: "scaffold a worker package from its activity registry entry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "registry", Value: "configs/activity-registry.json", Usage: "path to the registry file"},
			&cli.StringFlag{Name: "task-type", Aliases: []string{"t"}, Required: true},
			&cli.StringFlag{Name: "out", Value: "internal/workers", Usage: "root directory for worker packages"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite existing files"},
		},
		Action: func(c *cli.Context) error {
			files, err := generate(options{
				RegistryPath: c.String("registry"),
				TaskType:     c.String("task-type"),
				OutDir:       c.String("out"),
				Force:        c.Bool("force"),
			})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(c.App.Writer, "wrote %s\n", f)
			}
			return nil
		},
	}
}
