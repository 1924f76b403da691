// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"clinic-inventory-workers/pkg/registry"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "registry-updater",
		Usage: "maintain the activity registry the worker manager validates job input against",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   "configs/activity-registry.json",
				Usage:   "path to the registry file",
				EnvVars: []string{"REGISTRY_PATH"},
			},
		},
		Commands: []*cli.Command{
			addCommand(),
			updateCommand(),
			validateCommand(),
			listCommand(),
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "add a new activity",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true, Usage: "activity ID (e.g. check-out-unit)"},
			&cli.StringFlag{Name: "displayName", Required: true},
			&cli.StringFlag{Name: "description", Required: true},
			&cli.StringFlag{Name: "category", Required: true, Usage: "search, inventory, drugs or notifications"},
			&cli.StringFlag{Name: "taskType", Usage: "Zeebe job type, defaults to the ID"},
			&cli.StringFlag{Name: "version", Value: "1.0.0"},
			&cli.StringFlag{Name: "status", Value: "planned", Usage: "planned, in-progress, completed or verified"},
			&cli.StringFlag{Name: "timeout", Value: "10s"},
			&cli.IntFlag{Name: "retries", Value: 3},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			reg, err := loadOrCreate(path)
			if err != nil {
				return err
			}

			taskType := c.String("taskType")
			if taskType == "" {
				taskType = c.String("id")
			}
			activity := registry.Activity{
				ID:                   c.String("id"),
				DisplayName:          c.String("displayName"),
				Description:          c.String("description"),
				Category:             c.String("category"),
				Version:              c.String("version"),
				TaskType:             taskType,
				ImplementationStatus: c.String("status"),
				InputSchema:          map[string]interface{}{},
				OutputSchema:         map[string]interface{}{},
				ErrorCodes:           []string{},
				Timeout:              c.String("timeout"),
				Retries:              c.Int("retries"),
				Workflows:            []string{},
				Tags:                 []string{},
			}
			if err := reg.Add(activity); err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Added activity: %s\n", activity.ID)
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "set one field of an existing activity",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Required: true},
			&cli.StringFlag{Name: "field", Required: true, Usage: "status, version, displayName, description, category, taskType, timeout or retries"},
			&cli.StringFlag{Name: "value", Required: true},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			id, field, value := c.String("id"), c.String("field"), c.String("value")
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check required fields, duplicates, timeouts and input schemas",
		Action: func(c *cli.Context) error {
			reg, err := registry.LoadRegistry(c.String("path"))
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "print activities, optionally filtered by category",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category"},
		},
		Action: func(c *cli.Context) error {
			reg, err := registry.LoadRegistry(c.String("path"))
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}

			activities := make([]registry.Activity, 0, len(reg.Activities))
			for _, a := range reg.Activities {
				if cat := c.String("category"); cat != "" && !strings.EqualFold(a.Category, cat) {
					continue
				}
				activities = append(activities, a)
			}
			sort.Slice(activities, func(i, j int) bool {
				if activities[i].Category != activities[j].Category {
					return activities[i].Category < activities[j].Category
				}
				return activities[i].TaskType < activities[j].TaskType
			})

			tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tTASK TYPE\tSTATUS\tTIMEOUT\tRETRIES")
			for _, a := range activities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", a.Category, a.TaskType, a.ImplementationStatus, a.Timeout, a.Retries)
			}
			return tw.Flush()
		},
	}
}

func loadOrCreate(path string) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if err == nil {
		return reg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &registry.ActivityRegistry{Version: "1.0.0", Activities: []registry.Activity{}}, nil
	}
	return nil, fmt.Errorf("failed to load registry: %w", err)
}
