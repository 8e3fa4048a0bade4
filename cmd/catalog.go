package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/genpad/internal/generator"
	"github.com/urfave/cli/v2"
)

func categoryFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "category",
		Aliases: []string{"k"},
		Usage:   "Generator category (GenAI_Python, GenAI_Dashboard, GenAI_Widget)",
		Value:   string(generator.CategoryPython),
	}
}

func scopeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "scope",
		Usage: "Owner whose selection and user generators are used",
		Value: "cli",
	}
}

// CatalogCommand lists the generators available for a category
func CatalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "List the generators of a category",
		Flags: []cli.Flag{
			categoryFlag(),
			scopeFlag(),
			&cli.StringFlag{
				Name:  "select",
				Usage: "Remember `ID` as the selected generator",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the catalog as JSON",
			},
		},
		Action: runCatalog,
	}
}

func runCatalog(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	rt, err := newRuntime(c.Context, cfg, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	category := generator.Category(c.String("category"))
	scope := c.String("scope")

	if id := c.String("select"); id != "" {
		if _, err := rt.catalog.Select(c.Context, scope, category, id); err != nil {
			return err
		}
	}

	view, err := rt.catalog.Load(c.Context, scope, category)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	selected := ""
	if view.Selected != nil {
		selected = view.Selected.ID
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tENDPOINT")
	for _, d := range view.Selectable {
		marker := ""
		if d.ID == selected {
			marker = "*"
		}
		endpoint := d.EndpointURL
		switch {
		case d.IsMock:
			endpoint = "(mock)"
		case d.UsesFallback():
			endpoint = "(site fallback)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, d.ID, d.Name, endpoint)
	}
	return w.Flush()
}
