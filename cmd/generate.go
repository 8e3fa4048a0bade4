package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/genpad/internal/dispatch"
	"github.com/genpad/internal/docsync"
	"github.com/genpad/internal/generator"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// GenerateCommand sends one prompt to a generator and prints the result
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate code from a prompt",
		ArgsUsage: "[PROMPT]",
		Flags: []cli.Flag{
			categoryFlag(),
			scopeFlag(),
			&cli.StringFlag{
				Name:    "generator",
				Aliases: []string{"g"},
				Usage:   "Generator `ID`; defaults to the remembered selection",
			},
			&cli.StringFlag{
				Name:    "prompt",
				Aliases: []string{"m"},
				Usage:   "Prompt text (or pass it as arguments)",
			},
			&cli.StringFlag{
				Name:  "save-to",
				Usage: "Write the generated code into document `ID`",
			},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	prompt := c.String("prompt")
	if prompt == "" {
		prompt = strings.Join(c.Args().Slice(), " ")
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("missing required argument: prompt")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	docID := c.String("save-to")
	rt, err := newRuntime(c.Context, cfg, runtimeOptions{requireDatabase: docID != ""})
	if err != nil {
		return err
	}
	defer rt.Close()

	category := generator.Category(c.String("category"))
	sel, err := rt.catalog.Resolve(c.Context, c.String("scope"), category, c.String("generator"))
	if err != nil {
		return err
	}

	var session *docsync.Synchronizer
	if docID != "" {
		session = docsync.NewSynchronizer(rt.documents, rt.sink, rt.syncOptions())
		if _, err := session.Load(c.Context, c.String("scope"), docID); err != nil {
			return err
		}
	}

	log.Info().Str("generator_id", sel.ID).Str("category", string(category)).Msg("Generating")
	res := rt.dispatcher.Generate(c.Context, sel, prompt, dispatch.Callbacks{
		Code: func(code string) {
			if session != nil {
				if err := session.ApplyGenerated(docID, code); err != nil {
					log.Warn().Err(err).Msg("Generated code not applied")
				}
			}
		},
	})

	switch res.Kind {
	case dispatch.KindCode:
		fmt.Fprintln(c.App.Writer, res.Text)
	case dispatch.KindDiagnostic:
		fmt.Fprintln(c.App.ErrWriter, res.Text)
		return errors.New(res.Message)
	default:
		if res.Err != nil {
			return fmt.Errorf("%s: %w", res.Message, res.Err)
		}
		return errors.New(res.Message)
	}

	if session != nil {
		if err := session.SaveNow(c.Context, docID, res.Text); err != nil {
			return fmt.Errorf("save document %s: %w", docID, err)
		}
		session.Close()
		log.Info().Str("document_id", docID).Msg("Generated code saved")
	}
	return nil
}
