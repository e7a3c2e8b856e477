package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/ikigai-coach/internal/advice"
	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/config"
	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/generator"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/BerylCAtieno/ikigai-coach/internal/palette"
	"github.com/spf13/cobra"
)

func newRootCommand(c *CLI) *cobra.Command {
	root := &cobra.Command{
		Use:   "ikigai",
		Short: "Map your Ikigai from the terminal",
		Long: fmt.Sprintf(`%s

Fill in what you love, what you are good at, what the world needs and what
you can be paid for, let the AI derive where they meet, render the diagram
and ask for coaching advice.

%s
  ikigai record set love "Teaching and writing"
  ikigai intersections
  ikigai render --format png --out ikigai-diagram.png
  ikigai advice ask --copy`, bold("Ikigai Coach"), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if gw, ok := c.gen.(*gateway.Gateway); ok {
				return gw.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.serverURL, "server", "s", os.Getenv("IKIGAI_SERVER"), "Generation service base URL (default: call Gemini directly)")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", defaultDataDir(), "Directory for saved colours and advice")
	root.PersistentFlags().StringVarP(&c.recordPath, "record", "r", "ikigai.json", "Record file")
	root.PersistentFlags().StringVarP(&c.model, "model", "m", config.DefaultModel, "Gemini model")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", config.DefaultRequestTimeout, "Per-request timeout")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Verbose logging")

	root.AddCommand(newRecordCommand(c))
	root.AddCommand(newIntersectionsCommand(c))
	root.AddCommand(newRenderCommand(c))
	root.AddCommand(newColorsCommand(c))
	root.AddCommand(newAdviceCommand(c))
	return root
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ikigai")
	}
	return "data"
}

func newRecordCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Show or edit the record",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print all eight fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.loadRecord()
			if err != nil {
				return err
			}
			c.printRecord(rec)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set one field (an empty value clears it)",
		Long:  "Fields: " + models.JoinFields(models.AllFields),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := models.Field(args[0])
			if !f.Valid() {
				return apperr.InvalidInput(fmt.Sprintf("unknown field %q (expected one of %s)", args[0], models.JoinFields(models.AllFields)))
			}
			rec, err := c.loadRecord()
			if err != nil {
				return err
			}
			rec.Merge(models.RecordPatch{}.With(f, args[1]))
			if err := c.saveRecord(rec); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s %s updated\n", green("✓"), f.Label())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the example record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.saveRecord(models.DefaultRecord()); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s record reset\n", green("✓"))
			return nil
		},
	})
	return cmd
}

func newIntersectionsCommand(c *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "intersections",
		Short: "Generate passion, mission, profession and vocation from the four core fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.loadRecord()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			fmt.Fprintln(c.out, cyan("Generating intersections…"))
			out, err := generator.New(c.gen, c.logger).Generate(ctx, rec)
			if err != nil {
				return err
			}
			rec.Merge(out.Patch())
			if err := c.saveRecord(rec); err != nil {
				return err
			}
			for _, f := range models.IntersectionFields {
				fmt.Fprintf(c.out, "%s %s\n  %s\n", green("✓"), bold(f.Label()), rec.Get(f))
			}
			return nil
		},
	}
}

func newRenderCommand(c *CLI) *cobra.Command {
	var format, out, theme string
	var scale float64

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the diagram as SVG or PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.loadRecord()
			if err != nil {
				return err
			}
			colors, err := palette.Load(cmd.Context(), c.store)
			if err != nil {
				return err
			}
			scene := diagram.Compose(rec, colors, diagram.ParseTheme(theme))

			var data []byte
			switch strings.ToLower(format) {
			case "svg":
				data = diagram.RenderSVG(scene)
			case "png":
				fallbacks, err := diagram.LoadFallbacks(config.Load().DiagramFonts, c.logger)
				if err != nil {
					return apperr.InvalidInput(err.Error())
				}
				opts := diagram.PNGOptions{Scale: scale, Fallbacks: fallbacks, Logger: c.logger}
				if data, err = diagram.RenderPNG(scene, opts); err != nil {
					return apperr.Internal("Could not create the diagram image.", err)
				}
			default:
				return apperr.InvalidInput(fmt.Sprintf("unknown format %q (svg or png)", format))
			}

			if out == "" || out == "-" {
				_, err := c.out.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(c.out, "%s diagram written to %s\n", green("✓"), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "png", "svg or png")
	cmd.Flags().StringVarP(&out, "out", "o", diagram.Filename, "Output file, - for stdout")
	cmd.Flags().StringVar(&theme, "theme", string(diagram.ThemeLight), "light or dark")
	cmd.Flags().Float64Var(&scale, "scale", diagram.ExportScale, "PNG pixel ratio")
	return cmd
}

func newColorsCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colors",
		Short: "Show or change the circle colours",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Args:  cobra.NoArgs,
		Short: "Print the current palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			colors, err := palette.Load(cmd.Context(), c.store)
			if err != nil {
				return err
			}
			printColors(c.out, colors)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <field> <#rrggbb>",
		Short: "Set the colour of one circle",
		Long:  "Fields: " + models.JoinFields(models.CoreFields),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			colors, err := palette.Set(cmd.Context(), c.store, models.Field(args[0]), args[1])
			if err != nil {
				return err
			}
			printColors(c.out, colors)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Args:  cobra.NoArgs,
		Short: "Restore the default palette",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := palette.Reset(cmd.Context(), c.store); err != nil {
				return err
			}
			printColors(c.out, models.DefaultColors())
			return nil
		},
	})
	return cmd
}

func printColors(w io.Writer, colors models.ColorAssignment) {
	for _, f := range models.CoreFields {
		fmt.Fprintf(w, "%-11s %s\n", f, colors.Color(f))
	}
}

func newAdviceCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advice",
		Short: "Ask for coaching advice and manage the saved copy",
	}

	var copyText, save bool
	ask := &cobra.Command{
		Use:   "ask",
		Short: "Ask the AI coach for advice on the complete record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.loadRecord()
			if err != nil {
				return err
			}
			modal := c.modal()

			fmt.Fprintln(c.out, cyan("Asking your coach…"))
			view, err := modal.Request(cmd.Context(), rec, false)
			if err != nil {
				return err
			}
			if err := c.printMarkdown(view.Text); err != nil {
				return err
			}

			if copyText {
				if _, err := modal.Copy(); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s copied to clipboard\n", green("✓"))
			}

			if !save {
				ok, err := c.confirm("Save this advice")
				if err != nil || !ok {
					return err
				}
			}
			return c.saveAdvice(cmd.Context(), modal)
		},
	}
	ask.Flags().BoolVar(&copyText, "copy", false, "Copy the advice to the clipboard")
	ask.Flags().BoolVar(&save, "save", false, "Save without asking")
	cmd.AddCommand(ask)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show the saved advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.modal().ShowHistory(cmd.Context(), false)
			if err != nil {
				return err
			}
			return c.printMarkdown(view.Text)
		},
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the saved advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modal := c.modal()
			err := modal.Delete(cmd.Context(), yes)
			if apperr.Is(err, apperr.KindConfirmationRequired) {
				ok, cerr := c.confirm(apperr.MessageOf(err))
				if cerr != nil || !ok {
					return cerr
				}
				err = modal.Delete(cmd.Context(), true)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s saved advice deleted\n", green("✓"))
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(del)

	return cmd
}

func (c *CLI) modal() *advice.Modal {
	return advice.NewModal(c.gen, c.store,
		advice.WithClipboard(c.clip),
		advice.WithTimeout(c.timeout),
		advice.WithLogger(c.logger),
	)
}

// saveAdvice asks before replacing an existing saved entry.
func (c *CLI) saveAdvice(ctx context.Context, modal *advice.Modal) error {
	err := modal.Save(ctx, false)
	if apperr.Is(err, apperr.KindConfirmationRequired) {
		ok, cerr := c.confirm(apperr.MessageOf(err))
		if cerr != nil || !ok {
			return cerr
		}
		err = modal.Save(ctx, true)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s advice saved\n", green("✓"))
	return nil
}
