package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfextract/internal/batch"
	"github.com/pdiddy/pdfextract/internal/figures"
	"github.com/pdiddy/pdfextract/pkg/types"
)

var textCmd = &cobra.Command{
	Use:   "text [pdfs...]",
	Short: "Dump the text layer of every page",
	Long: `Text reads the text blocks of each page, writes them to page<N>.txt and
full_text.txt, and prints a preview of every page.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runText,
}

func init() {
	textCmd.Flags().String("backend", string(types.LayoutPDF), "layout parser (pdf or poppler)")
	textCmd.Flags().String("output-dir", "text_output", "directory for the page text files")
	textCmd.Flags().String("poppler-image", defaultToolImage, "container image for pdftohtml when it is not installed")
	bindFlags(viper.GetViper(), textCmd, "text")

	rootCmd.AddCommand(textCmd)
}

func runText(cmd *cobra.Command, args []string) error {
	cfg, err := textConfig(viper.GetViper())
	if err != nil {
		return err
	}
	src, err := newLayoutSource(cfg.Backend, cfg.Tool)
	if err != nil {
		return err
	}

	w := os.Stdout
	_, err = batch.Run(cmd.Context(), args, cfg.OutputDir, w, func(ctx context.Context, pdfPath, outDir string) error {
		pages, err := figures.AllText(ctx, src, pdfPath)
		if err != nil {
			return err
		}
		return figures.WriteAllText(pages, outDir, w)
	})
	return err
}
