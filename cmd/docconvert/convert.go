package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docconvert/internal/client"
	"github.com/pdiddy/docconvert/internal/convert"
	"github.com/pdiddy/docconvert/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert files between DOCX and PDF",
	Long: `Convert turns Word documents into PDF (--to word_to_pdf) or PDF documents
into Word (--to pdf_to_word). Files are converted with the configured local
or container backend, or uploaded to a running server with --server.

Outputs are written next to each input, or into --out. Existing outputs are
skipped unless --force is given.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("to", "", "conversion: word_to_pdf or pdf_to_word")
	convertCmd.Flags().String("out", "", "output directory (default: next to each input)")
	convertCmd.Flags().Bool("force", false, "overwrite existing outputs")
	convertCmd.Flags().String("server", "", "convert through a running server at this URL")
	convertCmd.Flags().String("backend", "", "conversion backend for local runs: local or container")
	_ = convertCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more files to convert")
	}

	to, _ := cmd.Flags().GetString("to")
	kind, err := types.ParseConversion(to)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := newLogger(cfg.Log); err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")
	opts := convert.BatchOptions{
		OutDir:   outDir,
		WorkRoot: cfg.Conversion.WorkRoot,
		Force:    force,
	}

	var result convert.BatchResult
	if serverURL, _ := cmd.Flags().GetString("server"); serverURL != "" {
		c := client.New(serverURL)
		c.APIKey = cfg.Server.APIKey
		result = convertRemote(cmd.Context(), c, kind, args, opts, os.Stdout)
	} else {
		if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
			cfg.Conversion.Backend = types.ConversionBackend(backend)
		}
		runner, err := newRunner(cmd.Context(), cfg.Conversion)
		if err != nil {
			return err
		}
		d := convert.NewDispatcher(runner, cfg.Conversion)
		result = convert.ConvertBatch(cmd.Context(), d, kind, args, opts, os.Stdout)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

// convertRemote uploads each path to the server and stores the results the
// same way a local batch does.
func convertRemote(ctx context.Context, c *client.Client, kind types.Conversion, paths []string, opts convert.BatchOptions, w io.Writer) convert.BatchResult {
	var result convert.BatchResult
	for _, src := range paths {
		base := filepath.Base(src)
		dst := convert.OutputPath(kind, src, opts)

		if _, err := os.Stat(dst); err == nil && !opts.Force {
			fmt.Fprintf(w, "skipped: %s (%s exists)\n", base, dst)
			result.Skipped++
			continue
		}

		if err := download(dst, func(out io.Writer) error {
			_, err := c.Convert(ctx, src, kind, out)
			return err
		}); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
			result.Failed++
			continue
		}
		fmt.Fprintf(w, "converted: %s -> %s\n", base, dst)
		result.Converted++
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result
}

// download writes fetch's output to a temporary file beside dst and renames
// it into place only when fetch succeeds.
func download(dst string, fetch func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".docconvert-*")
	if err != nil {
		return fmt.Errorf("creating temporary output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fetch(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return os.Rename(tmp.Name(), dst)
}
