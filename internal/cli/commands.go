package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gompdf/pagedit/internal/server"
	"github.com/gompdf/pagedit/internal/store"
	"github.com/gompdf/pagedit/pkg/api"
)

// openInput opens path, or stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// writeOutput creates path (stdout for "" or "-") and hands it to fn.
func writeOutput(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// isMarkup reports whether path holds pagedit markup rather than a file
// to import.
func isMarkup(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", "":
		return true
	}
	return false
}

// loadInto reads path into e, through the importer when it is not markup.
func loadInto(ctx context.Context, cmd *cobra.Command, e *api.Editor, path string) error {
	in, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer in.Close()

	logger := loggerFromContext(ctx)
	if path == "-" || isMarkup(path) {
		rep, err := e.Load(ctx, in)
		if err != nil {
			return err
		}
		for _, d := range rep.Dropped {
			logger.Warn("Dropped block", "page", d.Page, "kind", d.Kind)
		}
		return nil
	}
	n, err := e.Import(in, path)
	if err != nil {
		return err
	}
	logger.Debug("Imported blocks", "file", path, "blocks", n)
	return nil
}

func newReflowCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "reflow [file]",
		Short: "Repaginate a saved document",
		Long:  `Load a saved document ("-" for stdin), normalize its blocks, paginate every page and write the result.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))
			e, err := newEditor(ctx)
			if err != nil {
				return err
			}
			if err := loadInto(ctx, cmd, e, args[0]); err != nil {
				return err
			}
			if err := writeOutput(cmd, output, e.Save); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Reflowed %d pages", e.PageCount()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newPDFCmd() *cobra.Command {
	var (
		output string
		title  string
	)
	cmd := &cobra.Command{
		Use:   "pdf [file]",
		Short: "Export a document to PDF",
		Long:  `Load a saved document, or import a .md, .txt, .docx or .pdf file, paginate it and render one PDF page per document page.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))
			e, err := newEditor(ctx)
			if err != nil {
				return err
			}
			if err := loadInto(ctx, cmd, e, args[0]); err != nil {
				return err
			}
			if title != "" {
				e.SetTitle(title)
			}
			if output == "" && args[0] != "-" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".pdf"
			}
			err = writeOutput(cmd, output, func(w io.Writer) error {
				return e.ExportPDF(ctx, w)
			})
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Exported %d pages to %s", e.PageCount(), outputName(output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <input>.pdf)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "PDF title")
	return cmd
}

func newImportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Convert a document to paginated markup",
		Long:  `Import a .md, .txt, .html, .docx or .pdf file as blocks, paginate them and write pagedit markup.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prog := newProgress(loggerFromContext(ctx))
			e, err := newEditor(ctx)
			if err != nil {
				return err
			}
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			n, err := e.Import(in, args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = e.FileName()
			}
			if err := writeOutput(cmd, output, e.Save); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Imported %d blocks on %d pages to %s", n, e.PageCount(), outputName(output)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout, default <title>.html)`)
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFromContext(ctx)
			logger := loggerFromContext(ctx)
			if addr == "" {
				addr = cfg.Server.Addr
			}

			st, err := store.NewFileStore(cfg.Store.Dir)
			if err != nil {
				return err
			}
			opts, err := cfg.Options()
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.NewServer(st, logger, cfg.Server.MaxUploadBytes, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("Listening", "addr", addr, "store", cfg.Store.Dir)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdown); err != nil {
				return err
			}
			if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}
