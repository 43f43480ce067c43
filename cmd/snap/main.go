// Command snap uploads a fridge photo to a running server and writes the
// resulting page, the same view the browser shows, as HTML.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pageza/fridgechef/backend/internal/controller"
	"github.com/pageza/fridgechef/backend/internal/logging"
	"github.com/pageza/fridgechef/backend/internal/render"
)

type options struct {
	server   string
	out      string
	timeout  time.Duration
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "snap <photo>",
		Short:        "Analyze a fridge photo and render the suggested recipes as HTML",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel, false)
			return run(cmd.Context(), opts, args[0], cmd.OutOrStdout(), log)
		},
	}

	cmd.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "base URL of the fridgechef server")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "file to write the page to, - for stdout")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "how long to wait for the analysis")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	return cmd
}

func run(ctx context.Context, opts *options, path string, stdout io.Writer, log logrus.FieldLogger) error {
	upload, err := readUpload(path)
	if err != nil {
		return err
	}

	c := controller.New(opts.server, &http.Client{Timeout: opts.timeout}, log)
	submitErr := c.Submit(ctx, upload)

	// The page is written either way; on failure it carries the failure status.
	if err := writePage(opts.out, stdout, c.View()); err != nil {
		return err
	}
	if submitErr != nil {
		return fmt.Errorf("analysis failed: %w", submitErr)
	}
	return nil
}

func readUpload(path string) (*controller.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("photo is empty")
	}
	return &controller.Upload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func writePage(out string, stdout io.Writer, view render.PageData) error {
	if out == "-" {
		return render.Page(stdout, view)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := render.Page(w, view); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write page: %w", err)
	}
	return f.Close()
}
