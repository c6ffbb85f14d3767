package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/s3drop/internal/filetype"
	"github.com/abdul-hamid-achik/s3drop/internal/output"
	"github.com/abdul-hamid-achik/s3drop/internal/upload"
	"github.com/spf13/cobra"
)

type uploadFlags struct {
	key      string
	mimeType string
	fileType string
	signed   bool
	dryRun   bool
	parallel int
}

// UploadResult is one line of the --json summary.
type UploadResult struct {
	File      string `json:"file"`
	Key       string `json:"key,omitempty"`
	URL       string `json:"url,omitempty"`
	SignedURL string `json:"signedUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

type UploadSummary struct {
	Uploaded   []UploadResult `json:"uploaded"`
	Failed     []UploadResult `json:"failed,omitempty"`
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	DryRun     bool           `json:"dryRun,omitempty"`
}

func newUploadCmd(a *app) *cobra.Command {
	f := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Upload files to the configured bucket",
		Long: `Upload one or more PNG, JPEG or PDF files.

Keys are generated as <uuid>.<type> under the configured folder unless --key
is given. The MIME type is taken from --mime, then the file extension, then
the file contents.

Examples:
  s3drop upload photo.png                  # Generated key
  s3drop upload scan.jpg --key avatar      # Explicit key
  s3drop upload *.pdf --signed             # Several files, presigned
  s3drop upload photo.png --dry-run        # Validate without uploading`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.key, "key", "k", "", "Object key (single file only)")
	cmd.Flags().StringVar(&f.mimeType, "mime", "", "MIME type of the file(s)")
	cmd.Flags().StringVarP(&f.fileType, "type", "t", "", "File type used when it cannot be inferred (png, jpeg, jpg, pdf)")
	cmd.Flags().BoolVarP(&f.signed, "signed", "s", false, "Also return a signed URL")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Validate and print results without contacting the provider")
	cmd.Flags().IntVarP(&f.parallel, "parallel", "p", 4, "Parallel uploads")

	return cmd
}

func runUpload(cmd *cobra.Command, a *app, f *uploadFlags, files []string) error {
	if f.key != "" && len(files) > 1 {
		return errors.New("--key can only be used with a single file")
	}
	if f.parallel < 1 {
		f.parallel = 1
	}

	b, name, err := a.backend(f.dryRun)
	if err != nil {
		return err
	}

	ctx := a.context(cmd)
	opts := upload.Options{
		Key:            f.key,
		FetchSignedURL: f.signed,
		FileType:       filetype.FileType(f.fileType),
	}

	if f.dryRun {
		a.printer.Warn("Dry run: nothing is sent to %s", a.cfg.Provider)
	}
	a.printer.Info("Uploading %d file(s) via %s", len(files), name)

	results := make([]UploadResult, len(files))
	sem := make(chan struct{}, f.parallel)
	var wg sync.WaitGroup

	progress := output.NewProgress(len(files),
		output.ProgressWithQuiet(a.quietMode || a.jsonOutput || len(files) == 1),
		output.ProgressWithOutput(a.errOut))

	for i, path := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = uploadOne(ctx, b, path, f.mimeType, opts)
			if results[i].Error != "" {
				progress.Done(errors.New(results[i].Error))
				return
			}
			progress.Done(nil)
		}()
	}

	wg.Wait()
	progress.Finish()

	summary := UploadSummary{Total: len(files), DryRun: f.dryRun, Uploaded: []UploadResult{}}
	for _, r := range results {
		if r.Error != "" {
			summary.Failed = append(summary.Failed, r)
			a.printer.FileFailed(r.File, errors.New(r.Error))
			continue
		}
		summary.Uploaded = append(summary.Uploaded, r)
		a.printer.FileUploaded(r.File, r.URL, r.SignedURL)
	}
	summary.Successful = len(summary.Uploaded)

	if a.jsonOutput {
		if err := a.printer.JSON(summary); err != nil {
			return err
		}
	} else if len(files) > 1 {
		table := a.printer.Table("File", "Key")
		for _, r := range summary.Uploaded {
			table.Append(filepath.Base(r.File), r.Key)
		}
		a.printer.Println()
		table.Render()
		a.printer.Summary(summary.Successful, len(summary.Failed))
	}

	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(summary.Failed), len(files))
	}
	return nil
}

func uploadOne(ctx context.Context, b backend, path, mimeType string, opts upload.Options) UploadResult {
	r := UploadResult{File: path}

	mt, err := detectMIME(path, mimeType)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	res, err := b.Upload(ctx, upload.File{Path: path, MIMEType: mt}, opts)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	r.Key = res.Key
	r.URL = res.URL
	r.SignedURL = res.SignedURL
	return r
}

// detectMIME prefers the explicit flag, then the extension, then sniffing
// the first 512 bytes.
func detectMIME(path, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt, nil
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}
