package cli

import (
	"context"
	"io"
	"os"

	"github.com/abdul-hamid-achik/s3drop/internal/client"
	"github.com/abdul-hamid-achik/s3drop/internal/config"
	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/abdul-hamid-achik/s3drop/internal/metrics"
	"github.com/abdul-hamid-achik/s3drop/internal/output"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/abdul-hamid-achik/s3drop/internal/tracing"
	"github.com/abdul-hamid-achik/s3drop/internal/upload"
	"github.com/abdul-hamid-achik/s3drop/internal/version"
	"github.com/spf13/cobra"
)

// app holds the state shared by every command of one invocation.
type app struct {
	jsonOutput bool
	quietMode  bool
	noColor    bool
	verbose    bool
	configPath string
	envFile    string
	provider   string
	server     string

	cfg     *config.Config
	printer *output.Printer

	out    io.Writer
	errOut io.Writer

	// newProvider builds the storage backend for a provider name.
	newProvider func(name string) (storage.Provider, error)
}

type Option func(*app)

func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

func WithProviderFactory(fn func(name string) (storage.Provider, error)) Option {
	return func(a *app) {
		a.newProvider = fn
	}
}

func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		out:         os.Stdout,
		errOut:      os.Stderr,
		newProvider: storage.New,
	}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "s3drop",
		Short: "s3drop - upload files to S3 and hand out URLs",
		Long: `s3drop uploads PNG, JPEG and PDF files to an S3 bucket and returns the
object's public URL and, on request, a time-limited signed URL.

Get started:
  s3drop config set bucket my-bucket     # Configure the target bucket
  s3drop upload photo.png                # Upload a file
  s3drop upload report.pdf --signed      # Upload and presign
  s3drop serve                           # Run the HTTP API`,
		Version: version.Full(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&a.jsonOutput, "json", false, "Output as JSON (for scripting)")
	flags.BoolVar(&a.quietMode, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.config/s3drop/config.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file to load")
	flags.StringVar(&a.provider, "provider", "", "Storage backend: minio or aws")
	flags.StringVar(&a.server, "server", "", "Send upload, sign and url through a running s3drop server at this URL")

	rootCmd.SetVersionTemplate("s3drop version {{.Version}}\n")

	rootCmd.AddCommand(newUploadCmd(a))
	rootCmd.AddCommand(newURLCmd(a))
	rootCmd.AddCommand(newSignCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup(cmd *cobra.Command) error {
	a.printer = output.New(
		output.WithJSON(a.jsonOutput),
		output.WithQuiet(a.quietMode),
		output.WithNoColor(a.noColor),
		output.WithOutput(a.out),
		output.WithErrOutput(a.errOut),
	)

	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}

	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			path = ""
		}
	}

	cfg, err := config.LoadFrom(path, a.envFile)
	if err != nil {
		return err
	}
	if a.provider != "" {
		cfg.Provider = a.provider
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger.Init(a.errOut, level, logger.FormatText)

	return nil
}

// uploader wraps the provider with metrics and tracing the same way for the
// CLI and the server.
func (a *app) uploader(dryRun bool) (*upload.Uploader, string, error) {
	name := a.cfg.Provider
	var p storage.Provider
	if dryRun {
		name = storage.ProviderMemory
		p = storage.NewMemoryProvider()
	} else {
		var err error
		if p, err = a.newProvider(name); err != nil {
			return nil, "", err
		}
	}

	p = metrics.NewInstrumentedProvider(tracing.NewTracedProvider(p, name))
	return upload.New(p), name, nil
}

// backend is what upload, sign and url run against: the provider directly or
// a remote s3drop server.
type backend interface {
	Upload(ctx context.Context, file upload.File, opts upload.Options) (*upload.Result, error)
	SignedURL(ctx context.Context, key string, opts storage.SignOptions) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type localBackend struct {
	uploader *upload.Uploader
	cfg      *storage.Config
}

func (b *localBackend) Upload(ctx context.Context, file upload.File, opts upload.Options) (*upload.Result, error) {
	return b.uploader.Upload(ctx, b.cfg, file, opts)
}

func (b *localBackend) SignedURL(ctx context.Context, key string, opts storage.SignOptions) (string, error) {
	return b.uploader.SignedURL(ctx, b.cfg, key, opts)
}

func (b *localBackend) URL(ctx context.Context, key string) (string, error) {
	if err := upload.ValidateConfig(b.cfg); err != nil {
		return "", err
	}
	return upload.UnsignedURL(b.cfg, key), nil
}

// backend returns the remote client when --server is set and this is not a
// dry run. The name describes the target for status output.
func (a *app) backend(dryRun bool) (backend, string, error) {
	if a.server != "" && !dryRun {
		c := client.New(a.server)
		return c, c.BaseURL(), nil
	}

	uploader, name, err := a.uploader(dryRun)
	if err != nil {
		return nil, "", err
	}
	return &localBackend{uploader: uploader, cfg: a.cfg.Storage()}, name, nil
}

func (a *app) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithLogger(ctx, logger.Default())
}
