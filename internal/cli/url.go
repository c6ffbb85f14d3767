package cli

import (
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/output"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/spf13/cobra"
)

func newURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <key>",
		Short: "Print the public URL of an object",
		Long: `Print the virtual-hosted URL of an object. Nothing is sent to the
provider; the URL only works when the object is publicly readable.

With --server the URL is built by the server from its own configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.backend(false)
			if err != nil {
				return err
			}

			u, err := b.URL(a.context(cmd), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printer.JSON(map[string]string{"key": args[0], "url": u})
			}
			a.printer.Println(u)
			return nil
		},
	}
}

func newSignCmd(a *app) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "sign <key>",
		Short: "Create a time-limited GET URL for an object",
		Long: `Presign a GET request for an object. The object does not need to exist.

Examples:
  s3drop sign avatars/8c1f.png
  s3drop sign report.pdf --expires 1h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := a.backend(false)
			if err != nil {
				return err
			}

			spinner := output.NewSpinner(a.errOut, "Signing...", a.quietMode || a.jsonOutput)
			signed, err := b.SignedURL(a.context(cmd), args[0],
				storage.SignOptions{ExpiresInSeconds: int(expires.Seconds())})
			spinner.Stop()
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.printer.JSON(map[string]string{"key": args[0], "signedUrl": signed})
			}
			a.printer.Println(signed)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&expires, "expires", "e", 0, "Lifetime of the URL (default: config expires_in_minutes or 15m)")
	return cmd
}
