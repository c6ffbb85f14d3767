package cli

import (
	"github.com/abdul-hamid-achik/s3drop/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOutput {
				return a.printer.JSON(map[string]string{
					"version":   version.Version,
					"commit":    version.Commit,
					"buildDate": version.BuildDate,
				})
			}
			a.printer.Printf("s3drop %s\n", version.Full())
			return nil
		},
	}
}
