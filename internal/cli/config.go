package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/s3drop/internal/config"
	"github.com/spf13/cobra"
)

// settable maps config keys to setters for `s3drop config set`.
var settable = map[string]func(c *config.Config, v string) error{
	"access_key_id":     func(c *config.Config, v string) error { c.AccessKeyID = v; return nil },
	"secret_access_key": func(c *config.Config, v string) error { c.SecretAccessKey = v; return nil },
	"region":            func(c *config.Config, v string) error { c.Region = v; return nil },
	"bucket":            func(c *config.Config, v string) error { c.Bucket = v; return nil },
	"folder":            func(c *config.Config, v string) error { c.Folder = v; return nil },
	"acl":               func(c *config.Config, v string) error { c.ACL = v; return nil },
	"endpoint":          func(c *config.Config, v string) error { c.Endpoint = v; return nil },
	"provider":          func(c *config.Config, v string) error { c.Provider = strings.ToLower(v); return nil },
	"log_level":         func(c *config.Config, v string) error { c.LogLevel = v; return nil },
	"expires_in_minutes": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid expires_in_minutes: %s", v)
		}
		c.ExpiresInMinutes = n
		return nil
	},
	"use_ssl": func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid use_ssl: %s", v)
		}
		c.UseSSL = b
		return nil
	},
	"port": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port: %s", v)
		}
		c.Port = n
		return nil
	},
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage s3drop configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the config file",
		Long: `Set a value in the config file. Environment overrides are not written.

Available keys:
  access_key_id, secret_access_key, region, bucket, folder, acl,
  expires_in_minutes, endpoint, use_ssl, provider, log_level, port`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolvedConfigPath()
			if err != nil {
				return err
			}
			a.printer.Println(path)
			return nil
		},
	})

	return configCmd
}

func runConfigShow(a *app) error {
	r := a.cfg.Redacted()
	if a.jsonOutput {
		return a.printer.JSON(r)
	}

	a.printer.Section("Storage")
	a.printer.KeyValue("Provider", r.Provider)
	a.printer.KeyValue("Access key", r.AccessKeyID)
	a.printer.KeyValue("Secret key", r.SecretAccessKey)
	a.printer.KeyValue("Region", r.Region)
	a.printer.KeyValue("Bucket", r.Bucket)
	if r.Folder != "" {
		a.printer.KeyValue("Folder", r.Folder)
	}
	if r.ACL != "" {
		a.printer.KeyValue("ACL", r.ACL)
	}
	if r.ExpiresInMinutes > 0 {
		a.printer.KeyValue("Signed URL expiry", fmt.Sprintf("%dm", r.ExpiresInMinutes))
	}
	if r.Endpoint != "" {
		a.printer.KeyValue("Endpoint", fmt.Sprintf("%s (ssl=%v)", r.Endpoint, r.UseSSL))
	}

	a.printer.Section("Server")
	a.printer.KeyValue("Port", strconv.Itoa(r.Port))
	a.printer.KeyValue("Max upload size", strconv.FormatInt(r.MaxUploadSize, 10))
	a.printer.KeyValue("Log level", r.LogLevel)
	a.printer.KeyValue("Tracing", strconv.FormatBool(r.TracingEnabled))

	return nil
}

func runConfigSet(a *app, key, value string) error {
	set, ok := settable[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	path, err := a.resolvedConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if key == "secret_access_key" || key == "access_key_id" {
		value = "(hidden)"
	}
	a.printer.Success("Set %s = %s", key, value)
	return nil
}

func (a *app) resolvedConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.Path()
}
