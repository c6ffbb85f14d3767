package upload

import (
	"strings"

	"github.com/abdul-hamid-achik/s3drop/internal/apperror"
	"github.com/abdul-hamid-achik/s3drop/internal/filetype"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
)

// configRules are checked in order; the first empty field is reported.
var configRules = []struct {
	field string
	value func(*storage.Config) string
}{
	{"accessKeyId", func(c *storage.Config) string { return c.AccessKeyID }},
	{"secretAccessKey", func(c *storage.Config) string { return c.SecretAccessKey }},
	{"region", func(c *storage.Config) string { return c.Region }},
	{"bucket", func(c *storage.Config) string { return c.Bucket }},
}

// normalizeConfig returns a whitespace-trimmed copy of cfg, or the first
// configuration violation.
func normalizeConfig(cfg *storage.Config) (*storage.Config, error) {
	if cfg == nil {
		return nil, apperror.Configuration("config", "is required")
	}

	c := *cfg
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	c.Region = strings.TrimSpace(c.Region)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Folder = strings.TrimSpace(c.Folder)
	c.ACL = strings.TrimSpace(c.ACL)
	c.Endpoint = strings.TrimSpace(c.Endpoint)

	for _, rule := range configRules {
		if rule.value(&c) == "" {
			return nil, apperror.Configuration(rule.field, "is required")
		}
	}
	if c.ExpiresInMinutes < 0 {
		return nil, apperror.Configuration("expiresInMinutes", "must not be negative")
	}

	return &c, nil
}

// ValidateConfig reports the first missing or invalid field of cfg.
func ValidateConfig(cfg *storage.Config) error {
	_, err := normalizeConfig(cfg)
	return err
}

// keyExtension is the text after the last dot, or the whole key when it has
// no dot.
func keyExtension(key string) string {
	return key[strings.LastIndex(key, ".")+1:]
}

func validateRequest(file File, opts Options) error {
	if opts.FileType != "" && !opts.FileType.Valid() {
		return apperror.Validation("invalid fileType: %s", opts.FileType)
	}

	if !filetype.IsSupportedMIME(file.MIMEType) {
		return apperror.Validation("unsupported file type %q: allowed types are %s",
			file.MIMEType, strings.Join(filetype.SupportedMIMETypes(), ", "))
	}

	// Rejects a caller key whose extension IS a supported type.
	// TODO: confirm with API consumers whether unsupported extensions were meant.
	if opts.Key != "" {
		if ext := keyExtension(opts.Key); ext != "" && filetype.FileType(ext).Valid() {
			return apperror.Validation("invalid file type in key name: %s", opts.Key)
		}
	}

	return nil
}

// resolveFileType picks the stored object's type: the MIME mapping first,
// then the caller key's extension, then the explicit option.
func resolveFileType(file File, opts Options) filetype.FileType {
	if ft, ok := filetype.FromMIME(file.MIMEType); ok {
		return ft
	}
	if opts.Key != "" {
		if ext := keyExtension(opts.Key); ext != "" {
			return filetype.FileType(ext)
		}
	}
	return opts.FileType
}
