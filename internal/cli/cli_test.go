package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/api"
	"github.com/abdul-hamid-achik/s3drop/internal/config"
	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/abdul-hamid-achik/s3drop/internal/upload"
	"github.com/abdul-hamid-achik/s3drop/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedPNG = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\.png$`)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type harness struct {
	t          *testing.T
	configPath string
	memory     *storage.MemoryProvider
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv(config.EnvAccessKeyID, "AKIAEXAMPLE")
	t.Setenv(config.EnvSecretAccessKey, "supersecretvalue")
	t.Setenv(config.EnvRegion, "us-east-1")
	t.Setenv(config.EnvBucket, "my-bucket")
	t.Setenv(config.EnvFolder, "")
	t.Setenv(config.EnvProvider, "")
	t.Setenv(config.EnvLogLevel, "")

	return &harness{
		t:          t,
		configPath: filepath.Join(t.TempDir(), "config.yaml"),
		memory:     storage.NewMemoryProvider(),
	}
}

func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()

	cmd := NewRootCmd(
		WithOutput(&h.stdout, &h.stderr),
		WithProviderFactory(func(string) (storage.Provider, error) {
			return h.memory, nil
		}),
	)
	cmd.SetArgs(append([]string{"--config", h.configPath, "--env-file", "", "--no-color"}, args...))
	return cmd.Execute()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestUpload_DryRunJSON(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "photo.png", pngHeader)

	require.NoError(t, h.run("upload", file, "--dry-run", "--json"))

	var summary UploadSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Successful)
	assert.Empty(t, summary.Failed)
	require.Len(t, summary.Uploaded, 1)

	got := summary.Uploaded[0]
	assert.Equal(t, file, got.File)
	assert.Regexp(t, generatedPNG, got.Key)
	assert.Equal(t, "https://my-bucket.s3.us-east-1.amazonaws.com/"+got.Key, got.URL)
	assert.Empty(t, got.SignedURL)

	assert.Equal(t, 0, h.memory.Count(), "dry run must not touch the configured provider")
}

func TestUpload_ProviderAndSigned(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "scan.jpg", []byte{0xff, 0xd8, 0xff, 0xe0})

	require.NoError(t, h.run("upload", file, "--key", "avatar", "--signed", "--json"))

	var summary UploadSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))
	require.Len(t, summary.Uploaded, 1)

	got := summary.Uploaded[0]
	assert.Equal(t, "avatar", got.Key)
	assert.Equal(t, "https://my-bucket.s3.us-east-1.amazonaws.com/avatar", got.URL)
	assert.Contains(t, got.SignedURL, "X-Amz-Signature=")

	obj, ok := h.memory.Object("my-bucket", "avatar")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", obj.ContentType)
}

func TestUpload_MultipleFilesText(t *testing.T) {
	h := newHarness(t)
	a := writeFile(t, "a.png", pngHeader)
	b := writeFile(t, "b.pdf", []byte("%PDF-1.4\n"))

	require.NoError(t, h.run("upload", a, b, "--parallel", "2"))

	out := h.stdout.String()
	assert.Contains(t, out, "a.png")
	assert.Contains(t, out, "b.pdf")
	assert.Contains(t, out, "2/2 uploaded successfully")
	assert.Equal(t, 2, h.memory.Count())
}

func TestUpload_KeyWithMultipleFiles(t *testing.T) {
	h := newHarness(t)
	a := writeFile(t, "a.png", pngHeader)
	b := writeFile(t, "b.png", pngHeader)

	err := h.run("upload", a, b, "--key", "shared")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--key can only be used with a single file")
	assert.Equal(t, 0, h.memory.Count())
}

func TestUpload_UnsupportedTypeFails(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, "anim.gif", []byte("GIF89a"))

	err := h.run("upload", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 uploads failed")
	assert.Contains(t, h.stderr.String(), "unsupported file type")
	assert.Equal(t, 0, h.memory.Count())
}

func TestUpload_MissingConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvBucket, "")
	file := writeFile(t, "photo.png", pngHeader)

	err := h.run("upload", file, "--json")
	require.Error(t, err)

	var summary UploadSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))
	require.Len(t, summary.Failed, 1)
	assert.Contains(t, summary.Failed[0].Error, "bucket")
}

func TestDetectMIME(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		mt, err := detectMIME("whatever.gif", "image/png")
		require.NoError(t, err)
		assert.Equal(t, "image/png", mt)
	})

	t.Run("extension is case-insensitive", func(t *testing.T) {
		mt, err := detectMIME("/nonexistent/PHOTO.PNG", "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", mt)
	})

	t.Run("sniffs content without extension", func(t *testing.T) {
		path := writeFile(t, "document", []byte("%PDF-1.7\n%binary"))
		mt, err := detectMIME(path, "")
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mt)
	})

	t.Run("unreadable file without extension", func(t *testing.T) {
		_, err := detectMIME(filepath.Join(t.TempDir(), "missing"), "")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestURLCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("url", "avatars/x.png"))
	assert.Equal(t, "https://my-bucket.s3.us-east-1.amazonaws.com/avatars/x.png\n", h.stdout.String())

	require.NoError(t, h.run("url", "avatars/x.png", "--json"))
	var got map[string]string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, "avatars/x.png", got["key"])
	assert.Equal(t, "https://my-bucket.s3.us-east-1.amazonaws.com/avatars/x.png", got["url"])
}

func TestURLCommand_MissingRegion(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvRegion, "")

	err := h.run("url", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "region")
}

func TestSignCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("sign", "report.pdf", "--expires", "1h", "--json"))

	var got map[string]string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, "report.pdf", got["key"])
	assert.Contains(t, got["signedUrl"], "X-Amz-Expires=3600")
	assert.Contains(t, got["signedUrl"], "/report.pdf?")
}

func TestSignCommand_DefaultExpiry(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("sign", "report.pdf", "--quiet"))
	assert.Empty(t, h.stdout.String(), "quiet suppresses the URL line")

	require.NoError(t, h.run("sign", "report.pdf"))
	assert.Contains(t, h.stdout.String(), "X-Amz-Expires=900")
}

func TestConfigSetAndShow(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("config", "set", "folder", "avatars"))
	assert.Contains(t, h.stdout.String(), "Set folder = avatars")

	require.NoError(t, h.run("config", "set", "secret_access_key", "file-secret"))
	assert.NotContains(t, h.stdout.String(), "file-secret")

	saved, err := config.LoadFile(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, "avatars", saved.Folder)
	assert.Equal(t, "file-secret", saved.SecretAccessKey)
	assert.Empty(t, saved.Bucket, "environment overrides are not persisted")

	info, err := os.Stat(h.configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, h.run("config", "show", "--json"))
	var shown config.Config
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &shown))
	assert.Equal(t, "avatars", shown.Folder)
	assert.Equal(t, "my-bucket", shown.Bucket)
	assert.NotEqual(t, "supersecretvalue", shown.SecretAccessKey)
	assert.NotContains(t, h.stdout.String(), "supersecretvalue")
}

func TestConfigSet_Errors(t *testing.T) {
	h := newHarness(t)

	err := h.run("config", "set", "colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")

	err = h.run("config", "set", "port", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")

	err = h.run("config", "set", "provider", "gcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid provider")

	_, statErr := os.Stat(h.configPath)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "invalid values are never saved")
}

func TestConfigPath(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("config", "path"))
	assert.Equal(t, h.configPath+"\n", h.stdout.String())
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("version"))
	assert.Equal(t, "s3drop "+version.Full()+"\n", h.stdout.String())

	require.NoError(t, h.run("version", "--json"))
	var got map[string]string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, version.Version, got["version"])
}

func TestProviderFlag(t *testing.T) {
	h := newHarness(t)

	err := h.run("serve", "--provider", "gcs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestServe_InvalidConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvLogLevel, "loud")

	err := h.run("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, server, ln, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestHelpListsCommands(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("--help"))
	out := h.stdout.String()
	for _, name := range []string{"upload", "url", "sign", "serve", "config", "version"} {
		assert.True(t, strings.Contains(out, name), "help should list %s", name)
	}
}

func TestServerFlag(t *testing.T) {
	h := newHarness(t)
	t.Setenv(config.EnvBucket, "local-bucket")

	remote := storage.NewMemoryProvider()
	srv := httptest.NewServer(api.NewRouter(&api.Config{
		Uploader: upload.New(remote),
		Storage: &storage.Config{
			AccessKeyID:     "AKIAREMOTE",
			SecretAccessKey: "remote-secret",
			Region:          "eu-west-1",
			Bucket:          "remote-bucket",
		},
	}))
	defer srv.Close()

	file := writeFile(t, "photo.png", pngHeader)
	require.NoError(t, h.run("upload", file, "--server", srv.URL, "--json"))

	var summary UploadSummary
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &summary))
	require.Len(t, summary.Uploaded, 1)
	key := summary.Uploaded[0].Key
	assert.Regexp(t, generatedPNG, key)
	assert.Equal(t, "https://remote-bucket.s3.eu-west-1.amazonaws.com/"+key, summary.Uploaded[0].URL)

	_, ok := remote.Object("remote-bucket", key)
	assert.True(t, ok)
	assert.Equal(t, 0, h.memory.Count(), "local provider is bypassed")

	require.NoError(t, h.run("url", key, "--server", srv.URL))
	assert.Equal(t, "https://remote-bucket.s3.eu-west-1.amazonaws.com/"+key+"\n", h.stdout.String())

	require.NoError(t, h.run("sign", key, "--server", srv.URL, "--expires", "2m"))
	assert.Contains(t, h.stdout.String(), "X-Amz-Expires=120")
}
