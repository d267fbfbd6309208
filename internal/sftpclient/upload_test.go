package sftpclient

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{Host: "h", User: "u"}.Enabled())
	assert.True(t, Config{Host: "h", User: "u", Pass: "p"}.Enabled())
}

func TestHostKeyCallback(t *testing.T) {
	_, err := hostKeyCallback(Config{})
	require.ErrorIs(t, err, errNoHostKeyPolicy)

	cb, err := hostKeyCallback(Config{InsecureIgnoreHostKey: true})
	require.NoError(t, err)
	assert.NotNil(t, cb)

	_, err = hostKeyCallback(Config{KnownHostsFile: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftp: known_hosts")

	kh := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(kh, nil, 0o600))
	cb, err = hostKeyCallback(Config{KnownHostsFile: kh})
	require.NoError(t, err)
	assert.NotNil(t, cb)
}

func TestUploadFileValidation(t *testing.T) {
	ctx := context.Background()

	tbl := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing credentials",
			cfg:     Config{},
			wantErr: "sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS",
		},
		{
			name:    "no host key policy",
			cfg:     Config{Host: "test-host", User: "test-user", Pass: "test-pass"},
			wantErr: errNoHostKeyPolicy.Error(),
		},
		{
			name:    "unreachable host",
			cfg:     Config{Host: "127.0.0.1", Port: 1, User: "test-user", Pass: "test-pass", InsecureIgnoreHostKey: true},
			wantErr: "sftp: dial error",
		},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			err := UploadFile(ctx, tt.cfg, "report.csv", "report.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploadFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Host: "10.255.255.1", User: "u", Pass: "p", InsecureIgnoreHostKey: true}
	err := UploadFile(ctx, cfg, "report.csv", "report.csv")
	require.Error(t, err)
}

type closeFailWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (w *closeFailWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestCopyAndClose(t *testing.T) {
	ok := &closeFailWriter{}
	require.NoError(t, copyAndClose(ok, strings.NewReader("a,b\r\n")))
	assert.Equal(t, "a,b\r\n", ok.String())
	assert.True(t, ok.closed)

	failing := &closeFailWriter{closeErr: errors.New("write quota exceeded")}
	err := copyAndClose(failing, strings.NewReader("a,b\r\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftp: close remote file: write quota exceeded")

	broken := &closeFailWriter{}
	err = copyAndClose(broken, iotest.ErrReader(errors.New("disk gone")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sftp: upload copy")
	assert.True(t, broken.closed)
}
