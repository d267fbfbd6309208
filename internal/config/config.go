package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"forum-sync/internal/sftpclient"
)

// ErrMissingToken is returned by Validate when no Canvas credential is configured.
var ErrMissingToken = errors.New("config: missing env CANVAS_TOKEN")

const DefaultCanvasBaseURL = "https://canvas.uautonoma.cl/api/v1"

type Config struct {
	// Canvas
	CanvasBaseURL     string
	CanvasToken       string
	CanvasTimeout     time.Duration
	CanvasMaxAttempts int

	// Forum payload rules (YAML). Empty means built-in rules.
	RulesFile string

	// Audit report upload
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool

	// Operator web form
	Listen string
}

func Load() Config {
	return Config{
		CanvasBaseURL:     strings.TrimRight(getenv("CANVAS_BASE_URL", DefaultCanvasBaseURL), "/"),
		CanvasToken:       strings.TrimSpace(getenv("CANVAS_TOKEN", os.Getenv("TOKEN"))),
		CanvasTimeout:     getenvDuration("CANVAS_TIMEOUT", 2*time.Minute),
		CanvasMaxAttempts: getenvInt("CANVAS_MAX_ATTEMPTS", 1),

		RulesFile: os.Getenv("FORUM_RULES_FILE"),

		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/"),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", false),

		Listen: getenv("LISTEN", ":8080"),
	}
}

// Validate fails fast on settings without which no run can start.
func (c Config) Validate() error {
	if c.CanvasToken == "" {
		return ErrMissingToken
	}
	return nil
}

// SFTP returns the upload settings for the audit report.
func (c Config) SFTP() sftpclient.Config {
	return sftpclient.Config{
		Host:                  c.SFTPHost,
		Port:                  c.SFTPPort,
		User:                  c.SFTPUser,
		Pass:                  c.SFTPPass,
		RemoteDir:             c.SFTPDir,
		KnownHostsFile:        c.SFTPKnownHosts,
		InsecureIgnoreHostKey: c.SFTPInsecureIgnoreHostKey,
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
