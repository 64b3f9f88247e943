package ws

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"mes_planner/internal/config"
)

// ErrOutsideRoot is returned for a requested path that resolves outside its
// allowed directory.
var ErrOutsideRoot = errors.New("path outside the allowed directory")

// Options restrict what a client may make the server read and write.
//
// Relative paths in requests resolve against the working directory, as
// they do on the command line, and must then lie inside the matching root.
// An empty root means the working directory.
type Options struct {
	ConfigDir string
	DataDir   string
	OutputDir string

	// AllowedOrigins lists extra browser origins (scheme://host[:port])
	// besides the server's own host. Requests without an Origin header
	// are not browsers and are accepted.
	AllowedOrigins []string
}

func (o Options) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range o.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// confine returns the absolute form of path if it lies inside root.
func confine(root, path string) (string, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := resolve(root)
	if err != nil {
		return "", err
	}
	abs, err := resolve(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// resolve makes path absolute and follows symlinks in its longest existing
// prefix.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rest := ""
	for dir := abs; ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, rest), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
	}
}

// confineConfig points the data and output paths of cfg at their confined
// absolute forms.
func (o Options) confineConfig(cfg *config.Config) error {
	data, err := confine(o.DataDir, cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("data.path: %w", err)
	}
	out, err := confine(o.OutputDir, cfg.Output.Dir)
	if err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	cfg.Data.Path, cfg.Output.Dir = data, out
	return nil
}
