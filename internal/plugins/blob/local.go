package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// Local keeps uploads in a directory served back under PublicBase.
type Local struct {
	dir        string
	publicBase string
}

func NewLocal(dir, publicBase string) (*Local, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload dir %s", dir)
	}
	if publicBase == "" {
		publicBase = "/uploads"
	}
	return &Local{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Put(_ context.Context, p *domain.Photo) error {
	name := ObjectName(p.Filename, p.ContentType)
	if err := os.WriteFile(filepath.Join(l.dir, name), p.Content, 0o644); err != nil {
		return errors.Wrapf(err, "save upload %s", name)
	}
	p.Key = name
	p.URL = l.publicBase + "/" + name
	return nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if !ValidName(key) {
		return errors.Errorf("invalid upload name %q", key)
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Path resolves a served upload name to its file, rejecting traversal.
func (l *Local) Path(name string) (string, bool) {
	if !ValidName(name) {
		return "", false
	}
	path := filepath.Join(l.dir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}
