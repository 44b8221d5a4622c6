//go:build linux

package loginitem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	logx "notifnuke/pkg/logx"
)

// systemdRegistrar enables a systemd user unit written to ~/.config/systemd/user.
type systemdRegistrar struct {
	spec UnitSpec
	dir  string
	log  logx.Logger
}

// NewSystemd returns a registrar that manages spec as a systemd user unit.
func NewSystemd(spec UnitSpec, log logx.Logger) (Registrar, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating user config dir: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &systemdRegistrar{
		spec: spec,
		dir:  filepath.Join(cfgDir, "systemd", "user"),
		log:  log.With(logx.String("unit", spec.Name)),
	}, nil
}

func (r *systemdRegistrar) unitPath() string { return filepath.Join(r.dir, r.spec.Name) }

func (r *systemdRegistrar) Register(ctx context.Context) error {
	body, err := Render(r.spec)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(r.unitPath(), body); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd user manager: %w", err)
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd user daemon: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{r.spec.Name}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", r.spec.Name, err)
	}
	r.log.Debug("unit enabled", logx.String("path", r.unitPath()))
	return nil
}

func (r *systemdRegistrar) Unregister(ctx context.Context) error {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd user manager: %w", err)
	}
	defer conn.Close()

	if _, err := conn.DisableUnitFilesContext(ctx, []string{r.spec.Name}, false); err != nil && !isNoSuchUnitErr(err) {
		return fmt.Errorf("failed to disable %s: %w", r.spec.Name, err)
	}
	if err := os.Remove(r.unitPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing unit file: %w", err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("disabled %s but failed to reload systemd user daemon: %w", r.spec.Name, err)
	}
	r.log.Debug("unit disabled")
	return nil
}

func (r *systemdRegistrar) Enabled(ctx context.Context) (bool, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to connect to systemd user manager: %w", err)
	}
	defer conn.Close()

	files, err := conn.ListUnitFilesByPatternsContext(ctx, nil, []string{r.spec.Name})
	if err != nil {
		return false, fmt.Errorf("listing unit files: %w", err)
	}
	for _, f := range files {
		if f.Path == r.spec.Name || strings.HasSuffix(f.Path, "/"+r.spec.Name) {
			return f.Type == "enabled", nil
		}
	}
	return false, nil
}

func isNoSuchUnitErr(err error) bool {
	es := err.Error()
	return strings.Contains(es, "NoSuchUnit") || strings.Contains(es, "does not exist")
}

func writeFileAtomic(path string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".unit-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
