package loginitem

import (
	"errors"
	"io"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
)

// UnitSpec describes the systemd user service that launches notifnuke.
type UnitSpec struct {
	Name        string // e.g. notifnuke.service
	Description string
	Exec        string
	Args        []string
}

// Render serializes spec as a unit file.
func Render(spec UnitSpec) ([]byte, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("unit name is required")
	}
	if strings.TrimSpace(spec.Exec) == "" {
		return nil, errors.New("unit exec path is required")
	}
	cmd := make([]string, 0, len(spec.Args)+1)
	for _, a := range append([]string{spec.Exec}, spec.Args...) {
		cmd = append(cmd, quoteExecArg(a))
	}
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", spec.Description),
		unit.NewUnitOption("Unit", "PartOf", "graphical-session.target"),
		unit.NewUnitOption("Unit", "After", "graphical-session.target"),
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", strings.Join(cmd, " ")),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", "5"),
		unit.NewUnitOption("Install", "WantedBy", "graphical-session.target"),
	}
	return io.ReadAll(unit.Serialize(opts))
}

// quoteExecArg applies systemd's double-quote rules to arguments that need them.
func quoteExecArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\$%;") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `$$`, `%`, `%%`)
	return `"` + r.Replace(s) + `"`
}
