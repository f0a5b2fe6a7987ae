package staging

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/service/common"
)

// ErrUnknownInitVariant is returned for an init variant with no file layout.
var ErrUnknownInitVariant = errors.New("unknown init variant")

// InitFile is one init-system integration file placed in the staging root.
type InitFile struct {
	// Path is relative to the staging root, with forward slashes.
	Path string
	// Role is master or slave.
	Role string
	// Mode is the file permission.
	Mode os.FileMode

	template string
}

type initLayout struct {
	template string
	mode     os.FileMode
	path     func(name, role string) string
}

//nolint:gochecknoglobals // Read-only lookup tables.
var (
	roles = []string{"master", "slave"}

	initLayouts = map[policy.InitVariant]*initLayout{
		policy.InitSysV: {
			template: "sysv.tmpl",
			mode:     common.ExecutableFileMode,
			path: func(name, role string) string {
				return path.Join("etc/init.d", name+"-"+role)
			},
		},
		policy.InitUpstart: {
			template: "upstart.tmpl",
			mode:     common.RegularFileMode,
			path: func(name, role string) string {
				return path.Join("etc/init", name+"-"+role+".conf")
			},
		},
		policy.InitSystemd: {
			template: "systemd.tmpl",
			mode:     common.RegularFileMode,
			path: func(name, role string) string {
				return path.Join("usr/lib/systemd/system", name+"-"+role+".service")
			},
		},
		policy.InitNone: nil,
	}
)

// InitFiles returns the files placed for variant. InitNone yields no files,
// any variant without a layout is an error.
func InitFiles(variant policy.InitVariant, name string) ([]InitFile, error) {
	layout, ok := initLayouts[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInitVariant, variant)
	}

	if layout == nil {
		return nil, nil
	}

	files := make([]InitFile, 0, len(roles))
	for _, role := range roles {
		files = append(files, InitFile{
			Path:     layout.path(name, role),
			Role:     role,
			Mode:     layout.mode,
			template: layout.template,
		})
	}

	return files, nil
}
