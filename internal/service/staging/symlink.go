package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/mesos-packager/internal/service/common"
)

// ErrSharedLibraryMissing is returned when the versioned library was not installed.
var ErrSharedLibraryMissing = errors.New("versioned shared library is missing")

// SharedLibrary returns the unversioned and versioned library file names.
func SharedLibrary(name, version string) (link, target string) {
	return "lib" + name + ".so", "lib" + name + "-" + version + ".so"
}

// LinkSharedLibrary points usr/lib/lib<name>.so at usr/lib/lib<name>-<version>.so.
// An existing link is left alone; created reports whether a link was made.
func LinkSharedLibrary(root, name, version string) (created bool, err error) {
	linkName, targetName := SharedLibrary(name, version)
	libDir := filepath.Join(root, "usr", "lib")

	if _, err = os.Stat(filepath.Join(libDir, targetName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrSharedLibraryMissing, targetName)
		}

		return false, fmt.Errorf("stat %s: %w", targetName, err)
	}

	return symlink(targetName, filepath.Join(libDir, linkName))
}

// LinkCompatLibDir makes usr/local/lib a relative link to usr/lib for
// consumers that still look there.
func LinkCompatLibDir(root string) (bool, error) {
	localDir := filepath.Join(root, "usr", "local")
	if err := os.MkdirAll(localDir, common.DirectoryMode); err != nil {
		return false, fmt.Errorf("create %s: %w", localDir, err)
	}

	return symlink(filepath.Join("..", "lib"), filepath.Join(localDir, "lib"))
}

func symlink(target, link string) (bool, error) {
	if _, err := os.Lstat(link); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", link, err)
	}

	if err := os.Symlink(target, link); err != nil {
		return false, fmt.Errorf("link %s: %w", link, err)
	}

	return true, nil
}
