//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// DefaultChecksumFunction is used to calculate artifact hashes.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// ExecutableFileMode is used for scripts and binaries placed into a package root.
	ExecutableFileMode os.FileMode = 0o755

	// RegularFileMode is used for configuration and documentation files.
	RegularFileMode os.FileMode = 0o644

	// DirectoryMode is used for every directory created in a package root.
	DirectoryMode os.FileMode = 0o755
)

var errHashUnavailable = errors.New("hash function unavailable")

// Checksum returns the DefaultChecksumFunction digest of data.
func Checksum(data []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// FileChecksum returns checksum bytes for a file using DefaultChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Checksum(contents)
}

// EncodeChecksum renders a checksum the way release manifests store it.
func EncodeChecksum(sum []byte) string {
	return base64.StdEncoding.EncodeToString(sum)
}

// InstallFile atomically replaces path with data and verifies the written
// contents against their checksum. Parent directories are created as needed.
func InstallFile(path string, data []byte, mode os.FileMode) error {
	sum, err := Checksum(data)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), DirectoryMode); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	// The updater swaps files by renaming, so the target has to exist.
	if _, err = os.Stat(path); errors.Is(err, os.ErrNotExist) {
		var target *os.File

		if target, err = os.Create(path); err != nil { //nolint:gosec // Path is built from the staging root.
			return fmt.Errorf("create %s: %w", path, err)
		}

		_ = target.Close()
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
		Checksum:   sum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("install %s: %w", path, err)
	}

	oldFileName := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	// TargetMode only applies to the replacement file, enforce it in case umask interfered.
	if err = os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	return nil
}
