package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	appDir         = "mangakit"
	defaultProfile = "Default"
	profileExt     = ".yaml"
)

var ErrNoProfile = errors.New("no profile selected")

// Root is the per-user config directory: %APPDATA% on Windows,
// $XDG_CONFIG_HOME, or ~/.config.
func Root() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, appDir)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appDir)
}

func ProfilesDir() string {
	return filepath.Join(Root(), "profiles")
}

func currentFile() string {
	return filepath.Join(Root(), "current_profile")
}

// ProfilePath is where the profile with label lives, whether or not it exists.
func ProfilePath(label string) string {
	return filepath.Join(ProfilesDir(), label+profileExt)
}

func ensureDirs() error {
	return os.MkdirAll(ProfilesDir(), 0755)
}

func checkLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("label cannot be empty")
	}
	if strings.ContainsAny(label, `/\`) {
		return fmt.Errorf("label %q must not contain path separators", label)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func CurrentLabel() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(currentFile())
	if os.IsNotExist(err) {
		return "", ErrNoProfile
	}
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(b))
	if label == "" {
		return "", ErrNoProfile
	}
	return label, nil
}

func ActiveProfilePath() (string, error) {
	label, err := CurrentLabel()
	if err != nil {
		return "", err
	}

	return ProfilePath(label), nil
}

type ProfileInfo struct {
	Label  string
	Path   string
	Active bool
}

func ListProfiles() ([]ProfileInfo, error) {
	if err := ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(ProfilesDir())
	if err != nil {
		return nil, err
	}

	active, _ := CurrentLabel()
	var out []ProfileInfo

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, profileExt) {
			continue
		}

		label := strings.TrimSuffix(name, profileExt)
		out = append(out, ProfileInfo{
			Label:  label,
			Path:   filepath.Join(ProfilesDir(), name),
			Active: label == active,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func SwitchProfile(label string) error {
	if err := checkLabel(label); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}

	if !exists(ProfilePath(label)) {
		return fmt.Errorf("profile %q does not exist", label)
	}

	return os.WriteFile(currentFile(), []byte(label), 0644)
}

// CreateProfile writes a profile holding the default settings.
func CreateProfile(label string) (string, error) {
	if err := checkLabel(label); err != nil {
		return "", err
	}
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path := ProfilePath(label)
	if exists(path) {
		return "", fmt.Errorf("profile %q already exists", label)
	}

	if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}

	return path, nil
}

func RenameProfile(oldLabel, newLabel string) error {
	if err := checkLabel(newLabel); err != nil {
		return err
	}
	if err := ensureDirs(); err != nil {
		return err
	}

	oldPath, newPath := ProfilePath(oldLabel), ProfilePath(newLabel)
	if !exists(oldPath) {
		return fmt.Errorf("profile %q does not exist", oldLabel)
	}
	if exists(newPath) {
		return fmt.Errorf("profile %q already exists", newLabel)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}

	if active, _ := CurrentLabel(); active == oldLabel {
		return os.WriteFile(currentFile(), []byte(newLabel), 0644)
	}

	return nil
}

// RemoveProfile deletes a profile. Removing the active one switches back
// to Default; Default itself cannot be removed.
func RemoveProfile(label string) (switched bool, err error) {
	if err := checkLabel(label); err != nil {
		return false, err
	}
	if label == defaultProfile {
		return false, errors.New("cannot remove the Default profile")
	}

	path := ProfilePath(label)
	if !exists(path) {
		return false, fmt.Errorf("profile %q does not exist", label)
	}

	if active, _ := CurrentLabel(); active == label {
		if err := SwitchProfile(defaultProfile); err != nil {
			return false, fmt.Errorf("failed switching to Default: %w", err)
		}
		switched = true
	}

	return switched, os.Remove(path)
}

// InitDefault creates the Default profile if needed and makes it active.
// It returns os.ErrExist when the profile was already there.
func InitDefault() (string, error) {
	if err := ensureDirs(); err != nil {
		return "", err
	}

	path := ProfilePath(defaultProfile)
	var existed error
	if exists(path) {
		existed = os.ErrExist
	} else if err := SaveYAML(DefaultConfig(), path); err != nil {
		return "", err
	}

	if err := os.WriteFile(currentFile(), []byte(defaultProfile), 0644); err != nil {
		return "", err
	}

	return path, existed
}
