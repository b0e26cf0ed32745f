package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Folder picker commands
const (
	OsascriptCommand  = "osascript"
	PowershellCommand = "powershell"
	ZenityCommand     = "zenity"
	KDialogCommand    = "kdialog"
)

const (
	macOSPickerScript   = `POSIX path of (choose folder with prompt "Select download folder")`
	windowsPickerScript = `Add-Type -AssemblyName System.Windows.Forms; ` +
		`$d = New-Object System.Windows.Forms.FolderBrowserDialog; ` +
		`if ($d.ShowDialog() -eq 'OK') { Write-Output $d.SelectedPath }`
)

// ErrNoPicker indicates no folder picker is available on this system
var ErrNoPicker = errors.New("no folder picker available")

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// ChooseDirectory opens the native folder picker. An empty path with a nil
// error means the user cancelled the dialog.
func ChooseDirectory(ctx context.Context) (string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case OSDarwin:
		cmd = exec.CommandContext(ctx, OsascriptCommand, "-e", macOSPickerScript)
	case OSWindows:
		cmd = exec.CommandContext(ctx, PowershellCommand, "-NoProfile", "-STA", "-Command", windowsPickerScript)
	case OSLinux:
		switch {
		case hasCommand(ZenityCommand):
			cmd = exec.CommandContext(ctx, ZenityCommand, "--file-selection", "--directory", "--title=Select download folder")
		case hasCommand(KDialogCommand):
			cmd = exec.CommandContext(ctx, KDialogCommand, "--getexistingdirectory", ".")
		default:
			return "", ErrNoPicker
		}
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	out, err := cmd.Output()
	path := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		// pickers exit non-zero on cancel
		if errors.As(err, &exitErr) && path == "" {
			return "", nil
		}
		return "", fmt.Errorf("folder picker failed: %w", err)
	}
	return path, nil
}

func hasCommand(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
