package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
)

// Grace periods between service state changes. Stop needs time for systemd
// to terminate the process; start needs time for the service to bind its
// ports before the health check.
const (
	serviceStopGracePeriod  = 2 * time.Second
	serviceStartGracePeriod = 3 * time.Second
)

// Upgrader replaces the installed fieldpose binary with a new build.
type Upgrader struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	BinaryPath    string
	DryRun        bool
	NoBackup      bool

	// Exec overrides the SSH executor; tests inject one backed by a
	// mock command builder.
	Exec *deploy.Executor
}

func (u *Upgrader) executor() *deploy.Executor {
	if u.Exec != nil {
		return u.Exec
	}
	return newExecutor(u.Target, u.SSHUser, u.SSHKey, u.IdentityAgent, u.DryRun)
}

// Upgrade performs the upgrade.
func (u *Upgrader) Upgrade() error {
	exec := u.executor()

	fmt.Println("Starting upgrade of fieldpose...")

	// Step 1: Check if service is installed
	if installed, err := u.checkInstalled(exec); err != nil {
		return fmt.Errorf("failed to check installation: %w", err)
	} else if !installed {
		return fmt.Errorf("fieldpose is not installed. Use 'install' first")
	}

	// Step 2: Get current version info
	currentVersion, err := u.getCurrentVersion(exec)
	if err != nil {
		fmt.Printf("Warning: could not determine current version: %v\n", err)
		currentVersion = "unknown"
	}
	fmt.Printf("Current version: %s\n", currentVersion)

	// Step 3: Backup current installation on the robot
	if !u.NoBackup {
		if err := u.backupCurrent(exec); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
	} else {
		fmt.Println("Skipping backup (--no-backup flag set)")
	}

	// Step 4: Stop service
	if err := u.stopService(exec); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	// Step 5: Install new binary
	if err := u.installNewBinary(exec); err != nil {
		return fmt.Errorf("failed to install new binary: %w", err)
	}

	// Step 6: Start service
	if err := u.startService(exec); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	// Step 7: Verify service is healthy
	if err := u.verifyActive(exec); err != nil {
		fmt.Println("\n⚠ Warning: service did not come back up!")
		fmt.Println("You may want to roll back using: fieldpose-deploy rollback")
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("\n✓ Upgrade completed successfully!")
	return nil
}

func (u *Upgrader) checkInstalled(exec *deploy.Executor) (bool, error) {
	output, err := exec.Run(fmt.Sprintf("test -f %s && echo 'exists' || echo 'not found'", unitPath))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) == "exists", nil
}

func (u *Upgrader) getCurrentVersion(exec *deploy.Executor) (string, error) {
	output, err := exec.Run(fmt.Sprintf("%s -version 2>&1 || echo 'unknown'", installPath))
	if err != nil {
		return "unknown", err
	}

	version := strings.TrimSpace(output)
	if version == "" || strings.Contains(version, "unknown") {
		// Fall back to the binary's mtime when the version is not stamped.
		timeOutput, err := exec.Run(fmt.Sprintf("stat -c %%Y %s 2>/dev/null || echo '0'", installPath))
		if err == nil && strings.TrimSpace(timeOutput) != "0" {
			return fmt.Sprintf("installed-%s", strings.TrimSpace(timeOutput)), nil
		}
		return "unknown", nil
	}

	return version, nil
}

// backupCurrent snapshots the binary, database, and config into a
// timestamped directory on the robot. Rollback restores the newest one.
func (u *Upgrader) backupCurrent(exec *deploy.Executor) error {
	fmt.Println("Backing up current installation...")

	timestamp := time.Now().Format("20060102-150405")
	backupDir := fmt.Sprintf("%s/%s", backupsDir, timestamp)

	if _, err := exec.RunSudo(fmt.Sprintf("mkdir -p %s", backupDir)); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	output, err := exec.RunSudo(fmt.Sprintf("cp %s %s/fieldpose", installPath, backupDir))
	if err != nil {
		return fmt.Errorf("failed to backup binary to %s: %w (output: %s)", backupDir, err, output)
	}

	output, err = exec.RunSudo(fmt.Sprintf("test -f %s && cp %s %s/fieldpose.db || true",
		remoteDBPath, remoteDBPath, backupDir))
	if err != nil {
		fmt.Printf("Warning: could not backup database: %v (output: %s)\n", err, output)
	}

	output, err = exec.RunSudo(fmt.Sprintf("test -f %s && cp %s %s/config.json || true",
		remoteConfigPath, remoteConfigPath, backupDir))
	if err != nil {
		fmt.Printf("Warning: could not backup config: %v (output: %s)\n", err, output)
	}

	versionInfo := fmt.Sprintf("Backup created: %s\nBinary: %s\n", timestamp, installPath)
	tempInfo := "/tmp/fieldpose-backup-info.txt"
	if err := exec.WriteFile(tempInfo, versionInfo); err == nil {
		if _, err := exec.RunSudo(fmt.Sprintf("mv %s %s/version.txt", tempInfo, backupDir)); err != nil {
			fmt.Printf("Warning: could not write version info: %v\n", err)
		}
	} else {
		fmt.Printf("Warning: could not write version info: %v\n", err)
	}

	fmt.Printf("  ✓ Backup saved to: %s\n", backupDir)
	return nil
}

func (u *Upgrader) stopService(exec *deploy.Executor) error {
	fmt.Println("Stopping service...")

	if _, err := exec.RunSudo(fmt.Sprintf("systemctl stop %s", serviceName)); err != nil {
		return err
	}
	exec.Run(fmt.Sprintf("sleep %d", int(serviceStopGracePeriod.Seconds())))

	fmt.Println("  ✓ Service stopped")
	return nil
}

func (u *Upgrader) installNewBinary(exec *deploy.Executor) error {
	fmt.Printf("Installing new binary from: %s\n", u.BinaryPath)

	if err := exec.CopyFile(u.BinaryPath, installPath); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}

	_, err := exec.RunSudo(fmt.Sprintf("chown root:root %s && chmod 0755 %s", installPath, installPath))
	if err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	fmt.Println("  ✓ New binary installed")
	return nil
}

func (u *Upgrader) startService(exec *deploy.Executor) error {
	fmt.Println("Starting service...")

	if _, err := exec.RunSudo(fmt.Sprintf("systemctl start %s", serviceName)); err != nil {
		return err
	}
	exec.Run(fmt.Sprintf("sleep %d", int(serviceStartGracePeriod.Seconds())))

	fmt.Println("  ✓ Service started")
	return nil
}

func (u *Upgrader) verifyActive(exec *deploy.Executor) error {
	fmt.Println("Verifying service health...")

	output, err := exec.RunSudo(fmt.Sprintf("systemctl is-active %s", serviceName))
	if err != nil {
		return fmt.Errorf("service is not active")
	}
	if !u.DryRun && strings.TrimSpace(output) != "active" {
		return fmt.Errorf("service is not active")
	}

	fmt.Println("  ✓ Service is running")
	return nil
}
