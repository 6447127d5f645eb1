package main

import (
	"fmt"
	"strings"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
)

// Rollback restores the newest on-robot backup taken by upgrade.
type Rollback struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	Yes           bool
	DryRun        bool

	// Exec overrides the SSH executor; tests inject one backed by a
	// mock command builder.
	Exec *deploy.Executor
}

func (r *Rollback) executor() *deploy.Executor {
	if r.Exec != nil {
		return r.Exec
	}
	return newExecutor(r.Target, r.SSHUser, r.SSHKey, r.IdentityAgent, r.DryRun)
}

// Run performs the rollback.
func (r *Rollback) Run() error {
	exec := r.executor()

	fmt.Println("Starting rollback to previous version...")

	// Step 1: Find most recent backup
	backupDir, err := r.findLatestBackup(exec)
	if err != nil {
		return fmt.Errorf("failed to find backup: %w", err)
	}

	fmt.Printf("Found backup: %s\n", backupDir)

	// Step 2: Confirm rollback
	if !r.Yes && !r.DryRun {
		fmt.Print("Are you sure you want to rollback? This will stop the service and restore the backup. [y/N]: ")
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Rollback cancelled")
			return nil
		}
	}

	// Step 3: Stop service
	if err := r.stopService(exec); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	// Step 4: Restore binary
	if err := r.restoreBinary(exec, backupDir); err != nil {
		return fmt.Errorf("failed to restore binary: %w", err)
	}

	// Step 5: Restore config if backed up
	if err := r.restoreConfig(exec, backupDir); err != nil {
		fmt.Printf("Warning: could not restore config: %v\n", err)
	}

	// Step 6: Start service
	if err := r.startService(exec); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	// Step 7: Verify service came up
	if err := r.verifyActive(exec); err != nil {
		return fmt.Errorf("health check failed after rollback: %w", err)
	}

	fmt.Println("\n✓ Rollback completed successfully!")
	return nil
}

func (r *Rollback) findLatestBackup(exec *deploy.Executor) (string, error) {
	fmt.Println("Looking for backups...")

	// Backup directories are named by timestamp, so newest sorts first.
	output, err := exec.RunSudo(fmt.Sprintf("ls -1t %s/ 2>/dev/null | head -1", backupsDir))
	if err != nil {
		return "", fmt.Errorf("no backups found")
	}

	backupName := strings.TrimSpace(output)
	if backupName == "" && !r.DryRun {
		return "", fmt.Errorf("no backups found in %s/", backupsDir)
	}

	backupDir := fmt.Sprintf("%s/%s", backupsDir, backupName)

	checkOutput, err := exec.RunSudo(fmt.Sprintf("test -f %s/fieldpose && echo 'exists' || echo 'missing'", backupDir))
	if err != nil {
		return "", fmt.Errorf("backup directory exists but binary not found: %s", backupDir)
	}
	if !r.DryRun && strings.TrimSpace(checkOutput) != "exists" {
		return "", fmt.Errorf("backup directory exists but binary not found: %s", backupDir)
	}

	return backupDir, nil
}

func (r *Rollback) stopService(exec *deploy.Executor) error {
	fmt.Println("Stopping service...")

	if _, err := exec.RunSudo(fmt.Sprintf("systemctl stop %s", serviceName)); err != nil {
		return err
	}
	exec.Run(fmt.Sprintf("sleep %d", int(serviceStopGracePeriod.Seconds())))

	fmt.Println("  ✓ Service stopped")
	return nil
}

func (r *Rollback) restoreBinary(exec *deploy.Executor, backupDir string) error {
	fmt.Printf("Restoring binary from: %s\n", backupDir)

	_, err := exec.RunSudo(fmt.Sprintf("cp %s/fieldpose %s", backupDir, installPath))
	if err != nil {
		return fmt.Errorf("failed to restore binary: %w", err)
	}

	_, err = exec.RunSudo(fmt.Sprintf("chown root:root %s && chmod 0755 %s", installPath, installPath))
	if err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	fmt.Println("  ✓ Binary restored")
	return nil
}

// restoreConfig puts the backed-up config.json back if the backup has one.
// The database is deliberately left alone: rolling back a binary should not
// discard the telemetry recorded since the backup.
func (r *Rollback) restoreConfig(exec *deploy.Executor, backupDir string) error {
	configBackup := fmt.Sprintf("%s/config.json", backupDir)

	checkOutput, err := exec.RunSudo(fmt.Sprintf("test -f %s && echo 'exists' || echo 'missing'", configBackup))
	if err != nil || strings.TrimSpace(checkOutput) != "exists" {
		fmt.Println("  ⊘ No config backup found, keeping current config")
		return nil
	}

	_, err = exec.RunSudo(fmt.Sprintf("cp %s %s", configBackup, remoteConfigPath))
	if err != nil {
		return err
	}
	_, err = exec.RunSudo(fmt.Sprintf("chown %s:%s %s", serviceUser, serviceUser, remoteConfigPath))
	if err != nil {
		return err
	}

	fmt.Println("  ✓ Config restored")
	return nil
}

func (r *Rollback) startService(exec *deploy.Executor) error {
	fmt.Println("Starting service...")

	if _, err := exec.RunSudo(fmt.Sprintf("systemctl start %s", serviceName)); err != nil {
		return err
	}
	exec.Run(fmt.Sprintf("sleep %d", int(serviceStartGracePeriod.Seconds())))

	fmt.Println("  ✓ Service started")
	return nil
}

func (r *Rollback) verifyActive(exec *deploy.Executor) error {
	fmt.Println("Verifying service health...")

	output, err := exec.RunSudo(fmt.Sprintf("systemctl is-active %s", serviceName))
	if err != nil {
		return fmt.Errorf("service is not active")
	}
	if !r.DryRun && strings.TrimSpace(output) != "active" {
		return fmt.Errorf("service is not active")
	}

	fmt.Println("  ✓ Service is running")
	return nil
}
