package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
	"github.com/ashgrove-robotics/fieldpose/internal/fsutil"
	"github.com/ashgrove-robotics/fieldpose/internal/security"
)

// Backup pulls the installed binary, database, and configuration from the
// target down into a timestamped local directory.
type Backup struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	OutputDir     string

	// FS stages the local backup files. Defaults to the real filesystem;
	// tests swap in a memory one.
	FS fsutil.FileSystem

	// Exec overrides the SSH executor; tests inject one backed by a
	// mock command builder.
	Exec *deploy.Executor
}

func (b *Backup) fs() fsutil.FileSystem {
	if b.FS != nil {
		return b.FS
	}
	return fsutil.OSFileSystem{}
}

func (b *Backup) executor() *deploy.Executor {
	if b.Exec != nil {
		return b.Exec
	}
	return newExecutor(b.Target, b.SSHUser, b.SSHKey, b.IdentityAgent, false)
}

// Run performs the backup and returns the local backup directory.
func (b *Backup) Run() (string, error) {
	exec := b.executor()

	fmt.Println("Starting backup of fieldpose...")

	// The target goes into the directory name so backups from several
	// robots can share an output directory. Sanitize it first; targets
	// arrive as user@host strings.
	timestamp := time.Now().Format("20060102-150405")
	backupName := fmt.Sprintf("fieldpose-backup-%s-%s", security.SanitizeFilename(b.Target), timestamp)

	outputDir := b.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	if err := b.fs().MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	localBackupDir := filepath.Join(outputDir, backupName)
	if err := security.ValidatePathWithinDirectory(localBackupDir, outputDir); err != nil {
		return "", fmt.Errorf("unsafe backup directory: %w", err)
	}
	if err := b.fs().MkdirAll(localBackupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	fmt.Printf("Backup directory: %s\n", localBackupDir)

	// Step 1: Binary
	if err := b.fetchRemoteFile(exec, installPath, filepath.Join(localBackupDir, "fieldpose")); err != nil {
		return "", fmt.Errorf("failed to backup binary: %w", err)
	}
	fmt.Println("  ✓ Binary backed up")

	// Step 2: Database
	if err := b.backupDatabase(exec, localBackupDir); err != nil {
		fmt.Printf("Warning: could not backup database: %v\n", err)
	}

	// Step 3: Config and tables
	if err := b.backupConfig(exec, localBackupDir); err != nil {
		fmt.Printf("Warning: could not backup config: %v\n", err)
	}

	// Step 4: Service file
	if err := b.fetchRemoteFile(exec, unitPath, filepath.Join(localBackupDir, serviceUnit)); err != nil {
		fmt.Printf("Warning: could not backup service file: %v\n", err)
	} else {
		fmt.Println("  ✓ Service file backed up")
	}

	// Step 5: Metadata
	if err := b.writeMetadata(exec, localBackupDir, timestamp); err != nil {
		fmt.Printf("Warning: could not create metadata: %v\n", err)
	}

	fmt.Println("\n✓ Backup completed successfully!")
	return localBackupDir, nil
}

// fetchRemoteFile stages a root-readable copy of remotePath in /tmp, pulls
// it to localDest, and removes the staging copy. The staged hop also covers
// local targets, where the source is typically unreadable by the current
// user.
func (b *Backup) fetchRemoteFile(exec *deploy.Executor, remotePath, localDest string) error {
	stage := fmt.Sprintf("/tmp/fieldpose-fetch-%s", filepath.Base(localDest))

	if _, err := exec.RunSudo(fmt.Sprintf("cp %s %s", remotePath, stage)); err != nil {
		return err
	}
	if _, err := exec.RunSudo(fmt.Sprintf("chmod 644 %s", stage)); err != nil {
		return err
	}
	if err := exec.FetchFile(stage, localDest); err != nil {
		return err
	}
	exec.Run(fmt.Sprintf("rm %s", stage))
	return nil
}

func (b *Backup) backupDatabase(exec *deploy.Executor, backupDir string) error {
	fmt.Println("Backing up database...")

	checkOutput, err := exec.RunSudo(fmt.Sprintf("test -f %s && echo 'exists' || echo 'missing'", remoteDBPath))
	if err != nil || strings.TrimSpace(checkOutput) != "exists" {
		fmt.Println("  ⊘ No database found (telemetry may be disabled)")
		return nil
	}

	if err := b.fetchRemoteFile(exec, remoteDBPath, filepath.Join(backupDir, "fieldpose.db")); err != nil {
		return err
	}

	sizeOutput, _ := exec.RunSudo(fmt.Sprintf("du -h %s | cut -f1", remoteDBPath))
	fmt.Printf("  ✓ Database backed up (%s)\n", strings.TrimSpace(sizeOutput))
	return nil
}

func (b *Backup) backupConfig(exec *deploy.Executor, backupDir string) error {
	fmt.Println("Backing up config...")

	for _, f := range []struct {
		remote string
		name   string
	}{
		{remoteConfigPath, "config.json"},
		{remoteTablesPath, "tables.json"},
	} {
		checkOutput, err := exec.RunSudo(fmt.Sprintf("test -f %s && echo 'exists' || echo 'missing'", f.remote))
		if err != nil || strings.TrimSpace(checkOutput) != "exists" {
			continue
		}
		if err := b.fetchRemoteFile(exec, f.remote, filepath.Join(backupDir, f.name)); err != nil {
			return err
		}
		fmt.Printf("  ✓ %s backed up\n", f.name)
	}
	return nil
}

func (b *Backup) writeMetadata(exec *deploy.Executor, backupDir, timestamp string) error {
	fmt.Println("Creating backup metadata...")

	versionOutput, _ := exec.Run(fmt.Sprintf("%s -version 2>&1 || echo 'unknown'", installPath))
	statusOutput, _ := exec.RunSudo(fmt.Sprintf("systemctl is-active %s 2>&1 || echo 'unknown'", serviceName))

	metadata := fmt.Sprintf(`fieldpose backup
================
Timestamp: %s
Target: %s
Binary version: %s
Service status: %s

Files included:
- fieldpose (binary)
- fieldpose.db (telemetry database, if present)
- config.json / tables.json (if present)
- fieldpose.service (systemd unit)

To restore on the coprocessor:
1. Stop the service:   sudo systemctl stop fieldpose
2. Restore the binary: sudo cp fieldpose %s
3. Restore the db:     sudo cp fieldpose.db %s
4. Restore the unit:   sudo cp fieldpose.service %s
5. Reload systemd:     sudo systemctl daemon-reload
6. Start the service:  sudo systemctl start fieldpose
`, timestamp, b.Target, strings.TrimSpace(versionOutput), strings.TrimSpace(statusOutput),
		installPath, remoteDBPath, unitPath)

	metadataFile := filepath.Join(backupDir, "README.txt")
	if err := b.fs().WriteFile(metadataFile, []byte(metadata), 0644); err != nil {
		return err
	}

	fmt.Println("  ✓ Metadata created")
	return nil
}
