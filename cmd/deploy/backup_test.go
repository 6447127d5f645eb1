package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
	"github.com/ashgrove-robotics/fieldpose/internal/fsutil"
)

func TestBackup_Run(t *testing.T) {
	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "test -f "+remoteTablesPath):
			return "missing\n", nil
		case strings.Contains(cmd, "test -f "+remoteDBPath):
			return "exists\n", nil
		case strings.Contains(cmd, "test -f "+remoteConfigPath):
			return "exists\n", nil
		case strings.Contains(cmd, "du -h"):
			return "1.2M\n", nil
		case strings.Contains(cmd, "-version"):
			return "fieldpose v0.3.0 (ab12cd3) built 2026-08-22T09:12:01Z\n", nil
		case strings.Contains(cmd, "is-active"):
			return "active\n", nil
		default:
			return "", nil
		}
	})

	memFS := fsutil.NewMemoryFileSystem()
	b := &Backup{
		Target:    "10.68.2.11",
		OutputDir: t.TempDir(),
		FS:        memFS,
		Exec:      exec,
	}

	dir, err := b.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if base := filepath.Base(dir); !strings.HasPrefix(base, "fieldpose-backup-10.68.2.11-") {
		t.Errorf("backup directory = %q, want fieldpose-backup-<target>-<timestamp>", base)
	}
	if !memFS.DirExists(dir) {
		t.Errorf("backup directory %s was not created", dir)
	}

	// Binary, database, config, and unit file each travel by one scp;
	// the absent tables.json is skipped.
	if got := countCommands(builder, "scp"); got != 4 {
		t.Errorf("ran %d scp transfers, want 4", got)
	}

	// Root-owned files are staged through /tmp before the pull.
	assertRanCommand(t, builder, "sudo cp "+installPath+" /tmp/fieldpose-fetch-fieldpose")
	assertRanCommand(t, builder, "sudo chmod 644 /tmp/fieldpose-fetch-fieldpose")
	assertRanCommand(t, builder, "rm /tmp/fieldpose-fetch-fieldpose")

	readme, err := memFS.ReadFile(filepath.Join(dir, "README.txt"))
	if err != nil {
		t.Fatalf("README.txt not written: %v", err)
	}
	for _, want := range []string{
		"Target: 10.68.2.11",
		"Binary version: fieldpose v0.3.0 (ab12cd3) built 2026-08-22T09:12:01Z",
		"Service status: active",
		"sudo systemctl start fieldpose",
	} {
		if !strings.Contains(string(readme), want) {
			t.Errorf("README.txt missing %q:\n%s", want, readme)
		}
	}
}

func TestBackup_Run_SanitizesTarget(t *testing.T) {
	// The target lands in the directory name, so user@host strings must
	// come out filesystem-safe.
	exec := deploy.NewExecutor("nav@10.68.2.11", "", "", "", false)
	exec.SetCommandBuilder(deploy.NewMockCommandBuilder())

	b := &Backup{
		Target:    "nav@10.68.2.11",
		OutputDir: t.TempDir(),
		FS:        fsutil.NewMemoryFileSystem(),
		Exec:      exec,
	}

	dir, err := b.Run()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if base := filepath.Base(dir); !strings.HasPrefix(base, "fieldpose-backup-nav_10.68.2.11-") {
		t.Errorf("backup directory = %q, want sanitized target", base)
	}
}

func TestBackup_Run_BinaryFetchFails(t *testing.T) {
	exec := deploy.NewExecutor("10.68.2.11", "nav", "", "", false)
	builder := deploy.NewMockCommandBuilder()
	builder.ExecutorFactory = func(name string, args []string) *deploy.MockCommandExecutor {
		if name == "scp" {
			return &deploy.MockCommandExecutor{Err: errors.New("connection refused")}
		}
		return &deploy.MockCommandExecutor{}
	}
	exec.SetCommandBuilder(builder)

	b := &Backup{
		Target:    "10.68.2.11",
		OutputDir: t.TempDir(),
		FS:        fsutil.NewMemoryFileSystem(),
		Exec:      exec,
	}

	_, err := b.Run()
	if err == nil {
		t.Fatal("Run() succeeded although the binary pull failed")
	}
	if !strings.Contains(err.Error(), "failed to backup binary") {
		t.Errorf("Run() error = %v", err)
	}
}

func TestBackup_Run_DatabaseMissing(t *testing.T) {
	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "test -f "+remoteDBPath):
			return "missing\n", nil
		case strings.Contains(cmd, "test -f"):
			return "exists\n", nil
		case strings.Contains(cmd, "is-active"):
			return "active\n", nil
		default:
			return "", nil
		}
	})

	b := &Backup{
		Target:    "10.68.2.11",
		OutputDir: t.TempDir(),
		FS:        fsutil.NewMemoryFileSystem(),
		Exec:      exec,
	}

	// A missing database is a warning, not a failure; teams that run with
	// telemetry off still get binary and config backups.
	if _, err := b.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, cmd := range remoteCommands(builder) {
		if strings.Contains(cmd, "cp "+remoteDBPath) {
			t.Errorf("staged a database that does not exist: %q", cmd)
		}
	}
}
