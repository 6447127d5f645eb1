package main

import (
	"strings"
	"testing"
)

func TestRollback_findLatestBackup(t *testing.T) {
	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "ls -1t"):
			// head -1 already reduced the listing to the newest entry.
			return "20260822-091201\n", nil
		case strings.Contains(cmd, "test -f"):
			return "exists\n", nil
		default:
			return "", nil
		}
	})

	r := &Rollback{Target: "10.68.2.11"}
	got, err := r.findLatestBackup(exec)
	if err != nil {
		t.Fatalf("findLatestBackup() error = %v", err)
	}
	want := backupsDir + "/20260822-091201"
	if got != want {
		t.Errorf("findLatestBackup() = %q, want %q", got, want)
	}
	assertRanCommand(t, builder, "ls -1t "+backupsDir+"/")
}

func TestRollback_findLatestBackup_NoBackups(t *testing.T) {
	exec, _ := fakeRemote(t, func(cmd string) (string, error) {
		return "", nil
	})

	r := &Rollback{Target: "10.68.2.11"}
	_, err := r.findLatestBackup(exec)
	if err == nil {
		t.Fatal("findLatestBackup() succeeded with no backups")
	}
	if !strings.Contains(err.Error(), "no backups found") {
		t.Errorf("findLatestBackup() error = %v", err)
	}
}

func TestRollback_findLatestBackup_MissingBinary(t *testing.T) {
	exec, _ := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "ls -1t"):
			return "20260822-091201\n", nil
		case strings.Contains(cmd, "test -f"):
			return "missing\n", nil
		default:
			return "", nil
		}
	})

	r := &Rollback{Target: "10.68.2.11"}
	_, err := r.findLatestBackup(exec)
	if err == nil {
		t.Fatal("findLatestBackup() accepted a backup with no binary")
	}
	if !strings.Contains(err.Error(), "binary not found") {
		t.Errorf("findLatestBackup() error = %v", err)
	}
}

func TestRollback_Run(t *testing.T) {
	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "ls -1t"):
			return "20260822-091201\n", nil
		case strings.Contains(cmd, "test -f"):
			return "exists\n", nil
		case strings.Contains(cmd, "is-active"):
			return "active\n", nil
		default:
			return "", nil
		}
	})

	r := &Rollback{
		Target: "10.68.2.11",
		Yes:    true,
		Exec:   exec,
	}
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	backupDir := backupsDir + "/20260822-091201"
	assertRanCommand(t, builder, "sudo systemctl stop fieldpose")
	assertRanCommand(t, builder, "sudo cp "+backupDir+"/fieldpose "+installPath)
	assertRanCommand(t, builder, "sudo chown root:root "+installPath)
	assertRanCommand(t, builder, "sudo cp "+backupDir+"/config.json "+remoteConfigPath)
	assertRanCommand(t, builder, "sudo chown fieldpose:fieldpose "+remoteConfigPath)
	assertRanCommand(t, builder, "sudo systemctl start fieldpose")
	assertRanCommand(t, builder, "sudo systemctl is-active fieldpose")

	// The telemetry database is never restored; rolling a binary back
	// must not lose matches recorded since the backup.
	for _, cmd := range remoteCommands(builder) {
		if strings.Contains(cmd, "cp "+backupDir+"/fieldpose.db") {
			t.Errorf("rollback restored the database: %q", cmd)
		}
	}
}

func TestRollback_Run_NoConfigBackup(t *testing.T) {
	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "ls -1t"):
			return "20260822-091201\n", nil
		case strings.Contains(cmd, "test -f") && strings.Contains(cmd, "config.json"):
			return "missing\n", nil
		case strings.Contains(cmd, "test -f"):
			return "exists\n", nil
		case strings.Contains(cmd, "is-active"):
			return "active\n", nil
		default:
			return "", nil
		}
	})

	r := &Rollback{
		Target: "10.68.2.11",
		Yes:    true,
		Exec:   exec,
	}
	if err := r.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, cmd := range remoteCommands(builder) {
		if strings.Contains(cmd, "cp ") && strings.Contains(cmd, "config.json") {
			t.Errorf("restored a config that was never backed up: %q", cmd)
		}
	}
}

func TestRollback_Run_ServiceDoesNotComeBack(t *testing.T) {
	exec, _ := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "ls -1t"):
			return "20260822-091201\n", nil
		case strings.Contains(cmd, "test -f"):
			return "exists\n", nil
		case strings.Contains(cmd, "is-active"):
			return "failed\n", nil
		default:
			return "", nil
		}
	})

	r := &Rollback{
		Target: "10.68.2.11",
		Yes:    true,
		Exec:   exec,
	}
	err := r.Run()
	if err == nil {
		t.Fatal("Run() succeeded although the service never came back")
	}
	if !strings.Contains(err.Error(), "health check failed after rollback") {
		t.Errorf("Run() error = %v", err)
	}
}
