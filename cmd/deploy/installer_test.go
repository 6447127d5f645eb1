package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFakeBinary drops an executable file in dir for install tests.
func writeFakeBinary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fieldpose-linux-arm64")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestInstaller_validateBinary(t *testing.T) {
	tmpDir := t.TempDir()

	nonExec := filepath.Join(tmpDir, "fieldpose-not-exec")
	if err := os.WriteFile(nonExec, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name       string
		binaryPath string
		wantErr    bool
	}{
		{"executable binary", writeFakeBinary(t, tmpDir), false},
		{"non-executable file", nonExec, true},
		{"missing file", filepath.Join(tmpDir, "no-such-binary"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installer := &Installer{BinaryPath: tt.binaryPath}
			err := installer.validateBinary()
			if (err != nil) != tt.wantErr {
				t.Errorf("validateBinary() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstaller_checkExisting(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"already installed", "exists\n", true},
		{"fresh machine", "not found\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, builder := fakeRemote(t, func(cmd string) (string, error) {
				return tt.output, nil
			})

			installer := &Installer{Target: "10.68.2.11"}
			got, err := installer.checkExisting(exec)
			if err != nil {
				t.Fatalf("checkExisting() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("checkExisting() = %v, want %v", got, tt.want)
			}
			assertRanCommand(t, builder, "test -f "+unitPath)
		})
	}
}

func TestInstaller_Install_AlreadyInstalled(t *testing.T) {
	binary := writeFakeBinary(t, t.TempDir())

	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		return "exists", nil
	})

	installer := &Installer{
		Target:     "10.68.2.11",
		BinaryPath: binary,
		Exec:       exec,
	}
	if err := installer.Install(); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	// Only the existence probe should have run; install must not touch a
	// machine that already has the service.
	if got := len(remoteCommands(builder)); got != 1 {
		t.Errorf("ran %d remote commands, want 1:\n%s", got, strings.Join(remoteCommands(builder), "\n"))
	}
}

func TestInstaller_Install_MissingBinary(t *testing.T) {
	exec, _ := fakeRemote(t, func(cmd string) (string, error) {
		return "", nil
	})

	installer := &Installer{
		Target:     "10.68.2.11",
		BinaryPath: filepath.Join(t.TempDir(), "no-such-binary"),
		Exec:       exec,
	}
	err := installer.Install()
	if err == nil {
		t.Fatal("Install() succeeded with a missing binary")
	}
	if !strings.Contains(err.Error(), "binary not found") {
		t.Errorf("Install() error = %v, want binary not found", err)
	}
}

func TestInstaller_Install_FullRun(t *testing.T) {
	binary := writeFakeBinary(t, t.TempDir())

	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "test -f "+unitPath):
			return "not found", nil
		case strings.HasPrefix(cmd, "id "):
			return "not found", nil
		case strings.Contains(cmd, "systemctl is-active"):
			return "active", nil
		default:
			return "", nil
		}
	})

	installer := &Installer{
		Target:     "10.68.2.11",
		SSHUser:    "nav",
		BinaryPath: binary,
		Exec:       exec,
	}
	if err := installer.Install(); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	assertRanCommand(t, builder, "sudo useradd --system --no-create-home --shell /usr/sbin/nologin fieldpose")
	assertRanCommand(t, builder, "sudo mkdir -p /var/lib/fieldpose /var/lib/fieldpose/backups")
	assertRanCommand(t, builder, "sudo chown root:root /usr/local/bin/fieldpose && chmod 0755 /usr/local/bin/fieldpose")
	assertRanCommand(t, builder, "sudo mv /tmp/fieldpose-config.json /var/lib/fieldpose/config.json")
	assertRanCommand(t, builder, "sudo mv /tmp/fieldpose.service /etc/systemd/system/fieldpose.service")
	assertRanCommand(t, builder, "sudo systemctl daemon-reload")
	assertRanCommand(t, builder, "sudo systemctl enable fieldpose")
	assertRanCommand(t, builder, "sudo systemctl start fieldpose")

	// The binary lands via scp through a /tmp staging path.
	if got := countCommands(builder, "scp"); got != 1 {
		t.Errorf("ran %d scp transfers, want 1", got)
	}
	assertRanCommand(t, builder, "sudo mv /tmp/fieldpose-copy-")
}

func TestInstaller_Install_PushesConfigAndTables(t *testing.T) {
	tmpDir := t.TempDir()
	binary := writeFakeBinary(t, tmpDir)

	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"listen_addr": ":5800"}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	tablesPath := filepath.Join(tmpDir, "tables.json")
	if err := os.WriteFile(tablesPath, []byte(`{"revision": "2025-rev2"}`), 0644); err != nil {
		t.Fatalf("failed to write tables: %v", err)
	}

	exec, builder := fakeRemote(t, func(cmd string) (string, error) {
		switch {
		case strings.Contains(cmd, "test -f "+unitPath):
			return "not found", nil
		case strings.HasPrefix(cmd, "id "):
			return "exists", nil
		case strings.Contains(cmd, "systemctl is-active"):
			return "active", nil
		default:
			return "", nil
		}
	})

	installer := &Installer{
		Target:     "10.68.2.11",
		BinaryPath: binary,
		ConfigPath: configPath,
		TablesPath: tablesPath,
		Exec:       exec,
	}
	if err := installer.Install(); err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	// Binary, tables, and config all travel by scp; no default config is
	// seeded when the user pushes one.
	if got := countCommands(builder, "scp"); got != 3 {
		t.Errorf("ran %d scp transfers, want 3", got)
	}
	for _, cmd := range remoteCommands(builder) {
		if strings.Contains(cmd, "/tmp/fieldpose-config.json") {
			t.Errorf("seeded a default config despite --config: %q", cmd)
		}
	}
	assertRanCommand(t, builder, "sudo chown fieldpose:fieldpose /var/lib/fieldpose/*.json")
}

func TestDefaultConfig(t *testing.T) {
	for _, withTables := range []bool{false, true} {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(defaultConfig(withTables)), &cfg); err != nil {
			t.Fatalf("defaultConfig(%v) is not valid JSON: %v", withTables, err)
		}

		if got := cfg["listen_addr"]; got != ":5800" {
			t.Errorf("listen_addr = %v, want :5800", got)
		}
		if got := cfg["monitor_addr"]; got != ":5808" {
			t.Errorf("monitor_addr = %v, want :5808", got)
		}
		if got := cfg["db_path"]; got != remoteDBPath {
			t.Errorf("db_path = %v, want %v", got, remoteDBPath)
		}

		_, hasTables := cfg["tables_path"]
		if hasTables != withTables {
			t.Errorf("defaultConfig(%v): tables_path present = %v", withTables, hasTables)
		}
	}
}

func TestServiceContent(t *testing.T) {
	required := []string{
		"Description=fieldpose pose matching service",
		"User=fieldpose",
		"ExecStart=/usr/local/bin/fieldpose -config /var/lib/fieldpose/config.json",
		"WorkingDirectory=/var/lib/fieldpose",
		"Restart=on-failure",
		"SyslogIdentifier=fieldpose",
		"WantedBy=multi-user.target",
	}
	for _, want := range required {
		if !strings.Contains(serviceContent, want) {
			t.Errorf("service unit missing %q", want)
		}
	}
}
