package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
)

// Installed file layout on the coprocessor. The service always reads its
// config from remoteConfigPath, so install seeds one even when the user
// does not push their own.
const (
	serviceName      = "fieldpose"
	serviceUnit      = "fieldpose.service"
	unitPath         = "/etc/systemd/system/fieldpose.service"
	installPath      = "/usr/local/bin/fieldpose"
	dataDir          = "/var/lib/fieldpose"
	remoteConfigPath = "/var/lib/fieldpose/config.json"
	remoteTablesPath = "/var/lib/fieldpose/tables.json"
	remoteDBPath     = "/var/lib/fieldpose/fieldpose.db"
	backupsDir       = "/var/lib/fieldpose/backups"
	serviceUser      = "fieldpose"
)

const serviceContent = `[Unit]
Description=fieldpose pose matching service
After=network.target

[Service]
User=fieldpose
Group=fieldpose
Type=simple
ExecStart=/usr/local/bin/fieldpose -config /var/lib/fieldpose/config.json
WorkingDirectory=/var/lib/fieldpose
Restart=on-failure
RestartSec=5
StandardOutput=journal
StandardError=journal
SyslogIdentifier=fieldpose

[Install]
WantedBy=multi-user.target
`

// Installer handles first-time installation of the fieldpose service.
type Installer struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	BinaryPath    string
	ConfigPath    string
	TablesPath    string
	DryRun        bool

	// Exec overrides the SSH executor; tests inject one backed by a
	// mock command builder.
	Exec *deploy.Executor
}

func (i *Installer) executor() *deploy.Executor {
	if i.Exec != nil {
		return i.Exec
	}
	return newExecutor(i.Target, i.SSHUser, i.SSHKey, i.IdentityAgent, i.DryRun)
}

// Install performs the installation.
func (i *Installer) Install() error {
	exec := i.executor()

	fmt.Println("Starting installation of fieldpose...")

	// Step 1: Validate binary exists
	if err := i.validateBinary(); err != nil {
		return fmt.Errorf("binary validation failed: %w", err)
	}

	// Step 2: Check if already installed
	if installed, err := i.checkExisting(exec); err != nil {
		return fmt.Errorf("failed to check existing installation: %w", err)
	} else if installed {
		fmt.Println("fieldpose is already installed. Use 'upgrade' to update it.")
		return nil
	}

	// Step 3: Create service user
	if err := i.createServiceUser(exec); err != nil {
		return fmt.Errorf("failed to create service user: %w", err)
	}

	// Step 4: Create data directory
	if err := i.createDataDirectory(exec); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Step 5: Install binary
	if err := i.installBinary(exec); err != nil {
		return fmt.Errorf("failed to install binary: %w", err)
	}

	// Step 6: Push config and tables
	if err := i.installConfig(exec); err != nil {
		return fmt.Errorf("failed to install config: %w", err)
	}

	// Step 7: Install systemd service
	if err := i.installService(exec); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}

	// Step 8: Start service
	if err := i.startService(exec); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	fmt.Println("\n✓ Installation completed successfully!")
	fmt.Println("\nUseful commands:")
	fmt.Printf("  Check status:  fieldpose-deploy status --target %s\n", i.Target)
	fmt.Printf("  Health check:  fieldpose-deploy health --target %s\n", i.Target)
	fmt.Printf("  View logs:     sudo journalctl -u %s -f\n", serviceUnit)

	return nil
}

func (i *Installer) validateBinary() error {
	fmt.Printf("Validating binary: %s\n", i.BinaryPath)

	info, err := os.Stat(i.BinaryPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("binary not found: %s", i.BinaryPath)
	}
	if err != nil {
		return err
	}

	if info.Mode()&0111 == 0 {
		return fmt.Errorf("binary is not executable: %s", i.BinaryPath)
	}

	fmt.Println("  ✓ Binary validated")
	return nil
}

func (i *Installer) checkExisting(exec *deploy.Executor) (bool, error) {
	fmt.Println("Checking for existing installation...")

	output, err := exec.Run(fmt.Sprintf("test -f %s && echo 'exists' || echo 'not found'", unitPath))
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(output) == "exists" {
		return true, nil
	}

	fmt.Println("  ✓ No existing installation found")
	return false, nil
}

func (i *Installer) createServiceUser(exec *deploy.Executor) error {
	fmt.Printf("Creating service user '%s'...\n", serviceUser)

	output, err := exec.Run(fmt.Sprintf("id %s 2>/dev/null && echo 'exists' || echo 'not found'", serviceUser))
	if err != nil {
		return err
	}

	if strings.Contains(output, "exists") {
		fmt.Printf("  ✓ User '%s' already exists\n", serviceUser)
		return nil
	}

	_, err = exec.RunSudo(fmt.Sprintf("useradd --system --no-create-home --shell /usr/sbin/nologin %s", serviceUser))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("  ✓ User '%s' created\n", serviceUser)
	return nil
}

func (i *Installer) createDataDirectory(exec *deploy.Executor) error {
	fmt.Printf("Creating data directory: %s\n", dataDir)

	_, err := exec.RunSudo(fmt.Sprintf("mkdir -p %s %s && chown -R %s:%s %s",
		dataDir, backupsDir, serviceUser, serviceUser, dataDir))
	if err != nil {
		return err
	}

	fmt.Println("  ✓ Data directory created")
	return nil
}

func (i *Installer) installBinary(exec *deploy.Executor) error {
	fmt.Printf("Installing binary to %s...\n", installPath)

	if err := exec.CopyFile(i.BinaryPath, installPath); err != nil {
		return fmt.Errorf("failed to copy binary: %w", err)
	}

	_, err := exec.RunSudo(fmt.Sprintf("chown root:root %s && chmod 0755 %s", installPath, installPath))
	if err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	fmt.Println("  ✓ Binary installed")
	return nil
}

// installConfig pushes the user's config and tables files, or seeds a
// default config when none is given. The pushed files end up owned by the
// service user so the process can read them.
func (i *Installer) installConfig(exec *deploy.Executor) error {
	if i.TablesPath != "" {
		fmt.Printf("Installing pose tables to %s...\n", remoteTablesPath)
		if err := exec.CopyFile(i.TablesPath, remoteTablesPath); err != nil {
			return fmt.Errorf("failed to copy tables: %w", err)
		}
	}

	if i.ConfigPath != "" {
		fmt.Printf("Installing config to %s...\n", remoteConfigPath)
		if err := exec.CopyFile(i.ConfigPath, remoteConfigPath); err != nil {
			return fmt.Errorf("failed to copy config: %w", err)
		}
	} else {
		fmt.Printf("Seeding default config at %s...\n", remoteConfigPath)
		tempFile := "/tmp/fieldpose-config.json"
		if err := exec.WriteFile(tempFile, defaultConfig(i.TablesPath != "")); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		if _, err := exec.RunSudo(fmt.Sprintf("mv %s %s", tempFile, remoteConfigPath)); err != nil {
			return fmt.Errorf("failed to install config: %w", err)
		}
	}

	_, err := exec.RunSudo(fmt.Sprintf("chown %s:%s %s/*.json", serviceUser, serviceUser, dataDir))
	if err != nil {
		return fmt.Errorf("failed to set config ownership: %w", err)
	}

	fmt.Println("  ✓ Config installed")
	return nil
}

// defaultConfig renders the config seeded on a fresh install. The tables
// entry is only written when a tables file was pushed alongside it; without
// one the service runs on its embedded tables.
func defaultConfig(withTables bool) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  \"listen_addr\": \":5800\",\n")
	b.WriteString("  \"monitor_addr\": \":5808\",\n")
	if withTables {
		fmt.Fprintf(&b, "  %q: %q,\n", "tables_path", remoteTablesPath)
	}
	fmt.Fprintf(&b, "  %q: %q\n", "db_path", remoteDBPath)
	b.WriteString("}\n")
	return b.String()
}

func (i *Installer) installService(exec *deploy.Executor) error {
	fmt.Println("Installing systemd service...")

	tempFile := "/tmp/fieldpose.service"
	if err := exec.WriteFile(tempFile, serviceContent); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	_, err := exec.RunSudo(fmt.Sprintf("mv %s %s", tempFile, unitPath))
	if err != nil {
		return fmt.Errorf("failed to install service file: %w", err)
	}

	_, err = exec.RunSudo("systemctl daemon-reload")
	if err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	_, err = exec.RunSudo(fmt.Sprintf("systemctl enable %s", serviceName))
	if err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}

	fmt.Println("  ✓ Service installed and enabled")
	return nil
}

func (i *Installer) startService(exec *deploy.Executor) error {
	fmt.Printf("Starting %s...\n", serviceUnit)

	_, err := exec.RunSudo(fmt.Sprintf("systemctl start %s", serviceName))
	if err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	// Give the service a moment to come up before checking.
	exec.Run("sleep 2")

	output, err := exec.RunSudo(fmt.Sprintf("systemctl is-active %s", serviceName))
	if err != nil {
		return fmt.Errorf("service failed to start properly")
	}
	if !i.DryRun && strings.TrimSpace(output) != "active" {
		return fmt.Errorf("service failed to start properly")
	}

	fmt.Println("  ✓ Service started successfully")
	return nil
}
