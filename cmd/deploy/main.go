// Command fieldpose-deploy installs and manages the fieldpose service on a
// robot coprocessor over SSH. Targets can be hostnames, robot-network IPs,
// or ~/.ssh/config aliases.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
	"github.com/ashgrove-robotics/fieldpose/internal/version"
)

// DebugMode enables verbose executor logging when any subcommand is run
// with --debug.
var DebugMode bool

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "install":
		handleInstall(args)
	case "upgrade":
		handleUpgrade(args)
	case "status":
		handleStatus(args)
	case "health":
		handleHealth(args)
	case "rollback":
		handleRollback(args)
	case "backup":
		handleBackup(args)
	case "version":
		fmt.Printf("fieldpose-deploy %s (%s)\n", version.Version, version.GitSHA)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`fieldpose-deploy - deployment manager for the fieldpose service

Usage: fieldpose-deploy <command> [options]

Commands:
  install    Install the fieldpose service on a coprocessor
  upgrade    Upgrade fieldpose to a new binary
  status     Show service status, pose feed rates, and recent logs
  health     Run a health check against a running service
  rollback   Roll back to the previous on-robot backup
  backup     Pull the database and configuration down to this machine
  version    Show fieldpose-deploy version
  help       Show this help message

Common Flags:
  --target <host>      Target host (default: localhost)
                       Can be a hostname, IP, or SSH config host alias
  --ssh-user <user>    SSH user for remote deployment
                       Defaults to ~/.ssh/config or the current user
  --ssh-key <path>     SSH private key path
                       Defaults to ~/.ssh/config
  --dry-run            Show what would be done without executing

SSH Config Support:
  fieldpose-deploy reads ~/.ssh/config for host configuration. If the
  target matches a Host entry, its HostName, User, and IdentityFile are
  used. Command-line flags override SSH config values.

Examples:
  # First install on the coprocessor
  fieldpose-deploy install --target 10.68.2.11 --binary ./fieldpose-linux-arm64

  # Install using an SSH config alias, pushing a season config and tables
  fieldpose-deploy install --target robot --binary ./fieldpose-linux-arm64 \
      --config ./deploy/config.json --tables ./deploy/tables.json

  # Upgrade between matches
  fieldpose-deploy upgrade --target robot --binary ./fieldpose-linux-arm64

  # Check the service from the stands
  fieldpose-deploy status --target robot

  # Pull the match telemetry home after the event
  fieldpose-deploy backup --target robot --output ./backups`)
}

// resolveTarget turns command-line target flags into concrete SSH settings,
// consulting ~/.ssh/config and falling back to the current user.
func resolveTarget(target, sshUser, sshKey string) (host, user, key, agent string) {
	host, user, key, agent, err := deploy.ResolveSSHTarget(target, sshUser, sshKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve SSH config: %v\n", err)
		os.Exit(1)
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	return host, user, key, agent
}

// newExecutor builds the executor all subcommands share, wiring in debug
// logging when --debug is set.
func newExecutor(target, sshUser, sshKey, identityAgent string, dryRun bool) *deploy.Executor {
	exec := deploy.NewExecutor(target, sshUser, sshKey, identityAgent, dryRun)
	if DebugMode {
		exec.SetLogger(stderrLogger{})
	}
	return exec
}

type stderrLogger struct{}

func (stderrLogger) Debugf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
}

func handleInstall(args []string) {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host for installation")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	binaryPath := fs.String("binary", "", "Path to fieldpose binary (required)")
	configPath := fs.String("config", "", "Local config.json to push to the coprocessor")
	tablesPath := fs.String("tables", "", "Local tables.json to push to the coprocessor")
	dryRun := fs.Bool("dry-run", false, "Show what would be done")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	if *binaryPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --binary is required (e.g. --binary ./fieldpose-linux-arm64)")
		fs.Usage()
		os.Exit(1)
	}

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	installer := &Installer{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		BinaryPath:    *binaryPath,
		ConfigPath:    *configPath,
		TablesPath:    *tablesPath,
		DryRun:        *dryRun,
	}

	if err := installer.Install(); err != nil {
		fmt.Fprintf(os.Stderr, "Installation failed: %v\n", err)
		os.Exit(1)
	}
}

func handleUpgrade(args []string) {
	fs := flag.NewFlagSet("upgrade", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	binaryPath := fs.String("binary", "", "Path to the new fieldpose binary (required)")
	noBackup := fs.Bool("no-backup", false, "Skip the on-robot backup before upgrading")
	dryRun := fs.Bool("dry-run", false, "Show what would be done")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	if *binaryPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --binary is required (e.g. --binary ./fieldpose-linux-arm64)")
		fs.Usage()
		os.Exit(1)
	}

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	upgrader := &Upgrader{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		BinaryPath:    *binaryPath,
		DryRun:        *dryRun,
		NoBackup:      *noBackup,
	}

	if err := upgrader.Upgrade(); err != nil {
		fmt.Fprintf(os.Stderr, "Upgrade failed: %v\n", err)
		os.Exit(1)
	}
}

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	monitorPort := fs.Int("monitor-port", 5808, "Monitor HTTP port on the coprocessor")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	monitor := &Monitor{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		MonitorPort:   *monitorPort,
	}

	status, err := monitor.GetStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get status: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(status.Format())
}

func handleHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	monitorPort := fs.Int("monitor-port", 5808, "Monitor HTTP port on the coprocessor")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	monitor := &Monitor{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		MonitorPort:   *monitorPort,
	}

	health, err := monitor.CheckHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(health.Format())
	if !health.Healthy {
		os.Exit(1)
	}
}

func handleRollback(args []string) {
	fs := flag.NewFlagSet("rollback", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	dryRun := fs.Bool("dry-run", false, "Show what would be done")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	rollback := &Rollback{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		Yes:           *yes,
		DryRun:        *dryRun,
	}

	if err := rollback.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Rollback failed: %v\n", err)
		os.Exit(1)
	}
}

func handleBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	target := fs.String("target", "localhost", "Target host")
	sshUser := fs.String("ssh-user", "", "SSH user (defaults to ~/.ssh/config or current user)")
	sshKey := fs.String("ssh-key", "", "SSH private key path (defaults to ~/.ssh/config)")
	output := fs.String("output", ".", "Local directory to store the backup in")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	DebugMode = *debug

	host, user, key, agent := resolveTarget(*target, *sshUser, *sshKey)
	backup := &Backup{
		Target:        host,
		SSHUser:       user,
		SSHKey:        key,
		IdentityAgent: agent,
		OutputDir:     *output,
	}

	dir, err := backup.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Backup saved to %s\n", dir)
}
