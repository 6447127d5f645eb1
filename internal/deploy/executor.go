// Package deploy runs commands on the robot coprocessor, either locally or
// over SSH, for installing and managing the fieldpose service.
package deploy

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Logger defines the interface for debug logging.
type Logger interface {
	Debugf(format string, args ...interface{})
}

// nopLogger discards all debug output.
type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...interface{}) {}

// Executor runs shell commands against a target host. A target of
// "localhost", "127.0.0.1" or "" runs commands directly; anything else goes
// through ssh/scp.
type Executor struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	DryRun        bool
	Logger        Logger

	builder CommandBuilder
}

// NewExecutor creates a command executor for the given target.
func NewExecutor(target, sshUser, sshKey, identityAgent string, dryRun bool) *Executor {
	return &Executor{
		Target:        target,
		SSHUser:       sshUser,
		SSHKey:        sshKey,
		IdentityAgent: identityAgent,
		DryRun:        dryRun,
		Logger:        nopLogger{},
		builder:       NewRealCommandBuilder(),
	}
}

// SetLogger sets the debug logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	if logger != nil {
		e.Logger = logger
	}
}

// SetCommandBuilder swaps the command builder. Tests use this to capture the
// ssh and scp invocations without executing them.
func (e *Executor) SetCommandBuilder(b CommandBuilder) {
	if b != nil {
		e.builder = b
	}
}

// IsLocal reports whether the target is this machine.
func (e *Executor) IsLocal() bool {
	return e.Target == "localhost" || e.Target == "127.0.0.1" || e.Target == ""
}

// Run executes a command on the target and returns its combined output.
func (e *Executor) Run(command string) (string, error) {
	if e.DryRun {
		fmt.Printf("[dry-run] %s\n", command)
		return "", nil
	}

	e.Logger.Debugf("Executing: %s (target=%s, local=%v)", command, e.Target, e.IsLocal())

	var out []byte
	var err error
	if e.IsLocal() {
		out, err = e.builder.BuildShellCommand(command).Run()
	} else {
		out, err = e.builder.BuildCommand("ssh", e.sshArgs(command)...).Run()
	}
	if err != nil {
		e.Logger.Debugf("Command failed: %v, output: %s", err, out)
	}
	return string(out), err
}

// RunSudo executes a command with sudo on the target.
func (e *Executor) RunSudo(command string) (string, error) {
	if e.DryRun {
		fmt.Printf("[dry-run] sudo %s\n", command)
		return "", nil
	}
	e.Logger.Debugf("Executing (sudo): %s (target=%s, local=%v)", command, e.Target, e.IsLocal())

	sudoCmd := "sudo " + command
	var out []byte
	var err error
	if e.IsLocal() {
		out, err = e.builder.BuildShellCommand(sudoCmd).Run()
	} else {
		out, err = e.builder.BuildCommand("ssh", e.sshArgs(sudoCmd)...).Run()
	}
	if err != nil {
		e.Logger.Debugf("Sudo command failed: %v, output: %s", err, out)
	}
	return string(out), err
}

// CopyFile copies a local file to the given path on the target.
func (e *Executor) CopyFile(src, dst string) error {
	if e.DryRun {
		fmt.Printf("[dry-run] copy %s -> %s\n", src, dst)
		return nil
	}

	e.Logger.Debugf("Copying file: %s -> %s (target=%s, local=%v)", src, dst, e.Target, e.IsLocal())

	var err error
	if e.IsLocal() {
		err = e.copyLocal(src, dst)
	} else {
		err = e.copySSH(src, dst)
	}
	if err != nil {
		e.Logger.Debugf("Copy failed: %v", err)
	}
	return err
}

// FetchFile copies a file from the target to a local path. The remote side
// must already be readable by the SSH user; callers stage root-owned files
// through /tmp first.
func (e *Executor) FetchFile(src, dst string) error {
	if e.DryRun {
		fmt.Printf("[dry-run] fetch %s -> %s\n", src, dst)
		return nil
	}

	e.Logger.Debugf("Fetching file: %s -> %s (target=%s, local=%v)", src, dst, e.Target, e.IsLocal())

	if e.IsLocal() {
		return e.copyLocal(src, dst)
	}

	var args []string
	if e.SSHKey != "" {
		args = append(args, "-i", e.SSHKey)
	}
	args = append(args,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	)
	args = append(args, fmt.Sprintf("%s:%s", e.userAtTarget(), src), dst)

	if out, err := e.builder.BuildCommand("scp", args...).Run(); err != nil {
		return fmt.Errorf("scp fetch failed: %w, output: %s", err, out)
	}
	return nil
}

// WriteFile writes content to a file on the target.
func (e *Executor) WriteFile(path, content string) error {
	if e.DryRun {
		fmt.Printf("[dry-run] write %s (%d bytes)\n", path, len(content))
		return nil
	}

	if e.IsLocal() {
		return os.WriteFile(path, []byte(content), 0644)
	}

	cmd := e.builder.BuildCommand("ssh", e.sshArgs(fmt.Sprintf("cat > %s", path))...)
	cmd.SetStdin([]byte(content))
	if out, err := cmd.Run(); err != nil {
		return fmt.Errorf("ssh write failed: %w, output: %s", err, out)
	}
	return nil
}

// sshArgs builds the argument list for an ssh invocation of command.
// Host key checking is disabled so a freshly imaged coprocessor can be
// reached without a known_hosts entry.
func (e *Executor) sshArgs(command string) []string {
	var args []string
	if e.SSHKey != "" {
		args = append(args, "-i", e.SSHKey)
	}
	if e.IdentityAgent != "" {
		args = append(args, "-o", fmt.Sprintf("IdentityAgent=%s", e.IdentityAgent))
	}
	args = append(args,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
	)
	args = append(args, e.userAtTarget(), command)
	return args
}

// userAtTarget prefixes the target with the SSH user unless the target
// already carries one.
func (e *Executor) userAtTarget() string {
	if e.SSHUser != "" && !strings.Contains(e.Target, "@") {
		return fmt.Sprintf("%s@%s", e.SSHUser, e.Target)
	}
	return e.Target
}

func (e *Executor) copyLocal(src, dst string) error {
	// System paths need sudo even for a local deploy. /var/folders is the
	// macOS temp root, not a system path.
	needsSudo := strings.HasPrefix(dst, "/usr") ||
		strings.HasPrefix(dst, "/etc") ||
		(strings.HasPrefix(dst, "/var") && !strings.HasPrefix(dst, "/var/folders"))

	if needsSudo {
		if out, err := e.builder.BuildCommand("sudo", "cp", src, dst).Run(); err != nil {
			return fmt.Errorf("sudo cp failed: %w, output: %s", err, out)
		}
		return nil
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

// copySSH copies src via scp to a staging path in /tmp on the target, then
// moves it into place. The staging hop is what lets us land files in paths
// the SSH user cannot write directly.
func (e *Executor) copySSH(src, dst string) error {
	var args []string
	if e.SSHKey != "" {
		args = append(args, "-i", e.SSHKey)
	}
	args = append(args,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	)

	tempPath := fmt.Sprintf("/tmp/fieldpose-copy-%d", time.Now().Unix())
	args = append(args, src, fmt.Sprintf("%s:%s", e.userAtTarget(), tempPath))

	e.Logger.Debugf("SCP command: scp %v", args)
	if out, err := e.builder.BuildCommand("scp", args...).Run(); err != nil {
		return fmt.Errorf("scp failed: %w, output: %s", err, out)
	}

	if strings.HasPrefix(dst, "/usr") || strings.HasPrefix(dst, "/etc") || strings.HasPrefix(dst, "/var") {
		_, err := e.RunSudo(fmt.Sprintf("mv %s %s", tempPath, dst))
		return err
	}
	_, err := e.Run(fmt.Sprintf("mv %s %s", tempPath, dst))
	return err
}
