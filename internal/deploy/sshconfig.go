package deploy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SSHConfig holds the parsed ssh_config settings for one host.
type SSHConfig struct {
	Host          string
	HostName      string
	User          string
	IdentityFile  string
	IdentityAgent string
	Port          string
}

// ParseSSHConfig reads ~/.ssh/config and returns the settings for host, or
// nil if the file or a matching Host block does not exist.
func ParseSSHConfig(host string) (*SSHConfig, error) {
	return ParseSSHConfigFrom(host, "")
}

// ParseSSHConfigFrom parses the SSH config file at configPath for the given
// host. An empty configPath means ~/.ssh/config.
func ParseSSHConfigFrom(host, configPath string) (*SSHConfig, error) {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir, _ = os.UserHomeDir()
	}
	if configPath == "" {
		if homeDir == "" {
			return nil, fmt.Errorf("cannot locate home directory for SSH config")
		}
		configPath = filepath.Join(homeDir, ".ssh", "config")
	}

	file, err := os.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open SSH config: %w", err)
	}
	defer file.Close()

	return parseSSHConfig(host, file, homeDir)
}

// parseSSHConfig reads ssh_config syntax from r and collects the settings of
// the first Host block matching host. Only the keywords the deploy tool acts
// on are recognized.
func parseSSHConfig(host string, r io.Reader, homeDir string) (*SSHConfig, error) {
	config := &SSHConfig{Host: host}
	inMatchingHost := false
	foundMatch := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		keyword := strings.ToLower(parts[0])
		value := strings.Join(parts[1:], " ")

		switch keyword {
		case "host":
			// A new Host line ends the block we were collecting.
			if inMatchingHost {
				return config, nil
			}
			inMatchingHost = false
			for _, pattern := range parts[1:] {
				if MatchHost(host, pattern) {
					inMatchingHost = true
					foundMatch = true
					break
				}
			}

		case "hostname":
			if inMatchingHost {
				config.HostName = value
			}

		case "user":
			if inMatchingHost {
				config.User = value
			}

		case "identityfile":
			if inMatchingHost {
				config.IdentityFile = expandHome(value, homeDir)
			}

		case "port":
			if inMatchingHost {
				config.Port = value
			}

		case "identityagent":
			if inMatchingHost {
				config.IdentityAgent = expandHome(strings.Trim(value, `"`), homeDir)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SSH config: %w", err)
	}
	if !foundMatch {
		return nil, nil
	}
	return config, nil
}

// expandHome replaces a leading ~/ with the home directory.
func expandHome(value, homeDir string) string {
	if strings.HasPrefix(value, "~/") && homeDir != "" {
		return filepath.Join(homeDir, value[2:])
	}
	return value
}

// MatchHost reports whether target matches an ssh_config Host pattern.
// The * and ? wildcards are supported, so a "Host 10.68.2.*" block covers
// every address on the robot network.
func MatchHost(target, pattern string) bool {
	ok, err := path.Match(pattern, target)
	return err == nil && ok
}

// ResolveSSHTarget resolves connection details for target using ~/.ssh/config,
// with explicit user and keyPath arguments taking precedence.
// Returns: hostname, user, keyPath, identityAgent, error.
func ResolveSSHTarget(target, user, keyPath string) (string, string, string, string, error) {
	targetHost := target
	targetUser := user
	if strings.Contains(target, "@") {
		parts := strings.SplitN(target, "@", 2)
		targetUser = parts[0]
		targetHost = parts[1]
	}

	config, err := ParseSSHConfig(targetHost)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to parse SSH config: %w", err)
	}
	if config == nil {
		return targetHost, targetUser, keyPath, "", nil
	}

	finalHost := targetHost
	if config.HostName != "" {
		finalHost = config.HostName
	}

	finalUser := targetUser
	if finalUser == "" && config.User != "" {
		finalUser = config.User
	}

	finalKey := keyPath
	if finalKey == "" && config.IdentityFile != "" {
		finalKey = config.IdentityFile
	}

	return finalHost, finalUser, finalKey, config.IdentityAgent, nil
}
