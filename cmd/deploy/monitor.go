package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashgrove-robotics/fieldpose/internal/deploy"
	"github.com/ashgrove-robotics/fieldpose/internal/httputil"
)

// Monitor checks the state of a deployed fieldpose service, combining
// systemd state over SSH with probes of the monitor HTTP endpoints.
type Monitor struct {
	Target        string
	SSHUser       string
	SSHKey        string
	IdentityAgent string
	MonitorPort   int

	// HTTP probes the monitor endpoints. Defaults to a standard client
	// with a short timeout; tests inject a mock.
	HTTP httputil.HTTPClient

	// Exec runs the remote commands. Defaults to a fresh SSH executor;
	// tests inject one backed by a mock command builder.
	Exec *deploy.Executor
}

// HealthStatus is the result of a health check.
type HealthStatus struct {
	Healthy bool
	Message string
	Details string
}

// Format renders the health result for the terminal.
func (h *HealthStatus) Format() string {
	mark := "✓"
	if !h.Healthy {
		mark = "✗"
	}
	return fmt.Sprintf("%s %s\n\n%s", mark, h.Message, h.Details)
}

// ServiceStatus is a point-in-time snapshot of the deployed service.
type ServiceStatus struct {
	Unit string
	API  *apiStatus
	Logs string
}

// apiStatus mirrors the fields of the monitor's /api/status response that
// the deploy tool reports.
type apiStatus struct {
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	GitSHA        string  `json:"git_sha"`
	Uptime        string  `json:"uptime"`
	TableRevision string  `json:"table_revision"`
	BluePoses     int     `json:"blue_poses"`
	RedPoses      int     `json:"red_poses"`
	OffsetMeters  float64 `json:"offset_m"`
	Fallback      string  `json:"fallback_alliance"`
	Alliance      string  `json:"alliance"`
}

// Format renders the status for the terminal.
func (s *ServiceStatus) Format() string {
	var b strings.Builder

	b.WriteString("=== Service ===\n")
	b.WriteString(s.Unit)
	b.WriteString("\n")

	b.WriteString("=== Pose engine ===\n")
	if s.API != nil {
		fmt.Fprintf(&b, "Version:   %s (%s), up %s\n", s.API.Version, s.API.GitSHA, s.API.Uptime)
		fmt.Fprintf(&b, "Tables:    %s (%d blue, %d red), offset %.2fm\n",
			s.API.TableRevision, s.API.BluePoses, s.API.RedPoses, s.API.OffsetMeters)
		alliance := s.API.Alliance
		if alliance == "" {
			alliance = "not reported"
		}
		fmt.Fprintf(&b, "Alliance:  %s (fallback %s)\n", alliance, s.API.Fallback)
	} else {
		b.WriteString("Monitor endpoint not reachable\n")
	}
	b.WriteString("\n")

	b.WriteString("=== Recent logs ===\n")
	b.WriteString(s.Logs)

	return b.String()
}

func (m *Monitor) executor() *deploy.Executor {
	if m.Exec != nil {
		return m.Exec
	}
	return newExecutor(m.Target, m.SSHUser, m.SSHKey, m.IdentityAgent, false)
}

func (m *Monitor) httpClient() httputil.HTTPClient {
	if m.HTTP != nil {
		return m.HTTP
	}
	return httputil.NewStandardClient(&http.Client{Timeout: 5 * time.Second})
}

// monitorURL builds the URL of a monitor endpoint on the target.
func (m *Monitor) monitorURL(path string) string {
	host := m.Target
	if host == "" {
		host = "localhost"
	}
	// Strip a user@ prefix; HTTP wants the bare host.
	if idx := strings.Index(host, "@"); idx >= 0 {
		host = host[idx+1:]
	}

	port := m.MonitorPort
	if port == 0 {
		port = 5808
	}

	return fmt.Sprintf("http://%s:%d%s", host, port, path)
}

// GetStatus gathers systemd state, the monitor's status report, and recent
// logs into one snapshot.
func (m *Monitor) GetStatus() (*ServiceStatus, error) {
	exec := m.executor()
	status := &ServiceStatus{}

	unit, err := exec.RunSudo(fmt.Sprintf("systemctl status %s --no-pager", serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to get service status: %w", err)
	}
	status.Unit = unit

	logs, err := exec.RunSudo(fmt.Sprintf("journalctl -u %s -n 15 --no-pager", serviceUnit))
	if err == nil {
		status.Logs = logs
	}

	status.API = m.fetchAPIStatus()

	return status, nil
}

// fetchAPIStatus probes /api/status and returns nil when the monitor is
// unreachable or returns garbage.
func (m *Monitor) fetchAPIStatus() *apiStatus {
	resp, err := m.httpClient().Get(m.monitorURL("/api/status"))
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var api apiStatus
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil
	}
	return &api
}

// CheckHealth runs the full set of health checks against the target.
func (m *Monitor) CheckHealth() (*HealthStatus, error) {
	exec := m.executor()

	health := &HealthStatus{Healthy: true}
	var checks []string

	// Check 1: Service is running
	output, err := exec.RunSudo(fmt.Sprintf("systemctl is-active %s", serviceName))
	if err != nil || strings.TrimSpace(output) != "active" {
		health.Healthy = false
		health.Message = "Service is not running"
		checks = append(checks, "✗ Service: NOT RUNNING")
	} else {
		checks = append(checks, "✓ Service: RUNNING")
	}

	// Check 2: Start time, to spot crash loops
	uptimeOutput, err := exec.RunSudo(fmt.Sprintf("systemctl show %s --property=ActiveEnterTimestamp --value", serviceName))
	if err == nil {
		checks = append(checks, fmt.Sprintf("✓ Started: %s", strings.TrimSpace(uptimeOutput)))
	}

	// Check 3: Recent errors in logs
	logsOutput, err := exec.RunSudo(fmt.Sprintf("journalctl -u %s -n 20 --no-pager", serviceUnit))
	if err == nil {
		errorCount := strings.Count(strings.ToLower(logsOutput), "error")
		if errorCount > 5 {
			health.Healthy = false
			if health.Message == "" {
				health.Message = fmt.Sprintf("Too many errors in logs (%d)", errorCount)
			}
			checks = append(checks, fmt.Sprintf("✗ Logs: %d errors found", errorCount))
		} else {
			checks = append(checks, fmt.Sprintf("✓ Logs: %d errors (acceptable)", errorCount))
		}
	}

	// Check 4: Monitor endpoint responding
	resp, err := m.httpClient().Get(m.monitorURL("/health"))
	if err != nil {
		health.Healthy = false
		if health.Message == "" {
			health.Message = "Monitor endpoint not responding"
		}
		checks = append(checks, "✗ Monitor: NOT RESPONDING")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			checks = append(checks, "✓ Monitor: RESPONDING")
			if api := m.fetchAPIStatus(); api != nil {
				checks = append(checks, fmt.Sprintf("  Tables: %s (%d blue, %d red)",
					api.TableRevision, api.BluePoses, api.RedPoses))
				if api.Alliance != "" {
					checks = append(checks, fmt.Sprintf("  Alliance: %s", api.Alliance))
				}
			}
		} else {
			health.Healthy = false
			if health.Message == "" {
				health.Message = fmt.Sprintf("Monitor returned status %d", resp.StatusCode)
			}
			checks = append(checks, fmt.Sprintf("✗ Monitor: Status %d", resp.StatusCode))
		}
	}

	// Check 5: Telemetry database present
	dbCheck, err := exec.RunSudo(fmt.Sprintf("test -f %s && echo 'exists' || echo 'missing'", remoteDBPath))
	if err == nil && strings.TrimSpace(dbCheck) == "exists" {
		sizeOutput, err := exec.RunSudo(fmt.Sprintf("du -h %s | cut -f1", remoteDBPath))
		if err == nil {
			checks = append(checks, fmt.Sprintf("✓ Database: %s", strings.TrimSpace(sizeOutput)))
		} else {
			checks = append(checks, "✓ Database: EXISTS")
		}
	} else {
		// The service can legitimately run with telemetry off.
		checks = append(checks, "- Database: not present (telemetry may be disabled)")
	}

	health.Details = strings.Join(checks, "\n")

	if health.Healthy {
		health.Message = "All checks passed"
	}

	return health, nil
}
