package membership

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result statuses beyond a real process exit code.
const (
	StatusOK       = 0
	StatusNotFound = -1
	StatusFailed   = -2
)

// Result is the per-name outcome of a provisioning action. Status is the
// process exit code, or one of the sentinels above.
type Result struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Provisioner starts and stops the external process behind a backend.
// Implementations must be safe for concurrent use.
type Provisioner interface {
	Start(ctx context.Context, name string, port int) Result
	Stop(ctx context.Context, name string) Result
}

// DockerProvisioner runs each backend as a docker container named after it,
// publishing the allocated port against the container's service port.
type DockerProvisioner struct {
	Image   string
	Network string
}

// containerPort is the port the backend image serves on inside the container.
const containerPort = 8080

// Start launches a detached container for the backend.
func (d *DockerProvisioner) Start(ctx context.Context, name string, port int) Result {
	args := []string{"run", "-d", "--name", name, "-p", fmt.Sprintf("%d:%d", port, containerPort)}
	if d.Network != "" {
		args = append(args, "--network", d.Network)
	}
	args = append(args, d.Image)
	return runDocker(ctx, name, args)
}

// Stop force-removes the backend's container.
func (d *DockerProvisioner) Stop(ctx context.Context, name string) Result {
	return runDocker(ctx, name, []string{"rm", "-f", name})
}

func runDocker(ctx context.Context, name string, args []string) Result {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := Result{
		Name:   name,
		Status: StatusOK,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		res.Status = StatusFailed
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Status = exitErr.ExitCode()
		}
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}
	return res
}

// NoopProvisioner is used when external provisioning is disabled;
// membership changes are in-memory only.
type NoopProvisioner struct{}

// Start reports success without doing anything.
func (NoopProvisioner) Start(ctx context.Context, name string, port int) Result {
	return Result{Name: name, Status: StatusOK}
}

// Stop reports success without doing anything.
func (NoopProvisioner) Stop(ctx context.Context, name string) Result {
	return Result{Name: name, Status: StatusOK}
}
