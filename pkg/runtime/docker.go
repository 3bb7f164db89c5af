package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cuemby/autoheal/pkg/config"
	"github.com/cuemby/autoheal/pkg/log"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
)

const (
	// DefaultSocketPath is the default Docker socket
	DefaultSocketPath = "unix:///var/run/docker.sock"
)

// Client is the subset of the Docker API the daemon uses. *client.Client
// satisfies it and is safe for concurrent use, so one handle is shared by
// every remediation goroutine.
type Client interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
}

// Connect opens a Docker client for the configured connection type. The
// connection itself is lazy; the first API call is the real reachability
// check.
func Connect(cfg *config.Config) (*client.Client, error) {
	logger := log.WithComponent("runtime")

	opts, err := clientOpts(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("connection_type", string(cfg.ConnectionType)).Msg("Monitoring Docker")
	switch cfg.ConnectionType {
	case config.ConnectionHTTP:
		logger.Info().Str("address", cfg.TCPAddress()).Msg("Connecting to Docker host")
	case config.ConnectionSSL:
		logger.Info().Str("address", cfg.TCPAddress()).Msg("Connecting to Docker host")
		logger.Info().
			Str("key", cfg.KeyPath()).
			Str("cert", cfg.CertPath()).
			Str("ca", cfg.CAPath()).
			Msg("Certificate information")
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to docker: %w", err)
	}
	return cli, nil
}

func clientOpts(cfg *config.Config) ([]client.Opt, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}

	switch cfg.ConnectionType {
	case config.ConnectionSocket:
		opts = append(opts, client.WithHost(DefaultSocketPath))
	case config.ConnectionHTTP:
		opts = append(opts,
			client.WithHost("tcp://"+cfg.TCPAddress()),
			client.WithTimeout(cfg.TCPTimeout),
		)
	case config.ConnectionSSL:
		tlsConfig, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:   cfg.CAPath(),
			CertFile: cfg.CertPath(),
			KeyFile:  cfg.KeyPath(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS material from %s: %w", cfg.PEMPath, err)
		}
		opts = append(opts,
			client.WithHTTPClient(&http.Client{
				Transport: &http.Transport{TLSClientConfig: tlsConfig},
			}),
			client.WithHost("tcp://"+cfg.TCPAddress()),
			client.WithTimeout(cfg.TCPTimeout),
		)
	default:
		opts = append(opts, client.FromEnv)
	}

	return opts, nil
}
