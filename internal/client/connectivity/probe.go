package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/fieldcrm/internal/netx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HTTPProber sends HEAD <base>/health. Any answer below 500 proves the API
// is reachable.
type HTTPProber struct {
	url  string
	http *http.Client
}

func NewHTTPProber(baseURL string) *HTTPProber {
	return &HTTPProber{
		url:  strings.TrimRight(baseURL, "/") + "/health",
		http: &http.Client{},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

// GRPCProber asks a gRPC health service whether the API is SERVING.
type GRPCProber struct {
	conn    *grpc.ClientConn
	health  healthpb.HealthClient
	service string
}

// NewGRPCProber prepares a lazy connection to addr (host:port). Nothing is
// dialled until the first probe.
func NewGRPCProber(addr, service string) (*GRPCProber, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCProber{conn: conn, health: healthpb.NewHealthClient(conn), service: service}, nil
}

func (p *GRPCProber) Probe(ctx context.Context) error {
	resp, err := p.health.Check(ctx, &healthpb.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", resp.GetStatus())
	}
	return nil
}

func (p *GRPCProber) Close() error {
	return p.conn.Close()
}

// NativeSignal picks the local signal for an API at baseURL. Interfaces say
// nothing about a loopback API, so for one the signal is always online.
func NativeSignal(baseURL string) func() bool {
	u, err := url.Parse(baseURL)
	if err == nil {
		host := u.Hostname()
		if host == "localhost" {
			return func() bool { return true }
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			return func() bool { return true }
		}
	}
	return netx.HasUsableInterface
}
