package openstack

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"inventory-sync/core/reconcile"
	"inventory-sync/core/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// serverMicroversion embeds the flavor details in server listings.
const serverMicroversion = "2.47"

// Client reads availability zones, hypervisors, volumes and servers from the
// OpenStack compute and block storage APIs.
type Client struct {
	cfg  reconcile.SourceConfig
	http *http.Client
	log  *zap.Logger

	authMu     sync.Mutex
	token      string
	computeURL string
	volumeURL  string

	cacheMu sync.Mutex
	cache   *collections
}

type collections struct {
	zones       []reconcile.AvailabilityZone
	hypervisors []reconcile.Hypervisor
	volumes     []reconcile.Volume
	servers     []reconcile.Server
}

// NewClient creates a client for the given source. No request is sent until
// the first collection is read.
func NewClient(cfg reconcile.SourceConfig, log *zap.Logger) (*Client, error) {
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("source %s: auth_url is required", cfg.Name)
	}
	if cfg.Username == "" || cfg.Password == "" || cfg.Project == "" {
		return nil, fmt.Errorf("source %s: username, password and project are required", cfg.Name)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS() {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user-configured
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(timeout) * time.Second, Transport: transport},
		log:  log.With(zap.String("source", cfg.Name)),
	}, nil
}

// Name returns the configured source name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Prefetch reads all collections concurrently so the reconciliation phases
// work on one consistent view. Later reads return the prefetched data.
func (c *Client) Prefetch(ctx context.Context) error {
	if err := c.ensureAuth(ctx); err != nil {
		return err
	}

	var data collections
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data.zones, err = c.fetchAvailabilityZones(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.hypervisors, err = c.fetchHypervisors(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.volumes, err = c.fetchVolumes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.servers, err = c.fetchServers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.cacheMu.Lock()
	c.cache = &data
	c.cacheMu.Unlock()

	c.log.Debug("Prefetched source data",
		zap.Int("availability_zones", len(data.zones)),
		zap.Int("hypervisors", len(data.hypervisors)),
		zap.Int("volumes", len(data.volumes)),
		zap.Int("servers", len(data.servers)))
	return nil
}

func (c *Client) cached() *collections {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	return c.cache
}

// AvailabilityZones implements reconcile.Source.
func (c *Client) AvailabilityZones(ctx context.Context) ([]reconcile.AvailabilityZone, error) {
	if data := c.cached(); data != nil {
		return data.zones, nil
	}
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}
	return c.fetchAvailabilityZones(ctx)
}

// Hypervisors implements reconcile.Source.
func (c *Client) Hypervisors(ctx context.Context) ([]reconcile.Hypervisor, error) {
	if data := c.cached(); data != nil {
		return data.hypervisors, nil
	}
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}
	return c.fetchHypervisors(ctx)
}

// Volumes implements reconcile.Source.
func (c *Client) Volumes(ctx context.Context) ([]reconcile.Volume, error) {
	if data := c.cached(); data != nil {
		return data.volumes, nil
	}
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}
	return c.fetchVolumes(ctx)
}

// Servers implements reconcile.Source.
func (c *Client) Servers(ctx context.Context) ([]reconcile.Server, error) {
	if data := c.cached(); data != nil {
		return data.servers, nil
	}
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}
	return c.fetchServers(ctx)
}

func (c *Client) ensureAuth(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	if c.token != "" {
		return nil
	}
	return c.authenticate(ctx)
}

type apiAvailabilityZone struct {
	ZoneName string          `json:"zoneName"`
	Hosts    json.RawMessage `json:"hosts"`
}

func (c *Client) fetchAvailabilityZones(ctx context.Context) ([]reconcile.AvailabilityZone, error) {
	raw, err := fetchAll[apiAvailabilityZone](ctx, c, c.computeURL+"/os-availability-zone/detail", "availabilityZoneInfo", "")
	if err != nil {
		return nil, err
	}
	zones := make([]reconcile.AvailabilityZone, 0, len(raw))
	for _, az := range raw {
		hosts, _, err := objectKeys(az.Hosts)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hosts of zone %s: %w", az.ZoneName, err)
		}
		zones = append(zones, reconcile.AvailabilityZone{Name: az.ZoneName, Hosts: hosts})
	}
	return zones, nil
}

type apiHypervisor struct {
	Hostname string `json:"hypervisor_hostname"`
	Status   string `json:"status"`
	Type     string `json:"hypervisor_type"`
	Version  any    `json:"hypervisor_version"`
	HostIP   any    `json:"host_ip"`
	Service  struct {
		Host string `json:"host"`
	} `json:"service"`
}

func (c *Client) fetchHypervisors(ctx context.Context) ([]reconcile.Hypervisor, error) {
	raw, err := fetchAll[apiHypervisor](ctx, c, c.computeURL+"/os-hypervisors/detail", "hypervisors", "")
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Hypervisor, 0, len(raw))
	for _, h := range raw {
		out = append(out, reconcile.Hypervisor{
			Name:              h.Hostname,
			ServiceHost:       h.Service.Host,
			Status:            h.Status,
			HypervisorType:    h.Type,
			HypervisorVersion: utils.ToString(h.Version),
			HostIP:            utils.StringOrEmpty(h.HostIP),
		})
	}
	return out, nil
}

type apiVolume struct {
	ID   string `json:"id"`
	Size any    `json:"size"`
}

func (c *Client) fetchVolumes(ctx context.Context) ([]reconcile.Volume, error) {
	raw, err := fetchAll[apiVolume](ctx, c, c.volumeURL+"/volumes/detail?all_tenants=1", "volumes", "")
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Volume, 0, len(raw))
	for _, v := range raw {
		out = append(out, reconcile.Volume{ID: v.ID, Size: utils.ToInt(v.Size)})
	}
	return out, nil
}

type apiServer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	AvailabilityZone string `json:"OS-EXT-AZ:availability_zone"`
	Flavor           struct {
		OriginalName string `json:"original_name"`
		RAM          any    `json:"ram"`
		VCPUs        any    `json:"vcpus"`
	} `json:"flavor"`
	Volumes []struct {
		ID string `json:"id"`
	} `json:"os-extended-volumes:volumes_attached"`
	Addresses json.RawMessage `json:"addresses"`
}

type apiAddress struct {
	Addr    string `json:"addr"`
	Version int    `json:"version"`
	MAC     string `json:"OS-EXT-IPS-MAC:mac_addr"`
}

func (c *Client) fetchServers(ctx context.Context) ([]reconcile.Server, error) {
	raw, err := fetchAll[apiServer](ctx, c, c.computeURL+"/servers/detail?all_tenants=1", "servers", serverMicroversion)
	if err != nil {
		return nil, err
	}
	out := make([]reconcile.Server, 0, len(raw))
	for _, s := range raw {
		server := reconcile.Server{
			ID:               s.ID,
			Name:             s.Name,
			Status:           s.Status,
			AvailabilityZone: s.AvailabilityZone,
			Flavor: reconcile.Flavor{
				OriginalName: s.Flavor.OriginalName,
				RAM:          utils.ToInt(s.Flavor.RAM),
				VCPUs:        utils.ToInt(s.Flavor.VCPUs),
			},
		}
		for _, v := range s.Volumes {
			server.AttachedVolumes = append(server.AttachedVolumes, v.ID)
		}

		networks, values, err := objectKeys(s.Addresses)
		if err != nil {
			return nil, fmt.Errorf("failed to decode addresses of server %s: %w", s.Name, err)
		}
		for i, network := range networks {
			var addrs []apiAddress
			if err := json.Unmarshal(values[i], &addrs); err != nil {
				return nil, fmt.Errorf("failed to decode addresses of server %s: %w", s.Name, err)
			}
			sn := reconcile.ServerNetwork{Network: network}
			for _, a := range addrs {
				sn.Addresses = append(sn.Addresses, reconcile.ServerAddress{
					Addr:    a.Addr,
					Version: a.Version,
					MAC:     utils.NormalizeMAC(a.MAC),
				})
			}
			server.Networks = append(server.Networks, sn)
		}
		out = append(out, server)
	}
	return out, nil
}

type link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// fetchAll follows the "<key>_links" next links until the collection is
// exhausted.
func fetchAll[T any](ctx context.Context, c *Client, url, key, microversion string) ([]T, error) {
	var out []T
	for url != "" {
		page, err := c.get(ctx, url, microversion)
		if err != nil {
			return nil, err
		}

		var items []T
		if raw, ok := page[key]; ok && len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
		}
		out = append(out, items...)

		url = ""
		if raw, ok := page[key+"_links"]; ok {
			var links []link
			if err := json.Unmarshal(raw, &links); err != nil {
				return nil, fmt.Errorf("failed to decode %s links: %w", key, err)
			}
			for _, l := range links {
				if l.Rel == "next" {
					url = l.Href
				}
			}
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, url, microversion string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if microversion != "" {
		req.Header.Set("X-OpenStack-Nova-API-Version", microversion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s failed: status %d", url, resp.StatusCode)
	}

	var page map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return page, nil
}

// objectKeys returns the keys of a JSON object in document order together
// with their raw values. null yields nothing.
func objectKeys(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	return keys, values, nil
}
