package openstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Catalog service types used by the client.
const (
	serviceCompute = "compute"
	serviceVolume  = "volumev3"
	serviceBlock   = "block-storage"
)

type authRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password struct {
				User struct {
					Name     string `json:"name"`
					Password string `json:"password"`
					Domain   named  `json:"domain"`
				} `json:"user"`
			} `json:"password"`
		} `json:"identity"`
		Scope struct {
			Project struct {
				Name   string `json:"name"`
				Domain named  `json:"domain"`
			} `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

type named struct {
	Name string `json:"name"`
}

type authResponse struct {
	Token struct {
		Catalog []catalogEntry `json:"catalog"`
	} `json:"token"`
}

type catalogEntry struct {
	Type      string     `json:"type"`
	Endpoints []endpoint `json:"endpoints"`
}

type endpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

// authenticate requests a project scoped keystone v3 token and resolves the
// public compute and volume endpoints from the catalog.
func (c *Client) authenticate(ctx context.Context) error {
	var req authRequest
	req.Auth.Identity.Methods = []string{"password"}
	req.Auth.Identity.Password.User.Name = c.cfg.Username
	req.Auth.Identity.Password.User.Password = c.cfg.Password
	req.Auth.Identity.Password.User.Domain.Name = c.cfg.UserDomain
	req.Auth.Scope.Project.Name = c.cfg.Project
	req.Auth.Scope.Project.Domain.Name = c.cfg.ProjectDomain

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.AuthURL, "/")
	if !strings.HasSuffix(url, "/v3") {
		url += "/v3"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/auth/tokens", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to authenticate against %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication against %s failed: status %d", url, resp.StatusCode)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	token := resp.Header.Get("X-Subject-Token")
	if token == "" {
		return fmt.Errorf("authentication against %s returned no token", url)
	}

	compute := c.endpoint(parsed.Token.Catalog, serviceCompute)
	if compute == "" {
		return fmt.Errorf("no %s endpoint in service catalog", serviceCompute)
	}
	volume := c.endpoint(parsed.Token.Catalog, serviceVolume)
	if volume == "" {
		volume = c.endpoint(parsed.Token.Catalog, serviceBlock)
	}
	if volume == "" {
		return fmt.Errorf("no %s endpoint in service catalog", serviceVolume)
	}

	c.token = token
	c.computeURL = strings.TrimSuffix(compute, "/")
	c.volumeURL = strings.TrimSuffix(volume, "/")
	return nil
}

func (c *Client) endpoint(catalog []catalogEntry, serviceType string) string {
	for _, entry := range catalog {
		if entry.Type != serviceType {
			continue
		}
		for _, ep := range entry.Endpoints {
			if ep.Interface != "public" {
				continue
			}
			if c.cfg.Region != "" && ep.Region != c.cfg.Region && ep.RegionID != c.cfg.Region {
				continue
			}
			return ep.URL
		}
	}
	return ""
}
