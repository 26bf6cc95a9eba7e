// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Scheme tags the location kind of an endpoint
type Scheme string

const (
	SchemeLocal Scheme = "local"
	SchemeSSH   Scheme = "ssh"
	SchemeSFTP  Scheme = "sftp"
	SchemeS3    Scheme = "s3"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// 📍 Endpoint is a resolved location descriptor: a local filesystem path, or
// a remote (scheme, host, path) triple with credentials carried as opaque
// fields. Engines never look inside; only the matching backend does.
type Endpoint struct {
	Scheme   Scheme
	User     string
	Password string
	Host     string
	Port     int
	Path     string
}

// IsLocal reports whether the endpoint refers to the local filesystem
func (e *Endpoint) IsLocal() bool {
	return e.Scheme == SchemeLocal
}

// HostPort renders host:port, omitting the port when unset
func (e *Endpoint) HostPort() string {
	if e.Port == 0 {
		return e.Host
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// String renders the endpoint the way the user wrote it, minus credentials
func (e *Endpoint) String() string {
	if e.IsLocal() {
		return e.Path
	}
	host := e.HostPort()
	if e.User != "" {
		host = e.User + "@" + host
	}
	return fmt.Sprintf("%s://%s%s", e.Scheme, host, e.Path)
}

// 🎯 ParseEndpoint resolves a command-line location argument. Three forms
// are recognized, mirroring what the transfer tools themselves accept:
//
//   - scheme://[user[:pass]@]host[:port]/path   (ssh, sftp, s3, http, https)
//   - user@host:path                            (scp shorthand, implies ssh)
//   - anything else                             (local filesystem path)
func ParseEndpoint(raw string) (*Endpoint, error) {
	if raw == "" {
		return nil, errors.New("empty path")
	}

	if strings.Contains(raw, "://") {
		return parseURLEndpoint(raw)
	}

	if ep, ok := parseSCPEndpoint(raw); ok {
		return ep, nil
	}

	return &Endpoint{Scheme: SchemeLocal, Path: raw}, nil
}

func parseURLEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Errorf("parsing %q: %w", raw, err)
	}

	scheme := Scheme(strings.ToLower(u.Scheme))
	switch scheme {
	case SchemeSSH, SchemeSFTP, SchemeS3, SchemeHTTP, SchemeHTTPS:
	case "file":
		return &Endpoint{Scheme: SchemeLocal, Path: u.Path}, nil
	default:
		return nil, errors.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
	}

	ep := &Endpoint{
		Scheme: scheme,
		User:   u.User.Username(),
		Host:   u.Hostname(),
		Path:   u.Path,
	}
	if pass, ok := u.User.Password(); ok {
		ep.Password = pass
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Errorf("invalid port in %q: %w", raw, err)
		}
		ep.Port = port
	}
	return ep, nil
}

// parseSCPEndpoint recognizes the user@host:path shorthand. Windows drive
// letters (C:\...) and local paths containing @ fall through to local.
func parseSCPEndpoint(raw string) (*Endpoint, bool) {
	at := strings.Index(raw, "@")
	if at <= 0 {
		return nil, false
	}
	rest := raw[at+1:]
	colon := strings.Index(rest, ":")
	if colon <= 0 || strings.HasPrefix(rest[colon+1:], "//") {
		return nil, false
	}
	return &Endpoint{
		Scheme: SchemeSSH,
		User:   raw[:at],
		Host:   rest[:colon],
		Path:   rest[colon+1:],
	}, true
}
