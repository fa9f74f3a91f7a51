package elastic

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	DefaultClusterName = "elasticsearch"
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 9200
)

// Host is one cluster node address
type Host struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (h Host) String() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// Settings identify the search cluster. The zero value is not usable;
// build Settings with NewSettings, LocalSettings or LoadSettings.
type Settings struct {
	clusterName string
	hosts       []Host
}

// NewSettings validates and copies its arguments
func NewSettings(clusterName string, hosts ...Host) (Settings, error) {
	clusterName = strings.TrimSpace(clusterName)
	if clusterName == "" {
		return Settings{}, fmt.Errorf("%w: cluster name is empty", domain.ErrConfiguration)
	}
	if len(hosts) == 0 {
		return Settings{}, fmt.Errorf("%w: cluster %s has no hosts", domain.ErrConfiguration, clusterName)
	}

	copied := make([]Host, len(hosts))
	for i, h := range hosts {
		if strings.TrimSpace(h.Host) == "" {
			return Settings{}, fmt.Errorf("%w: host %d of cluster %s is empty", domain.ErrConfiguration, i+1, clusterName)
		}
		if h.Port <= 0 || h.Port > 65535 {
			return Settings{}, fmt.Errorf("%w: port of %s must be between 1 and 65535", domain.ErrConfiguration, h.Host)
		}
		copied[i] = Host{Host: strings.TrimSpace(h.Host), Port: h.Port}
	}

	return Settings{clusterName: clusterName, hosts: copied}, nil
}

// LocalSettings points at a single default node on the loopback address
func LocalSettings() Settings {
	return Settings{
		clusterName: DefaultClusterName,
		hosts:       []Host{{Host: DefaultHost, Port: DefaultPort}},
	}
}

// ClusterName returns the expected cluster name
func (s Settings) ClusterName() string {
	return s.clusterName
}

// Hosts returns a copy of the node addresses, in order
func (s Settings) Hosts() []Host {
	hosts := make([]Host, len(s.hosts))
	copy(hosts, s.hosts)
	return hosts
}

// Addresses returns the node URLs for the HTTP client
func (s Settings) Addresses() []string {
	addrs := make([]string, 0, len(s.hosts))
	for _, h := range s.hosts {
		addrs = append(addrs, "http://"+h.String())
	}
	return addrs
}

// settingsFile is the yaml layout of a cluster settings file
type settingsFile struct {
	ClusterName string `yaml:"cluster_name"`
	Hosts       []Host `yaml:"hosts"`
}

// LoadSettings loads cluster settings from a yaml file:
//
//	cluster_name: logs
//	hosts:
//	  - host: 10.0.0.1
//	    port: 9200
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return Settings{}, fmt.Errorf("%w: failed to read cluster settings: %v", domain.ErrConfiguration, err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("%w: failed to parse cluster settings: %v", domain.ErrConfiguration, err)
	}

	// Port defaults like the HTTP API does
	for i := range f.Hosts {
		if f.Hosts[i].Port == 0 {
			f.Hosts[i].Port = DefaultPort
		}
	}

	return NewSettings(f.ClusterName, f.Hosts...)
}

// ParseHosts parses a semicolon-separated list of host[:port] entries
func ParseHosts(list string) ([]Host, error) {
	var hosts []Host
	for _, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		host, portStr, err := net.SplitHostPort(entry)
		if err != nil {
			// no port given
			hosts = append(hosts, Host{Host: strings.Trim(entry, "[]"), Port: DefaultPort})
			continue
		}

		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port in %q", domain.ErrConfiguration, entry)
		}
		hosts = append(hosts, Host{Host: host, Port: port})
	}
	return hosts, nil
}
