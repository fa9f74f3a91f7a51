package elastic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettings(t *testing.T) {
	tests := []struct {
		name        string
		clusterName string
		hosts       []Host
		wantErr     bool
	}{
		{name: "single host", clusterName: "logs", hosts: []Host{{Host: "10.0.0.1", Port: 9200}}},
		{name: "several hosts", clusterName: "logs", hosts: []Host{{Host: "a", Port: 9200}, {Host: "b", Port: 9201}}},
		{name: "empty name", clusterName: " ", hosts: []Host{{Host: "a", Port: 9200}}, wantErr: true},
		{name: "no hosts", clusterName: "logs", wantErr: true},
		{name: "empty host", clusterName: "logs", hosts: []Host{{Host: "", Port: 9200}}, wantErr: true},
		{name: "port zero", clusterName: "logs", hosts: []Host{{Host: "a", Port: 0}}, wantErr: true},
		{name: "port too large", clusterName: "logs", hosts: []Host{{Host: "a", Port: 70000}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSettings(tt.clusterName, tt.hosts...)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.clusterName, s.ClusterName())
			assert.Equal(t, tt.hosts, s.Hosts())
		})
	}
}

func TestSettings_Immutable(t *testing.T) {
	hosts := []Host{{Host: "a", Port: 9200}}
	s, err := NewSettings("logs", hosts...)
	require.NoError(t, err)

	hosts[0].Host = "changed"
	got := s.Hosts()
	got[0].Port = 1

	assert.Equal(t, []Host{{Host: "a", Port: 9200}}, s.Hosts())
}

func TestLocalSettings(t *testing.T) {
	s := LocalSettings()
	assert.Equal(t, "elasticsearch", s.ClusterName())
	assert.Equal(t, []string{"http://127.0.0.1:9200"}, s.Addresses())
}

func TestSettings_Addresses(t *testing.T) {
	s, err := NewSettings("logs", Host{Host: "es1", Port: 9200}, Host{Host: "::1", Port: 9201})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://es1:9200", "http://[::1]:9201"}, s.Addresses())
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	content := `cluster_name: production
hosts:
  - host: 10.0.0.1
    port: 9201
  - host: 10.0.0.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "production", s.ClusterName())
	assert.Equal(t, []Host{{Host: "10.0.0.1", Port: 9201}, {Host: "10.0.0.2", Port: 9200}}, s.Hosts())
}

func TestLoadSettings_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("hosts: [unterminated"), 0o600))
	_, err = LoadSettings(bad)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	noHosts := filepath.Join(dir, "nohosts.yaml")
	require.NoError(t, os.WriteFile(noHosts, []byte("cluster_name: logs\n"), 0o600))
	_, err = LoadSettings(noHosts)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestParseHosts(t *testing.T) {
	hosts, err := ParseHosts("es1:9201; es2 ;;[::1]:9300")
	require.NoError(t, err)
	assert.Equal(t, []Host{
		{Host: "es1", Port: 9201},
		{Host: "es2", Port: 9200},
		{Host: "::1", Port: 9300},
	}, hosts)

	hosts, err = ParseHosts("")
	require.NoError(t, err)
	assert.Empty(t, hosts)

	_, err = ParseHosts("es1:http")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
