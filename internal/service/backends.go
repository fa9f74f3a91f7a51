package service

import (
	"context"
	"fmt"

	"github.com/SteelMorgan/logdoc/internal/clickhouse"
	"github.com/SteelMorgan/logdoc/internal/config"
	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/elastic"
	"github.com/SteelMorgan/logdoc/internal/writer"
)

// connectBackend is the default BackendFactory
func (s *ExtractService) connectBackend(ctx context.Context, name string) (writer.Backend, func() error, error) {
	retryCfg := s.cfg.RetryConfig()

	switch name {
	case config.BackendElasticsearch:
		settings, err := s.cfg.ElasticSettings()
		if err != nil {
			return nil, nil, err
		}
		client, err := elastic.NewClient(ctx, settings, retryCfg, s.logger)
		if err != nil {
			return nil, nil, err
		}
		return writer.NewElasticsearchBackend(client), nil, nil

	case config.BackendClickHouse:
		client, err := clickhouse.NewClient(ctx, clickhouse.Options{
			Host:     s.cfg.ClickHouseHost,
			Port:     s.cfg.ClickHousePort,
			Database: s.cfg.ClickHouseDB,
		}, retryCfg, s.logger)
		if err != nil {
			return nil, nil, err
		}
		if err := client.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return writer.NewClickHouseBackend(client.Conn(), client.Database()), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrConfiguration, name)
	}
}
