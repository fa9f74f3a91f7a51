package elastic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SteelMorgan/logdoc/internal/retry"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog"
)

type clusterInfo struct {
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number string `json:"number"`
	} `json:"version"`
}

// NewClient connects to the cluster described by settings and checks
// that it answers. A cluster reporting another name is only logged.
func NewClient(ctx context.Context, settings Settings, retryCfg retry.Config, logger zerolog.Logger) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: settings.Addresses(),
		// retries are handled by the retry package
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	info, err := retry.DoWithResult(ctx, retryCfg, logger, func() (clusterInfo, error) {
		return fetchInfo(ctx, es)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reach elasticsearch: %w", err)
	}

	if info.ClusterName != settings.ClusterName() {
		logger.Warn().
			Str("expected", settings.ClusterName()).
			Str("actual", info.ClusterName).
			Msg("Connected to a cluster with an unexpected name")
	}

	logger.Info().
		Strs("addresses", settings.Addresses()).
		Str("cluster_name", info.ClusterName).
		Str("version", info.Version.Number).
		Msg("Connected to Elasticsearch")

	return es, nil
}

func fetchInfo(ctx context.Context, es *elasticsearch.Client) (clusterInfo, error) {
	res, err := es.Info(es.Info.WithContext(ctx))
	if err != nil {
		return clusterInfo{}, fmt.Errorf("info request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return clusterInfo{}, fmt.Errorf("info request failed: status %d", res.StatusCode)
	}

	var info clusterInfo
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return clusterInfo{}, fmt.Errorf("failed to decode cluster info: %w", err)
	}
	return info, nil
}
