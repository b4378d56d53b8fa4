package searchindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	json "github.com/goccy/go-json"
	"github.com/heptiolabs/healthcheck"
	"github.com/sensornet-io/sensornet/cmd/sensornet/models"
	"go.uber.org/zap"
)

const indexName = "sensors"

// Index is the secondary full-text index over name, type and description. It
// is never authoritative and is rebuilt entirely from the profile store.
type Index struct {
	client *elasticsearch.Client
}

func Connect(addresses []string, username, password string) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infof("Search index connected to elasticsearch at %v", addresses)
	return &Index{client: client}, nil
}

// IndexDocument writes the search projection of a profile. The document
// carries no id; hits are resolved back to an identity by exact name.
func (i *Index) IndexDocument(ctx context.Context, name, sensorType, description string) error {
	body, err := json.Marshal(map[string]string{
		"name":        name,
		"type":        sensorType,
		"description": description,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{Index: indexName, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index request failed: %s", res.String())
	}
	return nil
}

func buildQuery(mode string, fields map[string]interface{}) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			mode: fields,
		},
	})
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs one native query and returns the hit names in relevance order,
// capped at size. A rejected query surfaces as MalformedQueryError, anything
// else as DownstreamError.
func (i *Index) Search(ctx context.Context, mode string, fields map[string]interface{}, size int) ([]string, error) {
	body, err := buildQuery(mode, fields)
	if err != nil {
		return nil, &models.MalformedQueryError{Err: err}
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(indexName),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSize(size),
	)
	if err != nil {
		return nil, &models.DownstreamError{Store: "search", Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		if res.StatusCode >= http.StatusBadRequest && res.StatusCode < http.StatusInternalServerError {
			return nil, &models.MalformedQueryError{Err: fmt.Errorf("search rejected: %s", raw)}
		}
		return nil, &models.DownstreamError{Store: "search", Err: fmt.Errorf("search failed: %s", raw)}
	}

	var parsed searchResponse
	if err = json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		names = append(names, hit.Source.Name)
	}
	if len(names) > size {
		names = names[:size]
	}
	return names, nil
}

func (i *Index) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), 5*time.Second)
		defer cncl()
		res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("elasticsearch ping failed: %s", res.String())
		}
		return nil
	}
}
