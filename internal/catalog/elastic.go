package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "supported_devices_v2"

// catalog document columns
const (
	columnModel        = "Model Name"
	columnManufacturer = "Manufacturer"
)

type ElasticConfig struct {
	Host     string
	Username string
	Password string
	Index    string
	Timeout  time.Duration
}

// ElasticSearcher queries the supported-devices index.
type ElasticSearcher struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

func NewElasticSearcher(cfg ElasticConfig) (*ElasticSearcher, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("elastic host is required")
	}
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{strings.TrimRight(cfg.Host, "/")},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, err
	}
	return &ElasticSearcher{es: es, index: cfg.Index, timeout: cfg.Timeout}, nil
}

func (s *ElasticSearcher) Search(ctx context.Context, query string, target Target) (Result, error) {
	body, err := json.Marshal(buildSearchBody(query, target))
	if err != nil {
		return Result{}, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.es.Search(
		s.es.Search.WithContext(searchCtx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		if isTimeout(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Result{}, err
	}
	defer res.Body.Close()

	if res.IsError() {
		respBody, _ := io.ReadAll(res.Body)
		if res.StatusCode == 408 || res.StatusCode == 504 {
			return Result{}, fmt.Errorf("%w: status=%d", ErrTimeout, res.StatusCode)
		}
		return Result{}, fmt.Errorf("catalog search status=%d body=%s", res.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return decodeSearchResponse(res.Body, string(target))
}

func buildSearchBody(query string, target Target) map[string]any {
	fields := []string{columnModel + "^2", columnManufacturer}
	suggestField := columnModel
	if target == TargetManufacturer {
		fields = []string{columnManufacturer}
		suggestField = columnManufacturer
	}
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"type":   "best_fields",
				"fields": fields,
			},
		},
		"suggest": map[string]any{
			string(target): map[string]any{
				"text":   query,
				"phrase": map[string]any{"field": suggestField},
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Suggest map[string][]struct {
		Options []struct {
			Text  string  `json:"text"`
			Score float64 `json:"score"`
		} `json:"options"`
	} `json:"suggest"`
}

type document struct {
	ModelName    string          `json:"Model Name"`
	Manufacturer string          `json:"Manufacturer"`
	FormFactor   string          `json:"Form Factor"`
	AndroidSDK   json.RawMessage `json:"Android SDK Versions"`
}

func decodeSearchResponse(r io.Reader, suggestName string) (Result, error) {
	var out searchResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode catalog response: %w", err)
	}

	var result Result
	if out.Hits.Total.Value > 0 && len(out.Hits.Hits) > 0 {
		doc := out.Hits.Hits[0].Source
		result.Hit = &Hit{
			ModelName:    strings.TrimSpace(doc.ModelName),
			Manufacturer: strings.TrimSpace(doc.Manufacturer),
			FormFactor:   strings.TrimSpace(doc.FormFactor),
			AndroidSDK:   truthy(doc.AndroidSDK),
		}
	}

	for _, entry := range out.Suggest[suggestName] {
		if len(entry.Options) == 0 {
			continue
		}
		best := entry.Options[0]
		for _, opt := range entry.Options[1:] {
			if opt.Score > best.Score {
				best = opt
			}
		}
		result.Suggestion = best.Text
		break
	}
	return result, nil
}

// truthy reports whether a raw JSON value carries data: null, false, 0, ""
// and empty containers do not.
func truthy(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	switch v {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
