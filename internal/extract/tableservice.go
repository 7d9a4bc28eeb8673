package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
)

// TableServiceClient implements TableExtractor against an external
// table-detection HTTP service (camelot/tabula behind a thin API).
type TableServiceClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *slog.Logger
}

type detectRequest struct {
	Path string `json:"path"`
}

type detectResponse struct {
	Regions []struct {
		Page       int     `json:"page"`
		Method     string  `json:"method"`
		Confidence float64 `json:"confidence"`
	} `json:"regions"`
}

type extractRequest struct {
	Path       string  `json:"path"`
	Page       int     `json:"page"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
}

type extractResponse struct {
	Headers  []string   `json:"headers"`
	Rows     [][]string `json:"rows"`
	Accuracy float64    `json:"accuracy"`
}

func NewTableServiceClient(baseURL string, log *slog.Logger) *TableServiceClient {
	if log == nil {
		log = slog.Default()
	}
	return &TableServiceClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Log:        log,
	}
}

func (c *TableServiceClient) DetectTables(ctx context.Context, path string) ([]entity.TableRegion, error) {
	var resp detectResponse
	if err := c.post(ctx, "/v1/tables/detect", detectRequest{Path: path}, &resp); err != nil {
		return nil, fmt.Errorf("%w: detect: %v", common.ErrExtractionUnavailable, err)
	}
	regions := make([]entity.TableRegion, 0, len(resp.Regions))
	for _, r := range resp.Regions {
		regions = append(regions, entity.TableRegion{Page: r.Page, Method: r.Method, Confidence: r.Confidence})
	}
	c.Log.Info("tables.detect.ok", "path", path, "regions", len(regions))
	return regions, nil
}

func (c *TableServiceClient) ExtractTable(ctx context.Context, path string, region entity.TableRegion) (entity.Table, error) {
	var resp extractResponse
	req := extractRequest{Path: path, Page: region.Page, Method: region.Method, Confidence: region.Confidence}
	if err := c.post(ctx, "/v1/tables/extract", req, &resp); err != nil {
		return entity.Table{}, fmt.Errorf("%w: extract: %v", common.ErrExtractionUnavailable, err)
	}
	return entity.Table{
		Method:     region.Method,
		Confidence: resp.Accuracy,
		Page:       region.Page,
		Headers:    resp.Headers,
		Rows:       resp.Rows,
	}, nil
}

func (c *TableServiceClient) post(ctx context.Context, route string, body, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+route, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
