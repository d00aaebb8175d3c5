package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Skotchmaster/returns/services/returns/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
)

func NewClient(ctx context.Context, url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type Doc struct {
	ID             string    `json:"id"`
	RMACode        string    `json:"rma_code"`
	UserID         string    `json:"user_id"`
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	Resolution     string    `json:"resolution"`
	Notes          string    `json:"notes,omitempty"`
	AdminNotes     string    `json:"admin_notes,omitempty"`
	Reasons        []string  `json:"reasons,omitempty"`
	ConditionNotes string    `json:"condition_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func DocFor(ret models.Return) Doc {
	d := Doc{
		ID:         ret.ID.String(),
		RMACode:    ret.RMACode,
		UserID:     ret.UserID.String(),
		OrderID:    ret.OrderID.String(),
		Status:     string(ret.Status),
		Resolution: string(ret.Resolution),
		Notes:      ret.Notes,
		AdminNotes: ret.AdminNotes,
		CreatedAt:  ret.CreatedAt,
	}
	var notes []string
	for _, it := range ret.Items {
		d.Reasons = append(d.Reasons, string(it.ReasonCode))
		if it.ConditionNote != "" {
			notes = append(notes, it.ConditionNote)
		}
	}
	d.ConditionNotes = strings.Join(notes, "\n")
	return d
}

type Index struct {
	ES   *elasticsearch.Client
	Name string
}

func (i *Index) IndexReturn(ctx context.Context, ret models.Return) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(DocFor(ret)); err != nil {
		return fmt.Errorf("encode doc: %w", err)
	}

	res, err := i.ES.Index(i.Name, &buf,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(ret.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index return: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index return: %s", res.Status())
	}
	return nil
}

// Search returns matching return ids in relevance order.
func (i *Index) Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"rma_code^3", "notes", "admin_notes", "condition_notes", "reasons"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Name),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode hits: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.Source.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return r.Hits.Total.Value, ids, nil
}
