package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// ElasticsearchIndexer mirrors offers to Elasticsearch as flat documents
// for full-text search. The warehouse stays the source of truth; index
// failures are logged, never fatal.
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
}

// NewElasticsearchIndexer creates a new Elasticsearch indexer
func NewElasticsearchIndexer(addresses []string, indexName string) (*ElasticsearchIndexer, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
	}, nil
}

// offerDoc is the denormalized search document for one offer
type offerDoc struct {
	JobURL          string   `json:"job_url"`
	Title           string   `json:"title"`
	Source          string   `json:"source"`
	PublicationDate string   `json:"publication_date,omitempty"`
	Contract        string   `json:"contract,omitempty"`
	WorkType        string   `json:"work_type,omitempty"`
	Company         string   `json:"company,omitempty"`
	Profile         string   `json:"profile,omitempty"`
	EducationLevel  string   `json:"education_level,omitempty"`
	Seniority       string   `json:"seniority,omitempty"`
	SalaryRange     string   `json:"salary_range,omitempty"`
	City            string   `json:"city,omitempty"`
	Country         string   `json:"country,omitempty"`
	Remote          bool     `json:"remote"`
	Sectors         []string `json:"sectors,omitempty"`
	HardSkills      []string `json:"hard_skills,omitempty"`
	SoftSkills      []string `json:"soft_skills,omitempty"`
	Description     string   `json:"description,omitempty"`
}

func docFromOffer(offer *domain.Offer) offerDoc {
	doc := offerDoc{
		JobURL:         offer.JobURL,
		Title:          offer.Title,
		Source:         offer.Source,
		Contract:       offer.Contract,
		WorkType:       offer.WorkType,
		Company:        offer.Company,
		Profile:        offer.Profile,
		EducationLevel: offer.EducationLevel,
		Seniority:      offer.Seniority,
		SalaryRange:    offer.SalaryRange,
		City:           offer.Location.City,
		Country:        offer.Location.Country,
		Remote:         offer.Location.Remote,
		Sectors:        offer.Sectors,
		HardSkills:     offer.HardSkills,
		SoftSkills:     offer.SoftSkills,
		Description:    offer.Description,
	}
	if offer.PublicationDate != nil {
		doc.PublicationDate = offer.PublicationDate.Format(time.DateOnly)
	}
	return doc
}

// BulkIndex indexes multiple offers at once, keyed by job_url so
// re-indexing is idempotent
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, offers []*domain.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for _, offer := range offers {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    offer.JobURL,
			},
		}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')

		docBytes, err := json.Marshal(docFromOffer(offer))
		if err != nil {
			log.Printf("marshal offer %s: %v", offer.JobURL, err)
			continue
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				log.Printf("bulk index error for %s: %s - %s",
					item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason)
			}
		}
	}

	return nil
}

// EnsureIndex creates the index with accent-insensitive French settings
// if it doesn't exist
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"folded_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"job_url": {"type": "keyword"},
				"title": {
					"type": "text",
					"analyzer": "folded_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"source": {"type": "keyword"},
				"publication_date": {"type": "date", "format": "yyyy-MM-dd"},
				"contract": {"type": "keyword"},
				"work_type": {"type": "keyword"},
				"company": {"type": "text", "analyzer": "folded_analyzer"},
				"profile": {"type": "keyword"},
				"education_level": {"type": "keyword"},
				"seniority": {"type": "keyword"},
				"salary_range": {"type": "text"},
				"city": {"type": "keyword"},
				"country": {"type": "keyword"},
				"remote": {"type": "boolean"},
				"sectors": {"type": "keyword"},
				"hard_skills": {"type": "keyword"},
				"soft_skills": {"type": "keyword"},
				"description": {"type": "text", "analyzer": "folded_analyzer"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	return nil
}
