package indexer

import (
	"testing"
	"time"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

func TestDocFromOffer(t *testing.T) {
	pub := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	offer := &domain.Offer{
		JobURL:          "https://jobs.example/1",
		Title:           "Data Engineer",
		Source:          "sitea",
		PublicationDate: &pub,
		Contract:        "cdi",
		Company:         "acme",
		Seniority:       "senior",
		SalaryRange:     "45k-55k EUR",
		Location:        domain.Location{City: "paris", Country: "france", Remote: true},
		Sectors:         []string{"tech"},
		HardSkills:      []string{"sql", "python"},
	}

	doc := docFromOffer(offer)

	if doc.JobURL != offer.JobURL || doc.Title != offer.Title {
		t.Errorf("doc = %+v", doc)
	}
	if doc.PublicationDate != "2025-07-15" {
		t.Errorf("PublicationDate = %q, want 2025-07-15", doc.PublicationDate)
	}
	if doc.SalaryRange != "45k-55k EUR" {
		t.Errorf("SalaryRange = %q, want 45k-55k EUR", doc.SalaryRange)
	}
	if doc.City != "paris" || doc.Country != "france" || !doc.Remote {
		t.Errorf("location fields = %q/%q/%v", doc.City, doc.Country, doc.Remote)
	}
	if len(doc.HardSkills) != 2 {
		t.Errorf("HardSkills = %v", doc.HardSkills)
	}
}

func TestDocFromOffer_NoPublicationDate(t *testing.T) {
	doc := docFromOffer(&domain.Offer{JobURL: "u1"})
	if doc.PublicationDate != "" {
		t.Errorf("PublicationDate = %q, want empty", doc.PublicationDate)
	}
}
