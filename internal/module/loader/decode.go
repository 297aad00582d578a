package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/project-jmr/go-warehouse/internal/domain"
)

// DecodeOffers parses one batch payload: either a JSON array of offer
// objects or newline-delimited JSON objects. Any other top-level shape
// is an error and the batch is skipped by the caller.
func DecodeOffers(data []byte) ([]domain.RawOffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}

	if trimmed[0] == '[' {
		var offers []domain.RawOffer
		if err := json.Unmarshal(trimmed, &offers); err != nil {
			return nil, fmt.Errorf("decode offer array: %w", err)
		}
		return offers, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var offers []domain.RawOffer
	for {
		var offer domain.RawOffer
		err := dec.Decode(&offer)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ndjson offer: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}
