package measure

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/ringfit/internal/store"
)

// History stores completed results.
type History interface {
	Save(res Result) error
}

// StoreHistory keeps results in the measurements table.
type StoreHistory struct {
	repo *store.MeasurementRepository
}

// NewStoreHistory wraps a measurement repository.
func NewStoreHistory(repo *store.MeasurementRepository) *StoreHistory {
	return &StoreHistory{repo: repo}
}

// Save writes res with its full JSON as the payload.
func (h *StoreHistory) Save(res Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return h.repo.Create(&store.Measurement{
		ID:              res.ID.String(),
		RingUS:          res.RingSize.US,
		Method:          string(res.Method),
		Stage:           string(res.Stage),
		Confidence:      res.Confidence,
		DiameterMM:      res.FingerDiameterMM,
		CircumferenceMM: res.FingerCircumferenceMM,
		Payload:         payload,
		CreatedAt:       res.CreatedAt,
	})
}

// Get loads a stored result by ID. Missing IDs return store.ErrNotFound.
func (h *StoreHistory) Get(id string) (Result, error) {
	m, err := h.repo.GetByID(id)
	if err != nil {
		return Result{}, err
	}
	return decodeMeasurement(m)
}

// List returns up to limit results, newest first.
func (h *StoreHistory) List(limit int) ([]Result, error) {
	rows, err := h.repo.List(limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, m := range rows {
		res, err := decodeMeasurement(m)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func decodeMeasurement(m *store.Measurement) (Result, error) {
	var res Result
	if err := json.Unmarshal(m.Payload, &res); err != nil {
		return Result{}, fmt.Errorf("decode measurement %s: %w", m.ID, err)
	}
	return res, nil
}
