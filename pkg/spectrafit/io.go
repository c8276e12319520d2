package spectrafit

import (
	"encoding/json"
	"fmt"
	"io"
)

// spectrumKey is the reserved top-level key holding the data table in the
// persisted JSON form; every other top-level key is metadata.
const spectrumKey = "Spectrum"

// spectrumTable is the persisted two-column shape. By convention the count
// column precedes the position column when unpacking.
type spectrumTable struct {
	Counts     []float64 `json:"counts"`
	Wavelength []float64 `json:"wavelength"`
}

// EncodeSpectrum serializes a spectrum to its persisted JSON form: a single
// object whose keys are the metadata keys plus the reserved "Spectrum" key
// holding the data table.
func EncodeSpectrum(s *Spectrum) ([]byte, error) {
	if len(s.X) != len(s.Y) {
		return nil, &ConfigError{
			Field:   "spectrum",
			Message: fmt.Sprintf("x and y must have equal length, got %d and %d", len(s.X), len(s.Y)),
		}
	}
	doc := make(map[string]any, len(s.Metadata)+1)
	for k, v := range s.Metadata {
		if k == spectrumKey {
			return nil, &ConfigError{
				Field:   "metadata",
				Message: fmt.Sprintf("%q is a reserved key", spectrumKey),
			}
		}
		doc[k] = v
	}
	doc[spectrumKey] = spectrumTable{Counts: s.Y, Wavelength: s.X}
	return json.Marshal(doc)
}

// DecodeSpectrum parses the persisted JSON form back into a Spectrum: the
// reserved key becomes the data table, everything else becomes metadata.
func DecodeSpectrum(data []byte) (*Spectrum, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse spectrum document: %w", err)
	}
	tableRaw, ok := raw[spectrumKey]
	if !ok {
		return nil, fmt.Errorf("spectrum document is missing the %q key", spectrumKey)
	}
	var table spectrumTable
	if err := json.Unmarshal(tableRaw, &table); err != nil {
		return nil, fmt.Errorf("parse spectrum table: %w", err)
	}

	metadata := make(map[string]any, len(raw)-1)
	for k, v := range raw {
		if k == spectrumKey {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("parse metadata key %q: %w", k, err)
		}
		metadata[k] = val
	}

	return NewSpectrum(table.Wavelength, table.Counts, metadata)
}

// WriteSpectrum writes the persisted JSON form to w.
func WriteSpectrum(w io.Writer, s *Spectrum) error {
	data, err := EncodeSpectrum(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadSpectrum parses a Spectrum from r.
func ReadSpectrum(r io.Reader) (*Spectrum, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read spectrum document: %w", err)
	}
	return DecodeSpectrum(data)
}
