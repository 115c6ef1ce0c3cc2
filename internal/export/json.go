package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/crowdsim/internal/dynamo"
	"github.com/san-kum/crowdsim/internal/storage"
)

type RunData struct {
	Name     string             `json:"name"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Arrived  bool               `json:"arrived"`
	Walls    []dynamo.Wall      `json:"walls"`
	Frames   []dynamo.Frame     `json:"frames"`
	Metrics  map[string]float64 `json:"metrics"`
}

func WriteJSON(w io.Writer, data RunData) error {
	return writeIndented(w, data)
}

func WriteMetadata(w io.Writer, meta *storage.RunMetadata) error {
	return writeIndented(w, meta)
}

func writeIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func ExportJSON(path string, data RunData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}
