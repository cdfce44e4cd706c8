package network

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

type EdgeRecord struct {
	ID   string `csv:"edge_id"`
	From string `csv:"from"`
	To   string `csv:"to"`
}

// LoadEdgesCSV reads an edge_id,from,to CSV into the registry
func LoadEdgesCSV(reader io.Reader, memory *Memory) (int, error) {
	// Tolerate rows with missing trailing columns
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	var records []*EdgeRecord
	if err := gocsv.UnmarshalCSV(csvReader, &records); err != nil {
		return 0, err
	}

	loaded := 0
	for _, record := range records {
		if record.ID == "" {
			continue
		}

		memory.AddEdge(record.ID, record.From, record.To)
		loaded++
	}

	return loaded, nil
}

func LoadEdgesFile(path string, memory *Memory) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	loaded, err := LoadEdgesCSV(file, memory)
	if err != nil {
		return 0, err
	}

	log.Info().Str("file", path).Int("edges", loaded).Msg("Loaded edge registry")

	return loaded, nil
}
