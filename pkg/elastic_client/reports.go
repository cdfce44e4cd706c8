package elastic_client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/cellroutes/pkg/loadreport"
)

const reportIndexPrefix = "cellroutes-load-report"

type reportDocument struct {
	Kind     string
	Scenario string
	File     string
	Message  string
	Time     time.Time
}

func reportIndexName(entry loadreport.Entry) string {
	return fmt.Sprintf("%s-%d-%02d", reportIndexPrefix, entry.Time.Year(), entry.Time.Month())
}

func encodeReportEntry(entry loadreport.Entry) (io.ReadSeeker, error) {
	entryBytes, err := json.Marshal(reportDocument{
		Kind:     string(entry.Kind),
		Scenario: entry.Scenario,
		File:     entry.File,
		Message:  entry.Message,
		Time:     entry.Time,
	})
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(entryBytes), nil
}

// IndexReport sends every entry added to report from now on to Elasticsearch
func IndexReport(report *loadreport.Report) {
	if Client == nil {
		return
	}

	report.OnAdd(func(entry loadreport.Entry) {
		document, err := encodeReportEntry(entry)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode report entry")
			return
		}

		IndexRequest(reportIndexName(entry), document)
	})
}
