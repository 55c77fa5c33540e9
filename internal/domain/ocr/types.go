package ocr

import "encoding/json"

// parseResponse mirrors the recognition service's JSON body. Only the fields
// the pipeline needs are mapped.
type parseResponse struct {
	ParsedResults         []parsedResult  `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage,omitempty"`
	ErrorDetails          string          `json:"ErrorDetails,omitempty"`
}

type parsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
	ErrorMessage      string `json:"ErrorMessage,omitempty"`
}

// errorText flattens the service's error message, which may arrive as a
// string or an array of strings.
func (r *parseResponse) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return r.ErrorDetails
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(r.ErrorMessage, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return string(r.ErrorMessage)
}
