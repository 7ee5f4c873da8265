package validation

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/meghashyamc/ragconsole/logger"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	Query    string `json:"q" validate:"required,valid_query,max=20"`
	Filename string `json:"filename" validate:"omitempty,valid_filename"`
}

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func TestValidate(t *testing.T) {
	assert := require.New(t)

	validator, err := New(newTestLogger())
	assert.NoError(err)

	testCases := []struct {
		name          string
		request       testRequest
		expectedError string
	}{
		{name: "Valid", request: testRequest{Query: "revenue", Filename: "report.pdf"}},
		{name: "MissingQuery", request: testRequest{}, expectedError: "missing required field 'q'"},
		{name: "BlankQuery", request: testRequest{Query: "   "}, expectedError: "invalid query"},
		{name: "QueryTooLong", request: testRequest{Query: strings.Repeat("a", 21)}, expectedError: "value or length of field 'q' is not in the expected range"},
		{name: "UnicodeFilename", request: testRequest{Query: "q", Filename: "年度报告 2024.docx"}},
		{name: "FilenameWithDirectory", request: testRequest{Query: "q", Filename: "../secret.txt"}, expectedError: "invalid filename"},
		{name: "FilenameWithBackslash", request: testRequest{Query: "q", Filename: `dir\file.txt`}, expectedError: "invalid filename"},
		{name: "FilenameDotDot", request: testRequest{Query: "q", Filename: ".."}, expectedError: "invalid filename"},
		{name: "FilenameNullByte", request: testRequest{Query: "q", Filename: "a\x00.txt"}, expectedError: "invalid filename"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.request)
			if tc.expectedError == "" {
				assert.NoError(err)
				return
			}
			assert.EqualError(err, tc.expectedError)
		})
	}
}
