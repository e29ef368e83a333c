package printer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/dlsync/internal/model"
	"github.com/slok/dlsync/internal/printer"
)

func TestFormatProgress(t *testing.T) {
	tests := map[string]struct {
		progress model.Progress
		expected string
	}{
		"No progress":          {progress: model.Progress{Current: 0, Total: 10}, expected: "0/10 (0%)"},
		"Partial progress":     {progress: model.Progress{Current: 3, Total: 10}, expected: "3/10 (30%)"},
		"Rounded down":         {progress: model.Progress{Current: 2, Total: 3}, expected: "2/3 (66%)"},
		"Complete":             {progress: model.Progress{Current: 10, Total: 10}, expected: "10/10 (100%)"},
		"Unknown total":        {progress: model.Progress{Current: 0, Total: 0}, expected: "0/0 (?)"},
		"Current beyond total": {progress: model.Progress{Current: 12, Total: 10}, expected: "12/10 (?)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(test.expected, printer.FormatProgress(test.progress))
		})
	}
}
