package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/SteelMorgan/logdoc/internal/domain"
)

const usageText = `usage: logdoc [command] [params] [flags]

Commands:
index - extract conversations from a log and index them in a search cluster
save  - extract conversations from a log and save them to disk

Params for save:
param1: path to log file
param2: max number of minutes between two lines of one conversation
param3: output folder
param4: prefix for each output file (e.g. doc for doc1, doc2, etc.)

Params for index:
param1: path to log file
param2: max number of minutes between two lines of one conversation

Flags:
  --max-docs N       stop after N documents (default: no limit)
  --pattern FORMAT   timestamp format, repeatable; replaces the built-in formats
  --resume           skip documents delivered by the previous run of this file
  --summary          print a run summary table (default: when stdout is a terminal)
  --index NAME       index: target index name (default: INDEX_NAME)
  --backend NAME     index: elasticsearch or clickhouse (default: INDEX_BACKEND)
`

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, usageText)
}

// parseGap parses the maximum gap in minutes
func parseGap(s string) (int64, error) {
	gap, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &usageError{err: fmt.Errorf("%w: max gap %q is not a whole number of minutes", domain.ErrConfiguration, s)}
	}
	if gap < 0 {
		return 0, &usageError{err: fmt.Errorf("%w: max gap must not be negative, got %d", domain.ErrConfiguration, gap)}
	}
	return gap, nil
}
