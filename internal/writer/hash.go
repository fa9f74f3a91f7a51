package writer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/SteelMorgan/logdoc/internal/domain"
)

// calculateDocumentHash calculates SHA256 hash of a wire document.
// Lines are length-prefixed so that splitting text differently never collides.
func calculateDocumentHash(doc domain.WireDocument) string {
	h := sha256.New()

	fmt.Fprintf(h, "%s|", doc.ID)
	for _, line := range doc.Text {
		fmt.Fprintf(h, "%d:%s|", len(line), line)
	}

	return hex.EncodeToString(h.Sum(nil))
}
