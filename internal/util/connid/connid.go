// Package connid generates short correlation IDs used to tie together log
// lines emitted over the lifetime of one accepted connection.
package connid

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a 12-character nanoid. Short enough to keep log lines
// readable; the Hub only needs uniqueness among connections alive at once,
// not global uniqueness.
func Generate() string {
	id, err := gonanoid.Generate(alphabet, 12)
	if err != nil {
		panic(fmt.Sprintf("connid: generate nanoid: %v", err))
	}
	return id
}
