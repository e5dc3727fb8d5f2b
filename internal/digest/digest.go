// Package digest computes whole-file hashes used to identify a sample.
package digest

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"

	"github.com/glaslos/ssdeep"
)

// Sums holds the hex digests of one file. SSDEEP is empty when the input
// is too small for a fuzzy hash.
type Sums struct {
	MD5    string
	SHA256 string
	SSDEEP string
}

// Compute hashes everything read from r in one streaming pass.
func Compute(r io.Reader) (Sums, error) {
	md := md5.New()
	sha := sha256.New()
	fuzzy := ssdeep.New()

	if _, err := io.Copy(io.MultiWriter(md, sha, fuzzy), r); err != nil {
		return Sums{}, fmt.Errorf("read input: %w", err)
	}

	sums := Sums{
		MD5:    hex.EncodeToString(md.Sum(nil)),
		SHA256: hex.EncodeToString(sha.Sum(nil)),
	}
	// Sum yields nothing for inputs outside ssdeep's size limits.
	if fz := fuzzy.Sum(nil); len(fz) > 0 {
		sums.SSDEEP = string(fz)
	} else {
		log.Printf("digest: ssdeep skipped: input size outside fuzzy hash limits")
	}
	return sums, nil
}

// Bytes hashes data.
func Bytes(data []byte) Sums {
	// A bytes.Reader never fails.
	sums, _ := Compute(bytes.NewReader(data))
	return sums
}
