package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Marshal renders an index file: the decimal revision on the first line,
// the JSON document after it
func Marshal(rev int64, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, rev, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes an index file to w
func Encode(w io.Writer, rev int64, doc Document) error {
	body, err := json.MarshalIndent(doc, "", " ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if _, err := io.WriteString(w, strconv.FormatInt(rev, 10)+"\n"); err != nil {
		return fmt.Errorf("failed to write revision: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Decode reads an index file. Alias documents are left undecoded.
func Decode(r io.Reader) (int64, RawDocument, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return 0, nil, fmt.Errorf("%w: missing revision line", domain.ErrInvalidSnapshot)
	}
	rev, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad revision %q", domain.ErrInvalidSnapshot, strings.TrimSpace(line))
	}

	doc := make(RawDocument)
	if err := json.NewDecoder(br).Decode(&doc); err != nil {
		if err == io.EOF {
			return rev, doc, nil
		}
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrInvalidSnapshot, err)
	}
	return rev, doc, nil
}

// Unmarshal is Decode over a byte slice
func Unmarshal(data []byte) (int64, RawDocument, error) {
	return Decode(bytes.NewReader(data))
}
