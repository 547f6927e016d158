// internal/sender/record.go
package sender

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tamzrod/magscan/internal/acquire"
	"github.com/tamzrod/magscan/internal/frame"
)

// MarshalRecord renders one stream line:
//
//	[[theta, r, z, counter], [word, ...]]\n
func MarshalRecord(rec acquire.Record) ([]byte, error) {
	words := rec.Words
	if words == nil {
		words = []frame.Word{}
	}
	v := [2]any{
		[4]int64{
			int64(rec.Stamp.Theta),
			int64(rec.Stamp.R),
			int64(rec.Stamp.Z),
			int64(rec.Stamp.Counter),
		},
		words,
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sender: marshal record: %w", err)
	}
	return append(b, '\n'), nil
}

// ParseRecord is the inverse of MarshalRecord. The trailing newline is optional.
func ParseRecord(line []byte) (acquire.Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return acquire.Record{}, fmt.Errorf("sender: parse record: %w", err)
	}
	if len(raw) != 2 {
		return acquire.Record{}, fmt.Errorf("sender: parse record: want 2 elements, got %d", len(raw))
	}

	var stamp []int64
	if err := json.Unmarshal(raw[0], &stamp); err != nil {
		return acquire.Record{}, fmt.Errorf("sender: parse stamp: %w", err)
	}
	if len(stamp) != 4 {
		return acquire.Record{}, errors.New("sender: parse stamp: want [theta, r, z, counter]")
	}

	var words []frame.Word
	if err := json.Unmarshal(raw[1], &words); err != nil {
		return acquire.Record{}, fmt.Errorf("sender: parse words: %w", err)
	}

	return acquire.Record{
		Stamp: acquire.Stamp{
			Theta:   int(stamp[0]),
			R:       int(stamp[1]),
			Z:       int(stamp[2]),
			Counter: uint64(stamp[3]),
		},
		Words: words,
	}, nil
}

// MarshalWords renders one datagram payload: a JSON array of words.
func MarshalWords(words []frame.Word) ([]byte, error) {
	if words == nil {
		words = []frame.Word{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return nil, fmt.Errorf("sender: marshal words: %w", err)
	}
	return b, nil
}
