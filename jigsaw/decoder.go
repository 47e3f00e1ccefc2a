package jigsaw

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// tileDocument is the JSON form of a tile set
type tileDocument struct {
	Tiles []struct {
		ID   uint64   `json:"id"`
		Rows []string `json:"rows"`
	} `json:"tiles"`
}

// DecodeTilePayload decodes tile input from the formats accepted on MQTT
// and HTTP sources:
// - Raw "Tile N:" text
// - JSON {"tiles":[{"id":N,"rows":[...]}]}
// - Zlib-compressed text or JSON
func DecodeTilePayload(data []byte) ([]Fragment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	if !isPlain(data) {
		inflated, err := inflateZlib(data)
		if err != nil {
			return nil, fmt.Errorf("unknown format: not tile text, JSON, or zlib-compressed")
		}
		data = inflated
		if len(data) == 0 {
			return nil, fmt.Errorf("decoded payload is empty")
		}
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeTileJSON(trimmed)
	}
	return ParseTiles(data)
}

// isPlain reports whether data looks like text rather than a zlib stream
func isPlain(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == 'T')
}

func decodeTileJSON(data []byte) ([]Fragment, error) {
	var doc tileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	// Route through ParseTiles so JSON input gets the same validation as text.
	var sb strings.Builder
	for _, t := range doc.Tiles {
		fmt.Fprintf(&sb, "Tile %d:\n%s\n\n", t.ID, strings.Join(t.Rows, "\n"))
	}
	return ParseTiles([]byte(sb.String()))
}

// inflateZlib decompresses zlib-compressed data
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}
	return decompressed, nil
}
