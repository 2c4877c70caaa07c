package grid

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const checksumPrefix = "# blake2b:"

var ErrChecksum = errors.New("grid: checksum mismatch")

// Decode reads the text tile format: each non-blank line is one row of
// comma-separated integer codes, lines starting with '#' are comments. When
// the first comment is a "# blake2b:<hex>" header the rows are verified
// against it.
func Decode(r io.Reader) ([][]Code, error) {
	scanner := bufio.NewScanner(r)
	// 寬地圖的單行可能很長
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		rows     [][]Code
		expected string
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		// 只有第一行註解可作為校驗碼標頭
		if line[0] == '#' {
			if expected == "" && len(rows) == 0 && strings.HasPrefix(line, checksumPrefix) {
				expected = strings.TrimSpace(line[len(checksumPrefix):])
			}
			continue
		}
		toks := strings.Split(line, ",")
		row := make([]Code, 0, len(toks))
		for _, tok := range toks {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue // 容許行尾逗號
			}
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad tile code %q: %w", lineNo, tok, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan tiles: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyLevel
	}
	if expected != "" {
		if got := Checksum(rows); got != expected {
			return nil, fmt.Errorf("want %s got %s: %w", expected, got, ErrChecksum)
		}
	}
	return rows, nil
}

// Encode writes rows with a checksum header followed by the CSV body.
func Encode(w io.Writer, rows [][]Code) error {
	body := encodeBody(rows)
	if _, err := fmt.Fprintf(w, "%s%s\n", checksumPrefix, checksumOf(body)); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Checksum returns the hex blake2b-256 of the canonical encoding of rows.
func Checksum(rows [][]Code) string {
	return checksumOf(encodeBody(rows))
}

func checksumOf(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func encodeBody(rows [][]Code) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Itoa(v))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// LoadStage reads one stage file, choosing the decoder by extension.
func LoadStage(path string) ([][]Code, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tmx":
		return LoadTMX(path, "")
	case ".txt", ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open stage %s: %w", path, err)
		}
		defer f.Close()
		rows, err := Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode stage %s: %w", path, err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("stage %s: unsupported format %q", path, filepath.Ext(path))
	}
}
